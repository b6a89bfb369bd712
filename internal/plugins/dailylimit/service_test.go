package dailylimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/daybook-app/daybook/internal/apperror"
)

// --- Mock Repository ---

// mockHistoryRepo implements HistoryRepository for testing.
type mockHistoryRepo struct {
	countInWindowFn func(ctx context.Context, q DBTX, kind Kind, userID string, start, end time.Time) (int, error)
	markFn          func(ctx context.Context, q DBTX, kind Kind, userID, entryID string, occurredAt time.Time) error
	listRecentFn    func(ctx context.Context, q DBTX, kind Kind, userID string, limit int) ([]Event, error)
}

func (m *mockHistoryRepo) CountInWindow(ctx context.Context, q DBTX, kind Kind, userID string, start, end time.Time) (int, error) {
	if m.countInWindowFn != nil {
		return m.countInWindowFn(ctx, q, kind, userID, start, end)
	}
	return 0, nil
}

func (m *mockHistoryRepo) Mark(ctx context.Context, q DBTX, kind Kind, userID, entryID string, occurredAt time.Time) error {
	if m.markFn != nil {
		return m.markFn(ctx, q, kind, userID, entryID, occurredAt)
	}
	return nil
}

func (m *mockHistoryRepo) ListRecent(ctx context.Context, q DBTX, kind Kind, userID string, limit int) ([]Event, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, q, kind, userID, limit)
	}
	return nil, nil
}

// newTestService builds a service with a fixed clock and UTC day boundaries.
func newTestService(repo *mockHistoryRepo, at time.Time) *service {
	return &service{
		repo: repo,
		loc:  time.UTC,
		now:  func() time.Time { return at },
	}
}

// --- DayWindow Tests ---

func TestDayWindow_UTC(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	start, end := DayWindow(now, time.UTC)

	wantStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("expected start %v, got %v", wantStart, start)
	}
	if !end.Equal(wantEnd) {
		t.Errorf("expected end %v, got %v", wantEnd, end)
	}
}

func TestDayWindow_CrossesZoneBoundary(t *testing.T) {
	// 01:30 UTC on March 15 is still March 14 in New York (UTC-4/-5).
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}

	now := time.Date(2026, 3, 15, 1, 30, 0, 0, time.UTC)
	start, end := DayWindow(now, ny)

	if got := start.In(ny).Format("2006-01-02"); got != "2026-03-14" {
		t.Errorf("expected window to start on 2026-03-14 local, got %s", got)
	}
	if d := end.Sub(start); d < 23*time.Hour || d > 25*time.Hour {
		t.Errorf("expected roughly one day window, got %v", d)
	}
}

func TestDayWindow_HalfOpen(t *testing.T) {
	// Midnight itself belongs to the new day, not the old one.
	midnight := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	start, end := DayWindow(midnight, time.UTC)

	if !start.Equal(midnight) {
		t.Errorf("expected window to start at midnight, got %v", start)
	}
	if !end.Equal(midnight.AddDate(0, 0, 1)) {
		t.Errorf("expected window to end next midnight, got %v", end)
	}
}

// --- Can* Tests ---

func TestCanCreate_FreshDay(t *testing.T) {
	repo := &mockHistoryRepo{
		countInWindowFn: func(ctx context.Context, q DBTX, kind Kind, userID string, start, end time.Time) (int, error) {
			if kind != KindCreate {
				t.Errorf("expected kind create, got %s", kind)
			}
			return 0, nil
		},
	}

	svc := newTestService(repo, time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	ok, err := svc.CanCreate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected create to be allowed on a fresh day")
	}
}

func TestCanCreate_AlreadyUsed(t *testing.T) {
	repo := &mockHistoryRepo{
		countInWindowFn: func(ctx context.Context, q DBTX, kind Kind, userID string, start, end time.Time) (int, error) {
			return 1, nil
		},
	}

	svc := newTestService(repo, time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	ok, err := svc.CanCreate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected create to be blocked after one use today")
	}
}

func TestCan_QueriesTodayWindow(t *testing.T) {
	now := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)
	repo := &mockHistoryRepo{
		countInWindowFn: func(ctx context.Context, q DBTX, kind Kind, userID string, start, end time.Time) (int, error) {
			wantStart := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
			if !start.Equal(wantStart) {
				t.Errorf("expected window start %v, got %v", wantStart, start)
			}
			if !end.Equal(wantStart.AddDate(0, 0, 1)) {
				t.Errorf("expected window end next midnight, got %v", end)
			}
			return 0, nil
		},
	}

	svc := newTestService(repo, now)
	if _, err := svc.CanUpdate(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCan_RepoError(t *testing.T) {
	repo := &mockHistoryRepo{
		countInWindowFn: func(ctx context.Context, q DBTX, kind Kind, userID string, start, end time.Time) (int, error) {
			return 0, errors.New("db down")
		},
	}

	svc := newTestService(repo, time.Now())
	_, err := svc.CanDelete(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected error")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != 500 {
		t.Errorf("expected internal error, got %v", err)
	}
}

// --- Status Tests ---

func TestStatus_MixedBudgets(t *testing.T) {
	// Create used, update and delete still free.
	repo := &mockHistoryRepo{
		countInWindowFn: func(ctx context.Context, q DBTX, kind Kind, userID string, start, end time.Time) (int, error) {
			if kind == KindCreate {
				return 1, nil
			}
			return 0, nil
		},
	}

	svc := newTestService(repo, time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC))
	status, err := svc.Status(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if status.CanCreate {
		t.Error("expected create budget to be used")
	}
	if !status.CanUpdate || !status.CanDelete {
		t.Error("expected update and delete budgets to be free")
	}
	if status.Date != "2026-08-31" {
		t.Errorf("expected date 2026-08-31, got %s", status.Date)
	}
	if want := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC); !status.ResetsAt.Equal(want) {
		t.Errorf("expected reset at %v, got %v", want, status.ResetsAt)
	}
}

func TestStatus_RepoError(t *testing.T) {
	repo := &mockHistoryRepo{
		countInWindowFn: func(ctx context.Context, q DBTX, kind Kind, userID string, start, end time.Time) (int, error) {
			return 0, errors.New("db down")
		},
	}

	svc := newTestService(repo, time.Now())
	_, err := svc.Status(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected error")
	}
}

// --- Recent Tests ---

func TestRecent_GroupsByKind(t *testing.T) {
	repo := &mockHistoryRepo{
		listRecentFn: func(ctx context.Context, q DBTX, kind Kind, userID string, limit int) ([]Event, error) {
			if userID != "user-1" {
				t.Errorf("expected user-1, got %s", userID)
			}
			if limit != recentEventLimit {
				t.Errorf("expected limit %d, got %d", recentEventLimit, limit)
			}
			if kind == KindDelete {
				return nil, nil
			}
			return []Event{{ID: 1, UserID: userID, EntryID: "entry-1"}}, nil
		},
	}

	svc := newTestService(repo, time.Now())
	activity, err := svc.Recent(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(activity.Create) != 1 || len(activity.Update) != 1 {
		t.Errorf("expected one create and one update event, got %d and %d",
			len(activity.Create), len(activity.Update))
	}
	if len(activity.Delete) != 0 {
		t.Errorf("expected no delete events, got %d", len(activity.Delete))
	}
}

func TestRecent_RepoError(t *testing.T) {
	repo := &mockHistoryRepo{
		listRecentFn: func(ctx context.Context, q DBTX, kind Kind, userID string, limit int) ([]Event, error) {
			return nil, errors.New("db down")
		},
	}

	svc := newTestService(repo, time.Now())
	_, err := svc.Recent(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected error")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != 500 {
		t.Errorf("expected internal error, got %v", err)
	}
}
