package dailylimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/daybook-app/daybook/internal/apperror"
)

// Service answers "may this user still create/update/delete today?" and
// exposes the combined budget via Status. These reads are advisory: the
// enforcing check runs inside the journal plugin's mutation transaction
// using the same repository and window arithmetic.
type Service interface {
	CanCreate(ctx context.Context, userID string) (bool, error)
	CanUpdate(ctx context.Context, userID string) (bool, error)
	CanDelete(ctx context.Context, userID string) (bool, error)
	Status(ctx context.Context, userID string) (*Status, error)
	Recent(ctx context.Context, userID string) (*Activity, error)
}

// recentEventLimit caps how many events Recent returns per kind.
const recentEventLimit = 30

type service struct {
	repo HistoryRepository
	db   *sql.DB
	loc  *time.Location
	now  func() time.Time
}

// NewService creates a daily-limit service. The location fixes where the
// calendar day rolls over.
func NewService(repo HistoryRepository, db *sql.DB, loc *time.Location) Service {
	return &service{
		repo: repo,
		db:   db,
		loc:  loc,
		now:  time.Now,
	}
}

func (s *service) CanCreate(ctx context.Context, userID string) (bool, error) {
	return s.can(ctx, KindCreate, userID)
}

func (s *service) CanUpdate(ctx context.Context, userID string) (bool, error) {
	return s.can(ctx, KindUpdate, userID)
}

func (s *service) CanDelete(ctx context.Context, userID string) (bool, error) {
	return s.can(ctx, KindDelete, userID)
}

// can reports whether the user's budget of the given kind is untouched today.
func (s *service) can(ctx context.Context, kind Kind, userID string) (bool, error) {
	start, end := DayWindow(s.now(), s.loc)

	count, err := s.repo.CountInWindow(ctx, s.db, kind, userID, start, end)
	if err != nil {
		return false, apperror.NewInternal(fmt.Errorf("checking %s limit: %w", kind, err))
	}

	return count == 0, nil
}

// Status returns all three budgets in one response.
func (s *service) Status(ctx context.Context, userID string) (*Status, error) {
	now := s.now()
	start, end := DayWindow(now, s.loc)

	status := &Status{
		Date:     start.Format("2006-01-02"),
		ResetsAt: end,
	}

	for kind, target := range map[Kind]*bool{
		KindCreate: &status.CanCreate,
		KindUpdate: &status.CanUpdate,
		KindDelete: &status.CanDelete,
	} {
		count, err := s.repo.CountInWindow(ctx, s.db, kind, userID, start, end)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("checking %s limit: %w", kind, err))
		}
		*target = count == 0
	}

	return status, nil
}

// Recent returns the user's latest consumed actions per kind, so clients
// can show when each budget was last spent.
func (s *service) Recent(ctx context.Context, userID string) (*Activity, error) {
	activity := &Activity{}

	for kind, target := range map[Kind]*[]Event{
		KindCreate: &activity.Create,
		KindUpdate: &activity.Update,
		KindDelete: &activity.Delete,
	} {
		events, err := s.repo.ListRecent(ctx, s.db, kind, userID, recentEventLimit)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("listing %s history: %w", kind, err))
		}
		*target = events
	}

	return activity, nil
}
