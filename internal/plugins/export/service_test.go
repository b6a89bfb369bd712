package export

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/daybook-app/daybook/internal/apperror"
	"github.com/daybook-app/daybook/internal/plugins/journal"
)

// mockLister implements EntryLister for testing.
type mockLister struct {
	listFn func(ctx context.Context, userID string) ([]journal.EntryDetails, error)
}

func (m *mockLister) List(ctx context.Context, userID string) ([]journal.EntryDetails, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func sampleEntries() []journal.EntryDetails {
	return []journal.EntryDetails{
		{
			Entry: journal.Entry{
				ID:          "entry-1",
				UserID:      "user-1",
				Title:       "Day One",
				Content:     "<p>Went <b>hiking</b> today.</p>",
				PrimaryMood: "Happy",
				EntryDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			Tags: []journal.Tag{
				{ID: 1, EntryID: "entry-1", Name: "Travel"},
			},
			SecondaryMoods: []journal.SecondaryMood{
				{ID: 2, EntryID: "entry-1", Name: "Calm", Category: journal.CategoryPositive},
			},
		},
	}
}

func newTestExportService(lister EntryLister, at time.Time) *service {
	svc := NewService(lister).(*service)
	svc.now = func() time.Time { return at }
	return svc
}

func TestExport_JSON(t *testing.T) {
	lister := &mockLister{
		listFn: func(ctx context.Context, userID string) ([]journal.EntryDetails, error) {
			if userID != "user-1" {
				t.Errorf("expected user-1, got %s", userID)
			}
			return sampleEntries(), nil
		},
	}

	at := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc := newTestExportService(lister, at)

	result, err := svc.Export(context.Background(), "user-1", "alice", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ContentType != "application/json" {
		t.Errorf("expected application/json, got %s", result.ContentType)
	}
	if result.Filename != "daybook-2026-08-31.json" {
		t.Errorf("unexpected filename %s", result.Filename)
	}

	var envelope Envelope
	if err := json.Unmarshal(result.Content, &envelope); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if envelope.Format != "daybook-export-v1" {
		t.Errorf("expected format daybook-export-v1, got %s", envelope.Format)
	}
	if envelope.Version != 1 {
		t.Errorf("expected version 1, got %d", envelope.Version)
	}
	if envelope.Username != "alice" {
		t.Errorf("expected username alice, got %s", envelope.Username)
	}
	if len(envelope.Entries) != 1 || envelope.Entries[0].Title != "Day One" {
		t.Errorf("expected one entry titled Day One, got %v", envelope.Entries)
	}
}

func TestExport_Markdown(t *testing.T) {
	lister := &mockLister{
		listFn: func(ctx context.Context, userID string) ([]journal.EntryDetails, error) {
			return sampleEntries(), nil
		},
	}

	svc := newTestExportService(lister, time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC))
	result, err := svc.Export(context.Background(), "user-1", "alice", "markdown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(result.ContentType, "text/markdown") {
		t.Errorf("expected markdown content type, got %s", result.ContentType)
	}

	md := string(result.Content)
	if !strings.Contains(md, "## Day One") {
		t.Errorf("expected entry heading in markdown, got:\n%s", md)
	}
	if !strings.Contains(md, "2024-01-01 | Mood: Happy, Calm") {
		t.Errorf("expected metadata line in markdown, got:\n%s", md)
	}
	if !strings.Contains(md, "Tags: Travel") {
		t.Errorf("expected tag line in markdown, got:\n%s", md)
	}
	// The HTML body is converted, not embedded.
	if !strings.Contains(md, "**hiking**") {
		t.Errorf("expected converted markdown body, got:\n%s", md)
	}
	if strings.Contains(md, "<p>") {
		t.Errorf("expected no raw HTML in markdown export, got:\n%s", md)
	}
}

func TestExport_UnsupportedFormat(t *testing.T) {
	svc := newTestExportService(&mockLister{}, time.Now())
	_, err := svc.Export(context.Background(), "user-1", "alice", "docx")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != 400 {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestExport_ListError(t *testing.T) {
	lister := &mockLister{
		listFn: func(ctx context.Context, userID string) ([]journal.EntryDetails, error) {
			return nil, apperror.NewInternal(errors.New("db down"))
		},
	}

	svc := newTestExportService(lister, time.Now())
	_, err := svc.Export(context.Background(), "user-1", "alice", "json")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestExport_EmptyJournal(t *testing.T) {
	svc := newTestExportService(&mockLister{}, time.Now())
	result, err := svc.Export(context.Background(), "user-1", "alice", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var envelope Envelope
	if err := json.Unmarshal(result.Content, &envelope); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(envelope.Entries) != 0 {
		t.Errorf("expected empty entries, got %d", len(envelope.Entries))
	}
}
