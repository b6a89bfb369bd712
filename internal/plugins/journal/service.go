package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daybook-app/daybook/internal/apperror"
	"github.com/daybook-app/daybook/internal/sanitize"
)

const (
	maxTitleLength     = 200
	maxSecondaryMoods  = 2
	defaultEntryTitle  = "Untitled"
	maxTagLength       = 50
	maxPrimaryMoodSize = 50
)

// EntryService defines the business logic contract for journal entries.
// Handlers call these methods -- they never touch the repository directly.
type EntryService interface {
	Create(ctx context.Context, userID string, input EntryInput) (*EntryDetails, error)
	Update(ctx context.Context, userID, entryID string, input EntryInput) (*EntryDetails, error)
	Delete(ctx context.Context, userID, entryID string) error

	Get(ctx context.Context, userID, entryID string) (*EntryDetails, error)
	List(ctx context.Context, userID string) ([]EntryDetails, error)

	// Import creates an entry without consuming the daily create budget and
	// without recording a history event. Internal use only (seeding); never
	// exposed on a user-facing route.
	Import(ctx context.Context, userID string, input EntryInput) (*EntryDetails, error)
}

// entryService implements EntryService.
type entryService struct {
	repo EntryRepository
	loc  *time.Location
	now  func() time.Time
}

// NewEntryService creates an entry service. The location decides what
// "today" means when an entry date is omitted.
func NewEntryService(repo EntryRepository, loc *time.Location) EntryService {
	return &entryService{
		repo: repo,
		loc:  loc,
		now:  time.Now,
	}
}

// Create validates the input and persists a new entry, its tags, and its
// moods. The daily create budget is enforced inside the repository
// transaction.
func (s *entryService) Create(ctx context.Context, userID string, input EntryInput) (*EntryDetails, error) {
	return s.create(ctx, userID, input, true)
}

// Import is Create in bypass mode: no limit check, no history event.
func (s *entryService) Import(ctx context.Context, userID string, input EntryInput) (*EntryDetails, error) {
	return s.create(ctx, userID, input, false)
}

func (s *entryService) create(ctx context.Context, userID string, input EntryInput, enforceLimit bool) (*EntryDetails, error) {
	entry, tags, moods, err := s.buildEntry(userID, input)
	if err != nil {
		return nil, err
	}

	entry.ID = uuid.NewString()
	now := s.now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	if err := s.repo.Create(ctx, entry, tags, moods, enforceLimit); err != nil {
		return nil, wrapRepoError("creating entry", err)
	}

	slog.Info("entry created",
		slog.String("entry_id", entry.ID),
		slog.String("user_id", userID),
		slog.Bool("limited", enforceLimit),
	)

	return s.hydrate(ctx, entry)
}

// Update validates the input and rewrites the entry. Ownership is verified
// inside the repository transaction; tags and moods are fully replaced.
func (s *entryService) Update(ctx context.Context, userID, entryID string, input EntryInput) (*EntryDetails, error) {
	// An omitted date keeps the stored one. Only Create defaults to today.
	if strings.TrimSpace(input.EntryDate) == "" {
		existing, err := s.repo.FindByID(ctx, userID, entryID)
		if err != nil {
			return nil, wrapRepoError("loading entry", err)
		}
		input.EntryDate = existing.EntryDate.Format(entryDateFormat)
	}

	entry, tags, moods, err := s.buildEntry(userID, input)
	if err != nil {
		return nil, err
	}

	entry.ID = entryID
	entry.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, entry, tags, moods, true); err != nil {
		return nil, wrapRepoError("updating entry", err)
	}

	slog.Info("entry updated",
		slog.String("entry_id", entryID),
		slog.String("user_id", userID),
	)

	// Re-read so the response carries the persisted created_at.
	fresh, err := s.repo.FindByID(ctx, userID, entryID)
	if err != nil {
		return nil, wrapRepoError("reloading entry", err)
	}

	return s.hydrate(ctx, fresh)
}

// Delete soft-deletes an entry. The entry stays in the database but vanishes
// from every read. Deleted is terminal -- there is no undelete.
func (s *entryService) Delete(ctx context.Context, userID, entryID string) error {
	if err := s.repo.SoftDelete(ctx, userID, entryID, true); err != nil {
		return wrapRepoError("deleting entry", err)
	}

	slog.Info("entry deleted",
		slog.String("entry_id", entryID),
		slog.String("user_id", userID),
	)

	return nil
}

// Get returns one entry with its tags and moods.
func (s *entryService) Get(ctx context.Context, userID, entryID string) (*EntryDetails, error) {
	entry, err := s.repo.FindByID(ctx, userID, entryID)
	if err != nil {
		return nil, wrapRepoError("loading entry", err)
	}
	return s.hydrate(ctx, entry)
}

// List returns all live entries for the user with tags and moods attached,
// most recent entry date first. Tags and moods are fetched in two batch
// queries and grouped in memory.
func (s *entryService) List(ctx context.Context, userID string) ([]EntryDetails, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, wrapRepoError("listing entries", err)
	}

	tags, err := s.repo.TagsForUser(ctx, userID)
	if err != nil {
		return nil, wrapRepoError("loading tags", err)
	}
	moods, err := s.repo.MoodsForUser(ctx, userID)
	if err != nil {
		return nil, wrapRepoError("loading moods", err)
	}

	tagsByEntry := make(map[string][]Tag)
	for _, t := range tags {
		tagsByEntry[t.EntryID] = append(tagsByEntry[t.EntryID], t)
	}
	moodsByEntry := make(map[string][]SecondaryMood)
	for _, m := range moods {
		moodsByEntry[m.EntryID] = append(moodsByEntry[m.EntryID], m)
	}

	details := make([]EntryDetails, 0, len(entries))
	for _, e := range entries {
		details = append(details, EntryDetails{
			Entry:          e,
			Tags:           tagsByEntry[e.ID],
			SecondaryMoods: moodsByEntry[e.ID],
		})
	}

	return details, nil
}

// --- Validation and assembly ---

// buildEntry validates an input and assembles the entry, tag, and mood
// values to persist. Content is sanitized here so nothing downstream ever
// sees raw editor HTML.
func (s *entryService) buildEntry(userID string, input EntryInput) (*Entry, []Tag, []SecondaryMood, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = defaultEntryTitle
	}
	if len(title) > maxTitleLength {
		return nil, nil, nil, apperror.NewValidation(fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}

	content := sanitize.HTML(input.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil, nil, apperror.NewValidation("content is required")
	}

	primaryMood := strings.TrimSpace(input.PrimaryMood)
	if primaryMood == "" {
		return nil, nil, nil, apperror.NewValidation("primary mood is required")
	}
	if len(primaryMood) > maxPrimaryMoodSize {
		return nil, nil, nil, apperror.NewValidation("primary mood is too long")
	}

	entryDate, err := s.parseEntryDate(input.EntryDate)
	if err != nil {
		return nil, nil, nil, err
	}

	tags := make([]Tag, 0, len(input.Tags))
	seenTags := make(map[string]bool, len(input.Tags))
	for _, raw := range input.Tags {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if len(name) > maxTagLength {
			return nil, nil, nil, apperror.NewValidation(fmt.Sprintf("tag %q is too long", name))
		}
		key := strings.ToLower(name)
		if seenTags[key] {
			continue
		}
		seenTags[key] = true
		tags = append(tags, Tag{UserID: userID, Name: name})
	}

	moods := make([]SecondaryMood, 0, len(input.SecondaryMoods))
	seenMoods := make(map[string]bool, len(input.SecondaryMoods))
	for _, raw := range input.SecondaryMoods {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seenMoods[key] {
			continue
		}
		seenMoods[key] = true
		moods = append(moods, SecondaryMood{
			UserID:   userID,
			Name:     name,
			Category: CategorizeMood(name),
		})
	}
	if len(moods) > maxSecondaryMoods {
		return nil, nil, nil, apperror.NewValidation(fmt.Sprintf("at most %d secondary moods are allowed", maxSecondaryMoods))
	}

	entry := &Entry{
		UserID:      userID,
		Title:       title,
		Content:     content,
		PrimaryMood: primaryMood,
		EntryDate:   entryDate,
	}

	return entry, tags, moods, nil
}

// parseEntryDate parses a YYYY-MM-DD date, defaulting to today in the
// configured timezone when empty.
func (s *entryService) parseEntryDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		local := s.now().In(s.loc)
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	parsed, err := time.Parse(entryDateFormat, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, apperror.NewValidation("entry date must be in YYYY-MM-DD format")
	}
	return parsed, nil
}

// hydrate attaches tags and moods to a single entry.
func (s *entryService) hydrate(ctx context.Context, entry *Entry) (*EntryDetails, error) {
	tags, err := s.repo.TagsForEntry(ctx, entry.ID)
	if err != nil {
		return nil, wrapRepoError("loading tags", err)
	}
	moods, err := s.repo.MoodsForEntry(ctx, entry.ID)
	if err != nil {
		return nil, wrapRepoError("loading moods", err)
	}

	return &EntryDetails{
		Entry:          *entry,
		Tags:           tags,
		SecondaryMoods: moods,
	}, nil
}

// wrapRepoError passes domain errors (404, 429) through untouched and wraps
// everything else as a 500.
func wrapRepoError(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.NewInternal(fmt.Errorf("%s: %w", op, err))
}
