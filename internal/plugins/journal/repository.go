package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/daybook-app/daybook/internal/apperror"
	"github.com/daybook-app/daybook/internal/plugins/dailylimit"
)

// EntryRepository defines data access for journal entries and their tags and
// secondary moods. Mutations are transactional: the daily-limit check, the
// entry write, the tag/mood writes, and the history mark all commit or roll
// back together, serialized per user by an exclusive lock on the user row.
// When enforceLimit is false (seeding), no limit is checked and no history
// event is recorded.
type EntryRepository interface {
	Create(ctx context.Context, entry *Entry, tags []Tag, moods []SecondaryMood, enforceLimit bool) error
	Update(ctx context.Context, entry *Entry, tags []Tag, moods []SecondaryMood, enforceLimit bool) error
	SoftDelete(ctx context.Context, userID, entryID string, enforceLimit bool) error

	FindByID(ctx context.Context, userID, entryID string) (*Entry, error)
	ListByUser(ctx context.Context, userID string) ([]Entry, error)

	TagsForEntry(ctx context.Context, entryID string) ([]Tag, error)
	MoodsForEntry(ctx context.Context, entryID string) ([]SecondaryMood, error)
	TagsForUser(ctx context.Context, userID string) ([]Tag, error)
	MoodsForUser(ctx context.Context, userID string) ([]SecondaryMood, error)
}

// entryRepository implements EntryRepository with hand-written MariaDB
// queries. It owns the transactions; the dailylimit history repository runs
// inside them via the shared DBTX contract.
type entryRepository struct {
	db      *sql.DB
	history dailylimit.HistoryRepository
	loc     *time.Location
	now     func() time.Time
}

// NewEntryRepository creates an entry repository. The location fixes the
// day boundary used for limit enforcement.
func NewEntryRepository(db *sql.DB, history dailylimit.HistoryRepository, loc *time.Location) EntryRepository {
	return &entryRepository{
		db:      db,
		history: history,
		loc:     loc,
		now:     time.Now,
	}
}

// Create inserts a new entry with its tags and moods. With enforceLimit set,
// the whole operation fails with 429 if the user already created an entry
// today, and a create event is recorded on success.
func (r *entryRepository) Create(ctx context.Context, entry *Entry, tags []Tag, moods []SecondaryMood, enforceLimit bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning create transaction: %w", err)
	}
	defer tx.Rollback()

	now := r.now()
	if enforceLimit {
		if err := lockUser(ctx, tx, entry.UserID); err != nil {
			return err
		}
		if err := r.checkBudget(ctx, tx, dailylimit.KindCreate, entry.UserID, now); err != nil {
			return err
		}
	}

	query := `INSERT INTO journal_entries
	          (id, user_id, title, content, primary_mood, entry_date, created_at, updated_at, is_deleted)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, FALSE)`
	_, err = tx.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Title,
		entry.Content,
		entry.PrimaryMood,
		entry.EntryDate.Format(entryDateFormat),
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}

	if err := insertTagsAndMoods(ctx, tx, entry, tags, moods); err != nil {
		return err
	}

	if enforceLimit {
		if err := r.history.Mark(ctx, tx, dailylimit.KindCreate, entry.UserID, entry.ID, now); err != nil {
			return fmt.Errorf("recording create event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing create transaction: %w", err)
	}

	return nil
}

// Update rewrites an entry and fully replaces its tags and moods. The row is
// locked first so the ownership check, limit check, and writes see a
// consistent state.
func (r *entryRepository) Update(ctx context.Context, entry *Entry, tags []Tag, moods []SecondaryMood, enforceLimit bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning update transaction: %w", err)
	}
	defer tx.Rollback()

	if enforceLimit {
		if err := lockUser(ctx, tx, entry.UserID); err != nil {
			return err
		}
	}
	if err := lockOwnedEntry(ctx, tx, entry.UserID, entry.ID); err != nil {
		return err
	}

	now := r.now()
	if enforceLimit {
		if err := r.checkBudget(ctx, tx, dailylimit.KindUpdate, entry.UserID, now); err != nil {
			return err
		}
	}

	query := `UPDATE journal_entries
	          SET title = ?, content = ?, primary_mood = ?, entry_date = ?, updated_at = ?
	          WHERE id = ? AND user_id = ?`
	_, err = tx.ExecContext(ctx, query,
		entry.Title,
		entry.Content,
		entry.PrimaryMood,
		entry.EntryDate.Format(entryDateFormat),
		entry.UpdatedAt,
		entry.ID,
		entry.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating entry: %w", err)
	}

	// Full replace: delete every existing tag and mood, then reinsert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_tags WHERE entry_id = ?`, entry.ID); err != nil {
		return fmt.Errorf("clearing tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_moods WHERE entry_id = ?`, entry.ID); err != nil {
		return fmt.Errorf("clearing moods: %w", err)
	}
	if err := insertTagsAndMoods(ctx, tx, entry, tags, moods); err != nil {
		return err
	}

	if enforceLimit {
		if err := r.history.Mark(ctx, tx, dailylimit.KindUpdate, entry.UserID, entry.ID, now); err != nil {
			return fmt.Errorf("recording update event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update transaction: %w", err)
	}

	return nil
}

// SoftDelete flags an entry as deleted. Tags and moods stay in place; the
// soft-delete filter on reads hides everything. Deleted is terminal.
func (r *entryRepository) SoftDelete(ctx context.Context, userID, entryID string, enforceLimit bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	if enforceLimit {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
	}
	if err := lockOwnedEntry(ctx, tx, userID, entryID); err != nil {
		return err
	}

	now := r.now()
	if enforceLimit {
		if err := r.checkBudget(ctx, tx, dailylimit.KindDelete, userID, now); err != nil {
			return err
		}
	}

	query := `UPDATE journal_entries SET is_deleted = TRUE, updated_at = ?
	          WHERE id = ? AND user_id = ?`
	if _, err := tx.ExecContext(ctx, query, now.UTC(), entryID, userID); err != nil {
		return fmt.Errorf("soft-deleting entry: %w", err)
	}

	if enforceLimit {
		if err := r.history.Mark(ctx, tx, dailylimit.KindDelete, userID, entryID, now); err != nil {
			return fmt.Errorf("recording delete event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete transaction: %w", err)
	}

	return nil
}

// FindByID retrieves one live entry owned by the user. Soft-deleted rows and
// other users' rows both come back as 404 -- the response never reveals
// whether the id exists.
func (r *entryRepository) FindByID(ctx context.Context, userID, entryID string) (*Entry, error) {
	query := `SELECT id, user_id, title, content, primary_mood, entry_date,
	                 created_at, updated_at, is_deleted
	          FROM journal_entries
	          WHERE id = ? AND user_id = ? AND is_deleted = FALSE`

	entry := &Entry{}
	err := r.db.QueryRowContext(ctx, query, entryID, userID).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Title,
		&entry.Content,
		&entry.PrimaryMood,
		&entry.EntryDate,
		&entry.CreatedAt,
		&entry.UpdatedAt,
		&entry.IsDeleted,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("entry not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying entry: %w", err)
	}

	return entry, nil
}

// ListByUser returns all live entries for a user, most recent entry date
// first.
func (r *entryRepository) ListByUser(ctx context.Context, userID string) ([]Entry, error) {
	query := `SELECT id, user_id, title, content, primary_mood, entry_date,
	                 created_at, updated_at, is_deleted
	          FROM journal_entries
	          WHERE user_id = ? AND is_deleted = FALSE
	          ORDER BY entry_date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Title, &e.Content, &e.PrimaryMood,
			&e.EntryDate, &e.CreatedAt, &e.UpdatedAt, &e.IsDeleted,
		); err != nil {
			return nil, fmt.Errorf("scanning entry row: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// TagsForEntry returns the tags attached to one entry.
func (r *entryRepository) TagsForEntry(ctx context.Context, entryID string) ([]Tag, error) {
	query := `SELECT id, entry_id, user_id, name FROM entry_tags WHERE entry_id = ? ORDER BY id`
	return scanTags(r.db.QueryContext(ctx, query, entryID))
}

// MoodsForEntry returns the secondary moods attached to one entry.
func (r *entryRepository) MoodsForEntry(ctx context.Context, entryID string) ([]SecondaryMood, error) {
	query := `SELECT id, entry_id, user_id, name, category FROM entry_moods WHERE entry_id = ? ORDER BY id`
	return scanMoods(r.db.QueryContext(ctx, query, entryID))
}

// TagsForUser returns every tag the user owns, for batch hydration of entry
// lists without one query per entry.
func (r *entryRepository) TagsForUser(ctx context.Context, userID string) ([]Tag, error) {
	query := `SELECT id, entry_id, user_id, name FROM entry_tags WHERE user_id = ? ORDER BY id`
	return scanTags(r.db.QueryContext(ctx, query, userID))
}

// MoodsForUser returns every secondary mood the user owns.
func (r *entryRepository) MoodsForUser(ctx context.Context, userID string) ([]SecondaryMood, error) {
	query := `SELECT id, entry_id, user_id, name, category FROM entry_moods WHERE user_id = ? ORDER BY id`
	return scanMoods(r.db.QueryContext(ctx, query, userID))
}

// --- Transaction helpers ---

// checkBudget fails with 429 if the user already consumed today's budget of
// the given kind. Callers must hold the user row lock: the count is a plain
// snapshot read, so without the lock two same-day transactions would both
// read zero and both commit.
func (r *entryRepository) checkBudget(ctx context.Context, tx *sql.Tx, kind dailylimit.Kind, userID string, now time.Time) error {
	start, end := dailylimit.DayWindow(now, r.loc)

	count, err := r.history.CountInWindow(ctx, tx, kind, userID, start, end)
	if err != nil {
		return fmt.Errorf("checking %s budget: %w", kind, err)
	}
	if count > 0 {
		return apperror.NewLimitExceeded(fmt.Sprintf("daily %s limit reached, try again tomorrow", kind))
	}

	return nil
}

// lockUser takes an exclusive lock on the user row, serializing every
// limited mutation for that user until commit. A second same-day request
// blocks here and then sees the first one's history row. Locked before
// lockOwnedEntry wherever both are taken, so mutations cannot deadlock on
// each other.
func lockUser(ctx context.Context, tx *sql.Tx, userID string) error {
	var id string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE id = ? FOR UPDATE`,
		userID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NewUnauthorized("account no longer exists")
	}
	if err != nil {
		return fmt.Errorf("locking user: %w", err)
	}
	return nil
}

// lockOwnedEntry locks an entry row and verifies it is live and owned by the
// user. Missing, foreign, and soft-deleted entries all yield the same 404.
func lockOwnedEntry(ctx context.Context, tx *sql.Tx, userID, entryID string) error {
	var ownerID string
	var isDeleted bool
	err := tx.QueryRowContext(ctx,
		`SELECT user_id, is_deleted FROM journal_entries WHERE id = ? FOR UPDATE`,
		entryID,
	).Scan(&ownerID, &isDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NewNotFound("entry not found")
	}
	if err != nil {
		return fmt.Errorf("locking entry: %w", err)
	}
	if ownerID != userID || isDeleted {
		return apperror.NewNotFound("entry not found")
	}
	return nil
}

// insertTagsAndMoods persists the tag and mood collections for an entry,
// stamping the foreign keys. The entry row must already exist.
func insertTagsAndMoods(ctx context.Context, tx *sql.Tx, entry *Entry, tags []Tag, moods []SecondaryMood) error {
	for _, tag := range tags {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO entry_tags (entry_id, user_id, name) VALUES (?, ?, ?)`,
			entry.ID, entry.UserID, tag.Name,
		)
		if err != nil {
			return fmt.Errorf("inserting tag: %w", err)
		}
	}

	for _, mood := range moods {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO entry_moods (entry_id, user_id, name, category) VALUES (?, ?, ?, ?)`,
			entry.ID, entry.UserID, mood.Name, mood.Category,
		)
		if err != nil {
			return fmt.Errorf("inserting mood: %w", err)
		}
	}

	return nil
}

// --- Scan helpers ---

func scanTags(rows *sql.Rows, err error) ([]Tag, error) {
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.EntryID, &t.UserID, &t.Name); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func scanMoods(rows *sql.Rows, err error) ([]SecondaryMood, error) {
	if err != nil {
		return nil, fmt.Errorf("querying moods: %w", err)
	}
	defer rows.Close()

	var moods []SecondaryMood
	for rows.Next() {
		var m SecondaryMood
		if err := rows.Scan(&m.ID, &m.EntryID, &m.UserID, &m.Name, &m.Category); err != nil {
			return nil, fmt.Errorf("scanning mood row: %w", err)
		}
		moods = append(moods, m)
	}
	return moods, rows.Err()
}
