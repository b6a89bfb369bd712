package dailylimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBTX is the subset of database operations the repository needs. Both
// *sql.DB and *sql.Tx satisfy it, which lets the journal plugin run a
// limit check and its history mark inside the same transaction as the
// entry mutation, behind an exclusive lock on the user row. The count
// itself is a snapshot read under REPEATABLE READ; the lock is what makes
// two same-day requests serialize instead of both passing.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// HistoryRepository defines data access for the daily-limit history tables.
// Every method takes an explicit DBTX so callers choose the execution
// context: the shared pool for advisory reads, a transaction for
// mutation-coupled checks and marks.
type HistoryRepository interface {
	// CountInWindow returns how many events of the given kind the user has
	// inside [start, end).
	CountInWindow(ctx context.Context, q DBTX, kind Kind, userID string, start, end time.Time) (int, error)

	// Mark appends a history event of the given kind.
	Mark(ctx context.Context, q DBTX, kind Kind, userID, entryID string, occurredAt time.Time) error

	// ListRecent returns the user's newest events of the given kind,
	// newest first.
	ListRecent(ctx context.Context, q DBTX, kind Kind, userID string, limit int) ([]Event, error)
}

// historyTables maps each kind to its table. One table per kind keeps the
// queries trivial and mirrors how the budgets are independent of each other.
var historyTables = map[Kind]string{
	KindCreate: "entry_create_history",
	KindUpdate: "entry_update_history",
	KindDelete: "entry_delete_history",
}

// historyRepository implements HistoryRepository with hand-written MariaDB
// queries. The table name is interpolated from the fixed map above, never
// from user input.
type historyRepository struct{}

// NewHistoryRepository creates a new daily-limit history repository.
func NewHistoryRepository() HistoryRepository {
	return &historyRepository{}
}

func (r *historyRepository) CountInWindow(ctx context.Context, q DBTX, kind Kind, userID string, start, end time.Time) (int, error) {
	table, ok := historyTables[kind]
	if !ok {
		return 0, fmt.Errorf("unknown history kind %q", kind)
	}

	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE user_id = ? AND occurred_at >= ? AND occurred_at < ?`,
		table,
	)

	var count int
	err := q.QueryRowContext(ctx, query, userID, start.UTC(), end.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting %s history: %w", kind, err)
	}

	return count, nil
}

func (r *historyRepository) Mark(ctx context.Context, q DBTX, kind Kind, userID, entryID string, occurredAt time.Time) error {
	table, ok := historyTables[kind]
	if !ok {
		return fmt.Errorf("unknown history kind %q", kind)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (user_id, entry_id, occurred_at) VALUES (?, ?, ?)`,
		table,
	)

	if _, err := q.ExecContext(ctx, query, userID, entryID, occurredAt.UTC()); err != nil {
		return fmt.Errorf("recording %s history: %w", kind, err)
	}

	return nil
}

func (r *historyRepository) ListRecent(ctx context.Context, q DBTX, kind Kind, userID string, limit int) ([]Event, error) {
	table, ok := historyTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown history kind %q", kind)
	}

	query := fmt.Sprintf(
		`SELECT id, user_id, entry_id, occurred_at FROM %s
		 WHERE user_id = ? ORDER BY occurred_at DESC LIMIT ?`,
		table,
	)

	rows, err := q.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing %s history: %w", kind, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.EntryID, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning %s history row: %w", kind, err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
