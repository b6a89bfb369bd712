// Package dailylimit enforces the once-per-calendar-day budget on journal
// mutations: one create, one update, and one delete per user per day. Each
// consumed action is recorded as a history event; the budget is "used" when
// an event of that kind exists inside today's window.
//
// Day boundaries follow a single configured timezone for the whole process,
// so a budget never silently resets when a request arrives from a different
// zone.
package dailylimit

import (
	"time"
)

// Kind identifies which daily budget an action consumes. Each kind has its
// own history table and its own independent once-per-day allowance.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Event is one consumed daily action, as recorded in a history table.
// Events are append-only: they survive entry deletion and even entry purge
// is only done by full account removal.
type Event struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	EntryID    string    `json:"entry_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Status reports the remaining budget for today. Served by GET /api/v1/limits
// so clients can disable buttons before the user runs into a 429.
type Status struct {
	Date      string    `json:"date"` // Today in the limit timezone, YYYY-MM-DD.
	CanCreate bool      `json:"can_create"`
	CanUpdate bool      `json:"can_update"`
	CanDelete bool      `json:"can_delete"`
	ResetsAt  time.Time `json:"resets_at"` // Start of the next day.
}

// Activity groups a user's most recent history events by kind, newest
// first within each slice. Served by GET /api/v1/limits/history.
type Activity struct {
	Create []Event `json:"create"`
	Update []Event `json:"update"`
	Delete []Event `json:"delete"`
}

// DayWindow returns the half-open interval [start, end) covering the
// calendar day that contains now in the given location. Events with
// occurred_at inside this window count against today's budget.
func DayWindow(now time.Time, loc *time.Location) (start, end time.Time) {
	local := now.In(loc)
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end = start.AddDate(0, 0, 1)
	return start, end
}
