// Package journal owns journal entries and their attached tags and secondary
// moods. All reads and writes are scoped to the owning user; soft-deleted
// entries are invisible to every normal read. Mutations consume the daily
// budgets enforced by the dailylimit plugin, checked and recorded inside the
// same database transaction as the mutation itself.
package journal

import (
	"strings"
	"time"
)

// entryDateFormat is the wire and storage format for entry dates.
const entryDateFormat = "2006-01-02"

// Entry is a single journal record for one calendar day. The owning user
// never changes after creation. IsDeleted marks a soft delete: the row stays
// in the database but is filtered out of every read.
type Entry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"` // Sanitized HTML from the rich-text editor.
	PrimaryMood string    `json:"primary_mood"`
	EntryDate   time.Time `json:"entry_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	IsDeleted   bool      `json:"-"`
}

// Tag is a free-text label on an entry. Tags are fully replaced on every
// entry update -- there is no tag update-in-place. The user id is
// denormalized from the entry for query convenience.
type Tag struct {
	ID      int64  `json:"id"`
	EntryID string `json:"entry_id"`
	UserID  string `json:"-"`
	Name    string `json:"name"`
}

// SecondaryMood is a supplementary mood label with a derived sentiment
// category. At most two per entry. Same replace-on-update lifecycle as Tag.
type SecondaryMood struct {
	ID       int64        `json:"id"`
	EntryID  string       `json:"entry_id"`
	UserID   string       `json:"-"`
	Name     string       `json:"name"`
	Category MoodCategory `json:"category"`
}

// MoodCategory is the sentiment classification of a mood label.
type MoodCategory string

const (
	CategoryPositive MoodCategory = "Positive"
	CategoryNegative MoodCategory = "Negative"
	CategoryNeutral  MoodCategory = "Neutral"
)

// moodCategories maps known mood labels (lowercased) to their sentiment.
// Unknown labels fall back to Neutral.
var moodCategories = map[string]MoodCategory{
	"happy":    CategoryPositive,
	"excited":  CategoryPositive,
	"calm":     CategoryPositive,
	"grateful": CategoryPositive,
	"proud":    CategoryPositive,
	"sad":      CategoryNegative,
	"anxious":  CategoryNegative,
	"angry":    CategoryNegative,
	"stressed": CategoryNegative,
	"tired":    CategoryNegative,
	"neutral":  CategoryNeutral,
}

// CategorizeMood derives the sentiment category for a mood label.
func CategorizeMood(name string) MoodCategory {
	if cat, ok := moodCategories[strings.ToLower(strings.TrimSpace(name))]; ok {
		return cat
	}
	return CategoryNeutral
}

// EntryDetails is an entry hydrated with its tags and secondary moods.
type EntryDetails struct {
	Entry
	Tags           []Tag           `json:"tags"`
	SecondaryMoods []SecondaryMood `json:"secondary_moods"`
}

// --- Request DTOs (bound from HTTP requests) ---

// EntryRequest holds the data submitted to create or update an entry.
type EntryRequest struct {
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	PrimaryMood    string   `json:"primary_mood"`
	EntryDate      string   `json:"entry_date"` // YYYY-MM-DD; empty means today.
	Tags           []string `json:"tags"`
	SecondaryMoods []string `json:"secondary_moods"`
}

// EntryInput is the service-level input for creating or updating an entry.
type EntryInput struct {
	Title          string
	Content        string
	PrimaryMood    string
	EntryDate      string
	Tags           []string
	SecondaryMoods []string
}
