// Package export produces downloadable snapshots of a user's journal.
// JSON and Markdown renderers ship built in; PDF output is a renderer
// implementation away, behind the same interface.
package export

import (
	"time"

	"github.com/daybook-app/daybook/internal/plugins/journal"
)

// envelopeFormat and envelopeVersion identify the export schema so future
// importers can detect what they are reading.
const (
	envelopeFormat  = "daybook-export-v1"
	envelopeVersion = 1
)

// Envelope is the top-level export document. Entries come fully hydrated
// with tags and secondary moods, most recent first.
type Envelope struct {
	Format     string                 `json:"format"`
	Version    int                    `json:"version"`
	ExportedAt time.Time              `json:"exported_at"`
	Username   string                 `json:"username"`
	Entries    []journal.EntryDetails `json:"entries"`
}

// Result is a rendered export ready to be written as a download.
type Result struct {
	Content     []byte
	ContentType string
	Filename    string
}
