package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/daybook-app/daybook/internal/apperror"
	"github.com/daybook-app/daybook/internal/plugins/journal"
)

// EntryLister is the slice of the journal service the exporter needs.
type EntryLister interface {
	List(ctx context.Context, userID string) ([]journal.EntryDetails, error)
}

// Renderer turns an export envelope into a downloadable document. Adding a
// format (PDF, HTML) means implementing this and registering it in
// NewService -- nothing else changes.
type Renderer interface {
	Render(envelope *Envelope) ([]byte, error)
	ContentType() string
	FileExtension() string
}

// Service assembles and renders journal exports.
type Service interface {
	Export(ctx context.Context, userID, username, format string) (*Result, error)
}

type service struct {
	entries   EntryLister
	renderers map[string]Renderer
	now       func() time.Time
}

// NewService creates an export service with the built-in JSON and Markdown
// renderers.
func NewService(entries EntryLister) Service {
	return &service{
		entries: entries,
		renderers: map[string]Renderer{
			"json":     jsonRenderer{},
			"markdown": markdownRenderer{},
		},
		now: time.Now,
	}
}

// Export renders all of the user's live entries in the requested format.
func (s *service) Export(ctx context.Context, userID, username, format string) (*Result, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, apperror.NewBadRequest(fmt.Sprintf("unsupported export format %q", format))
	}

	entries, err := s.entries.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	envelope := &Envelope{
		Format:     envelopeFormat,
		Version:    envelopeVersion,
		ExportedAt: now,
		Username:   username,
		Entries:    entries,
	}

	content, err := renderer.Render(envelope)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("rendering %s export: %w", format, err))
	}

	return &Result{
		Content:     content,
		ContentType: renderer.ContentType(),
		Filename:    fmt.Sprintf("daybook-%s.%s", now.Format("2006-01-02"), renderer.FileExtension()),
	}, nil
}

// --- JSON renderer ---

type jsonRenderer struct{}

func (jsonRenderer) Render(envelope *Envelope) ([]byte, error) {
	return json.MarshalIndent(envelope, "", "  ")
}

func (jsonRenderer) ContentType() string   { return "application/json" }
func (jsonRenderer) FileExtension() string { return "json" }

// --- Markdown renderer ---

type markdownRenderer struct{}

// Render writes one section per entry: a title heading, a metadata line,
// tags, and the entry body converted from sanitized HTML to Markdown.
func (markdownRenderer) Render(envelope *Envelope) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Daybook Journal\n\n")
	fmt.Fprintf(&b, "Exported %s\n", envelope.ExportedAt.Format("2006-01-02"))

	for _, entry := range envelope.Entries {
		fmt.Fprintf(&b, "\n## %s\n\n", entry.Title)
		fmt.Fprintf(&b, "%s | Mood: %s", entry.EntryDate.Format("2006-01-02"), entry.PrimaryMood)
		for _, mood := range entry.SecondaryMoods {
			fmt.Fprintf(&b, ", %s", mood.Name)
		}
		b.WriteString("\n")

		if len(entry.Tags) > 0 {
			names := make([]string, 0, len(entry.Tags))
			for _, tag := range entry.Tags {
				names = append(names, tag.Name)
			}
			fmt.Fprintf(&b, "Tags: %s\n", strings.Join(names, ", "))
		}

		body, err := htmltomarkdown.ConvertString(entry.Content)
		if err != nil {
			return nil, fmt.Errorf("converting entry %s: %w", entry.ID, err)
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(body))
		b.WriteString("\n")
	}

	return []byte(b.String()), nil
}

func (markdownRenderer) ContentType() string   { return "text/markdown; charset=utf-8" }
func (markdownRenderer) FileExtension() string { return "md" }
