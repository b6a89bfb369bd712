// Package seed fills an account with demo journal entries for development
// and screenshots. Seeded entries go through the journal service's bypass
// path, so they consume no daily budgets and leave no history events.
//
// The seed route is only registered when the server runs in development
// mode.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/daybook-app/daybook/internal/apperror"
	"github.com/daybook-app/daybook/internal/plugins/journal"
)

const (
	seedEntryCount = 20
	seedSpanDays   = 30
)

var seedMoods = []string{"Happy", "Sad", "Neutral", "Excited", "Anxious", "Calm"}

var seedTags = []string{"Work", "Personal", "Health", "Idea", "Reflection", "Travel"}

var seedBodies = []string{
	"<p>Spent the morning on a long walk and let my thoughts wander. The quiet helped more than I expected.</p>",
	"<p>Busy day at work. Shipped the feature I had been circling for a week, and the relief is real.</p>",
	"<p>Tried a new recipe tonight. It was a mess, but a fun one.</p>",
	"<p>Could not focus today. Wrote down three things that went well anyway.</p>",
	"<p>Caught up with an old friend over coffee. We talked for hours and it felt like no time had passed.</p>",
	"<p>Read a chapter before bed instead of scrolling. Small win.</p>",
	"<p>Long run this evening. Legs are sore, head is clear.</p>",
	"<p>Rainy day. Stayed in, sorted old photos, and felt unexpectedly nostalgic.</p>",
}

// Importer is the slice of the journal service the seeder needs: the
// bypass-mode create.
type Importer interface {
	Import(ctx context.Context, userID string, input journal.EntryInput) (*journal.EntryDetails, error)
}

// Service generates demo data.
type Service interface {
	// Seed creates demo entries for the user, spread over the last month.
	// Returns the number of entries created.
	Seed(ctx context.Context, userID string) (int, error)
}

type service struct {
	importer Importer
	now      func() time.Time
	rand     *rand.Rand
}

// NewService creates a seeding service.
func NewService(importer Importer) Service {
	return &service{
		importer: importer,
		now:      time.Now,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *service) Seed(ctx context.Context, userID string) (int, error) {
	now := s.now().UTC()
	created := 0

	for i := 0; i < seedEntryCount; i++ {
		date := now.AddDate(0, 0, -s.rand.Intn(seedSpanDays))
		mood := seedMoods[s.rand.Intn(len(seedMoods))]

		input := journal.EntryInput{
			Title:       fmt.Sprintf("Journal entry %d", i+1),
			Content:     seedBodies[s.rand.Intn(len(seedBodies))],
			PrimaryMood: mood,
			EntryDate:   date.Format("2006-01-02"),
			Tags:        s.pickTags(),
			SecondaryMoods: []string{
				seedMoods[s.rand.Intn(len(seedMoods))],
			},
		}

		if _, err := s.importer.Import(ctx, userID, input); err != nil {
			return created, apperror.NewInternal(fmt.Errorf("seeding entry %d: %w", i+1, err))
		}
		created++
	}

	slog.Info("seeded demo entries",
		slog.String("user_id", userID),
		slog.Int("count", created),
	)

	return created, nil
}

// pickTags returns one or two distinct tags.
func (s *service) pickTags() []string {
	first := s.rand.Intn(len(seedTags))
	tags := []string{seedTags[first]}
	if s.rand.Intn(2) == 0 {
		second := (first + 1 + s.rand.Intn(len(seedTags)-1)) % len(seedTags)
		tags = append(tags, seedTags[second])
	}
	return tags
}
