// Package refresh keeps the in-memory list of staff events current by
// re-reading the configured ICS feeds on a cron schedule.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"crewcal/internal/config"
	"crewcal/internal/dates"
	"crewcal/internal/ics"
	appLog "crewcal/internal/log"
	"crewcal/internal/model"
)

// Fetcher is the part of ics.Fetcher the refresher needs.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []ics.Source) ([]ics.FetchResult, []error)
}

// Refresher owns the current event snapshot.
type Refresher struct {
	sources      []ics.Source
	fetcher      Fetcher
	clock        dates.Clock
	horizonWeeks int
	spec         string

	mu         sync.RWMutex
	parsed     []ics.ParsedEvent
	events     []model.EventSpan
	rangeStart time.Time
	rangeEnd   time.Time
	updatedAt  time.Time
}

// New builds a Refresher for every feed in cfg.
func New(cfg *config.Config, fetcher Fetcher, clock dates.Clock) *Refresher {
	sources := make([]ics.Source, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		if f.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: f.ID, URL: f.URL, Kind: model.Kind(f.Kind)})
	}
	return &Refresher{
		sources:      sources,
		fetcher:      fetcher,
		clock:        clock,
		horizonWeeks: cfg.HorizonWeeks,
		spec:         cfg.RefreshCron,
		events:       []model.EventSpan{},
	}
}

// Events returns the latest snapshot. Callers must not modify it.
func (r *Refresher) Events() []model.EventSpan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.events
}

// EventsBetween returns the spans touching the days from..to. Ranges inside
// the refreshed horizon come from the snapshot; anything else is expanded
// from the last fetched feeds, so navigating past the horizon still shows
// recurring events.
func (r *Refresher) EventsBetween(from, to dates.Day) []model.EventSpan {
	loc := r.clock.Loc()
	start := from.Midnight(loc)
	end := to.AddDays(1).Midnight(loc)

	r.mu.RLock()
	parsed, events := r.parsed, r.events
	covered := !r.updatedAt.IsZero() && !start.Before(r.rangeStart) && !end.After(r.rangeEnd)
	r.mu.RUnlock()

	if covered {
		return events
	}
	if len(parsed) == 0 {
		return []model.EventSpan{}
	}
	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		Location:   loc,
		RangeStart: start,
		RangeEnd:   end,
	})
	if err != nil {
		appLog.Error("refresh: expand window failed", err, "from", from, "to", to)
		return []model.EventSpan{}
	}
	return ics.ToSpans(expanded.Occurrences)
}

// UpdatedAt is when the snapshot was last replaced.
func (r *Refresher) UpdatedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updatedAt
}

// Refresh fetches, parses and expands every feed, then swaps the snapshot.
// Feeds that fail are skipped; the error joins their failures.
func (r *Refresher) Refresh(ctx context.Context) error {
	loc := r.clock.Loc()
	today := r.clock.Today()
	rangeStart := dates.AddWeeks(dates.WeekStart(today), -r.horizonWeeks).Midnight(loc)
	rangeEnd := dates.AddWeeks(dates.WeekStart(today), r.horizonWeeks+1).Midnight(loc)

	results, errs := r.fetcher.FetchAll(ctx, r.sources)

	var parsed []ics.ParsedEvent
	for _, res := range results {
		evs, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parsed = append(parsed, evs...)
	}

	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		Location:   loc,
		RangeStart: rangeStart,
		RangeEnd:   rangeEnd,
	})
	if err != nil {
		return fmt.Errorf("expand: %w", err)
	}
	spans := ics.ToSpans(expanded.Occurrences)

	r.mu.Lock()
	r.parsed = parsed
	r.events = spans
	r.rangeStart, r.rangeEnd = rangeStart, rangeEnd
	r.updatedAt = time.Now()
	r.mu.Unlock()

	appLog.Info("refresh: events updated",
		"sources", len(r.sources),
		"events", len(spans),
		"failed", len(errs),
		"range_start", rangeStart.Format(time.RFC3339),
		"range_end", rangeEnd.Format(time.RFC3339),
	)
	return errors.Join(errs...)
}

// ValidateSchedule checks spec with the same parser Run uses.
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	return nil
}

// Run refreshes once, then on every tick of the cron spec until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(r.clock.Loc()))
	if _, err := c.AddFunc(r.spec, func() { r.refreshLogged(ctx) }); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", r.spec, err)
	}

	r.refreshLogged(ctx)
	c.Start()
	appLog.Info("refresh: scheduler started", "spec", r.spec, "timezone", r.clock.Loc().String())

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("refresh: scheduler stopped")
	return nil
}

func (r *Refresher) refreshLogged(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		appLog.Error("refresh: some feeds failed", err)
	}
}
