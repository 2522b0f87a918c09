package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "crewcal/internal/log"
	"crewcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 1000

// spanNamespace seeds the name-based UUIDs given to expanded occurrences.
var spanNamespace = uuid.MustParse("8d7f6a3c-2b1e-4c55-9f0a-6e3d2c1b0a99")

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// Location is the display zone; nil means time.Local. All-day events are
	// pinned to midnight in this zone.
	Location *time.Location

	// Occurrences starting in [RangeStart, RangeEnd] are produced.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway rules; zero means the default.
	MaxOccurrencesPerEvent int
}

// Occurrence is one concrete instance of a feed event in the display zone.
type Occurrence struct {
	SourceID string
	UID      string
	// InstanceKey identifies the instance within its series.
	InstanceKey string

	Summary string
	Kind    model.Kind
	AllDay  bool

	Start time.Time
	// End is zero for events without DTEND.
	End time.Time
}

// ExpandResult lists occurrences sorted by start, plus the UIDs that hit the
// cap.
type ExpandResult struct {
	Occurrences     []Occurrence
	TruncatedEvents []string
}

// ExpandOccurrences turns parsed events into occurrences within the range,
// applying RRULE, EXDATE and RECURRENCE-ID overrides.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	type key struct{ source, uid string }
	var order []key
	bases := make(map[key][]ParsedEvent)
	overrides := make(map[key][]ParsedEvent)
	for _, ev := range events {
		k := key{ev.Source.ID, ev.UID}
		if ev.IsOverride() {
			overrides[k] = append(overrides[k], ev)
			continue
		}
		if _, seen := bases[k]; !seen {
			order = append(order, k)
		}
		bases[k] = append(bases[k], ev)
	}

	for _, k := range order {
		for _, ev := range bases[k] {
			occ, capped := expandEvent(ev, overrides[k], cfg)
			result.Occurrences = append(result.Occurrences, occ...)
			if capped {
				result.TruncatedEvents = append(result.TruncatedEvents, k.uid)
				appLog.Warn("expand: occurrence cap reached", "uid", k.uid, "cap", cfg.MaxOccurrencesPerEvent)
			}
		}
	}

	sort.SliceStable(result.Occurrences, func(i, j int) bool {
		return result.Occurrences[i].Start.Before(result.Occurrences[j].Start)
	})
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		start, end := ev.Start, ev.End
		src := ev
		if o, ok := findOverride(overrides, start); ok {
			src, start, end = o, o.Start, o.End
		}
		if !inRange(start, end, cfg) {
			return nil, false
		}
		return []Occurrence{makeOccurrence(src, ev.Start, start, end, cfg.Location)}, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by the event duration so instances that began
	// before the range but are still running are kept.
	dur := time.Duration(0)
	if !ev.End.IsZero() && ev.End.After(ev.Start) {
		dur = ev.End.Sub(ev.Start)
	}
	loc := ev.Start.Location()
	starts := set.Between(cfg.RangeStart.Add(-dur).In(loc), cfg.RangeEnd.In(loc), true)

	capped := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		capped = true
	}

	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		var e time.Time
		if !ev.End.IsZero() {
			e = s.Add(dur)
		}
		src, start, end := ev, s, e
		if o, ok := findOverride(overrides, s); ok {
			src, start, end = o, o.Start, o.End
		}
		out = append(out, makeOccurrence(src, s, start, end, cfg.Location))
	}
	return out, capped
}

func inRange(start, end time.Time, cfg ExpandConfig) bool {
	if end.IsZero() || end.Before(start) {
		end = start
	}
	return !end.Before(cfg.RangeStart) && !start.After(cfg.RangeEnd)
}

func findOverride(overrides []ParsedEvent, instance time.Time) (ParsedEvent, bool) {
	for _, o := range overrides {
		if o.Recurrence != nil && o.Recurrence.Equal(instance) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

// makeOccurrence builds an occurrence of series instance `instance` with the
// (possibly overridden) content of ev.
func makeOccurrence(ev ParsedEvent, instance, start, end time.Time, loc *time.Location) Occurrence {
	if ev.AllDay {
		start = pinDate(start, loc)
		if !end.IsZero() {
			end = pinDate(end, loc)
		}
	} else {
		start = start.In(loc)
		if !end.IsZero() {
			end = end.In(loc)
		}
	}
	return Occurrence{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		InstanceKey: instance.UTC().Format(time.RFC3339),
		Summary:     ev.Summary,
		Kind:        ev.Kind,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
	}
}

// pinDate keeps the calendar date of t and moves it to midnight in loc.
func pinDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ToSpans converts occurrences into calendar spans. IDs are stable across
// refreshes. All-day DTEND is exclusive, so the span ends one second earlier
// on its last covered day.
func ToSpans(occs []Occurrence) []model.EventSpan {
	out := make([]model.EventSpan, 0, len(occs))
	for _, o := range occs {
		start := o.Start.Format(time.RFC3339)
		span := model.EventSpan{
			ID:            uuid.NewSHA1(spanNamespace, []byte(o.SourceID+"\x00"+o.UID+"\x00"+o.InstanceKey)).String(),
			SourceID:      o.SourceID,
			Title:         o.Summary,
			Kind:          o.Kind,
			StartDateTime: &start,
		}
		if !o.End.IsZero() {
			end := o.End
			if o.AllDay && end.After(o.Start) {
				end = end.Add(-time.Second)
			}
			s := end.Format(time.RFC3339)
			span.EndDateTime = &s
		}
		out = append(out, span)
	}
	return out
}
