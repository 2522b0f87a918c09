package calendar

import (
	"errors"
	"strings"
	"time"

	"crewcal/internal/dates"
	appLog "crewcal/internal/log"
	"crewcal/internal/model"
)

// Offset-less layouts are read in the display location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp reads an event timestamp. RFC 3339 values keep their offset
// and are converted into loc; values without an offset are wall time in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	var lastErr error
	for _, layout := range localLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// EventCoversDay reports whether an event is active on day. A nil start never
// matches. A nil end makes the event single-day. Otherwise the inclusive range
// of calendar days [start, end] is tested, ignoring time of day.
func EventCoversDay(start, end *time.Time, day dates.Day, loc *time.Location) bool {
	if start == nil {
		return false
	}
	startDay := dates.FromTime(*start, loc)
	if startDay == day {
		return true
	}
	if end == nil {
		return false
	}
	endDay := dates.FromTime(*end, loc)
	return !day.Before(startDay) && !day.After(endDay)
}

// Span is an EventSpan with its timestamps parsed.
type Span struct {
	ID    string
	Start *time.Time
	End   *time.Time
	loc   *time.Location
}

// Covers reports whether the span is active on day.
func (s Span) Covers(day dates.Day) bool {
	return EventCoversDay(s.Start, s.End, day, s.loc)
}

// ParseSpans parses every event once. An unparseable start drops the event from
// all days; an unparseable end is treated as absent.
func ParseSpans(events []model.EventSpan, loc *time.Location) []Span {
	if loc == nil {
		loc = time.Local
	}
	out := make([]Span, 0, len(events))
	for _, ev := range events {
		sp := Span{ID: ev.ID, loc: loc}
		if ev.StartDateTime != nil {
			t, err := ParseTimestamp(*ev.StartDateTime, loc)
			if err != nil {
				appLog.Debug("calendar: ignoring event with bad start", "id", ev.ID, "start", *ev.StartDateTime, "err", err)
			} else {
				sp.Start = &t
			}
		}
		if ev.EndDateTime != nil {
			t, err := ParseTimestamp(*ev.EndDateTime, loc)
			if err != nil {
				appLog.Debug("calendar: treating bad end as single-day", "id", ev.ID, "end", *ev.EndDateTime, "err", err)
			} else {
				sp.End = &t
			}
		}
		out = append(out, sp)
	}
	return out
}

// AnyCoversDay reports whether any span is active on day.
func AnyCoversDay(spans []Span, day dates.Day) bool {
	for _, sp := range spans {
		if sp.Covers(day) {
			return true
		}
	}
	return false
}

// EventsOn filters events down to those active on day, keeping their order.
func EventsOn(events []model.EventSpan, day dates.Day, loc *time.Location) []model.EventSpan {
	spans := ParseSpans(events, loc)
	out := make([]model.EventSpan, 0)
	for i, sp := range spans {
		if sp.Covers(day) {
			out = append(out, events[i])
		}
	}
	return out
}
