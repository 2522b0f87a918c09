package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "crewcal/internal/log"
	"crewcal/internal/model"
)

// ParsedEvent is one VEVENT from a staff feed, before recurrence expansion.
type ParsedEvent struct {
	Source Source

	UID     string
	Summary string
	Kind    model.Kind

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID of an overridden instance
}

// IsOverride reports whether the event replaces one instance of a series.
func (e ParsedEvent) IsOverride() bool { return e.Recurrence != nil }

// ParseICS parses one feed body. Broken VEVENTs are logged and skipped;
// cancelled ones are dropped.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse %s: %w", src.ID, err)
	}

	events := make([]ParsedEvent, 0)
	skipped := 0
	for _, ve := range cal.Events() {
		if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
			skipped++
			continue
		}
		ev, perr := parseVEvent(src, ve)
		if perr != nil {
			appLog.Error("ics: skipping vevent", perr, "source", src.ID)
			skipped++
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics: parsed feed", "source", src.ID, "events", len(events), "skipped", skipped)
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{Source: src, Kind: src.Kind}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		if k, ok := kindFromCategories(p.Value); ok {
			out.Kind = k
		}
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	var err error
	if out.AllDay {
		out.Start, err = ve.GetAllDayStartAt()
	} else {
		out.Start, err = ve.GetStartAt()
	}
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}

	if ve.GetProperty(ical.ComponentPropertyDtEnd) != nil {
		if out.AllDay {
			out.End, err = ve.GetAllDayEndAt()
		} else {
			out.End, err = ve.GetEndAt()
		}
		if err != nil {
			return out, fmt.Errorf("DTEND: %w", err)
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, out.Start.Location()); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		if t, err := parseICSTime(p.Value, out.Start.Location()); err == nil {
			out.Recurrence = &t
		}
	}

	return out, nil
}

// isDateValue detects VALUE=DATE or a bare YYYYMMDD value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func kindFromCategories(v string) (model.Kind, bool) {
	for _, c := range strings.Split(v, ",") {
		switch k := model.Kind(strings.ToLower(strings.TrimSpace(c))); k {
		case model.KindAnnouncement, model.KindChecklist, model.KindTraining, model.KindShift:
			return k, true
		}
	}
	return "", false
}

// parseICSTime handles the DATE, floating DATE-TIME and UTC forms used by
// EXDATE and RECURRENCE-ID. Floating values are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if loc == nil {
		loc = time.Local
	}
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
