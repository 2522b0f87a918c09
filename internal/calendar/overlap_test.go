package calendar

import (
	"testing"
	"time"

	"crewcal/internal/dates"
	"crewcal/internal/model"
)

var testLoc = time.FixedZone("Test", -6*3600)

func ts(t *testing.T, s string) *time.Time {
	t.Helper()
	v, err := ParseTimestamp(s, testLoc)
	if err != nil {
		t.Fatalf("ParseTimestamp(%q): %v", s, err)
	}
	return &v
}

func strp(s string) *string { return &s }

func TestEventCoversDayNoStart(t *testing.T) {
	t.Parallel()

	end := ts(t, "2026-03-12T01:00:00")
	for _, d := range []dates.Day{dates.Of(2026, 3, 10), dates.Of(2026, 3, 12)} {
		if EventCoversDay(nil, end, d, testLoc) {
			t.Fatalf("event without start matched %s", d)
		}
		if EventCoversDay(nil, nil, d, testLoc) {
			t.Fatalf("event without start or end matched %s", d)
		}
	}
}

func TestEventCoversDaySingleDay(t *testing.T) {
	t.Parallel()

	start := ts(t, "2026-03-10T14:00:00")
	if !EventCoversDay(start, nil, dates.Of(2026, 3, 10), testLoc) {
		t.Fatal("expected match on the start day")
	}
	if EventCoversDay(start, nil, dates.Of(2026, 3, 11), testLoc) {
		t.Fatal("single-day event matched the next day")
	}
}

func TestEventCoversDayMultiDayInclusive(t *testing.T) {
	t.Parallel()

	start := ts(t, "2026-03-10T23:00:00")
	end := ts(t, "2026-03-12T01:00:00")
	tests := []struct {
		day  dates.Day
		want bool
	}{
		{dates.Of(2026, 3, 9), false},
		{dates.Of(2026, 3, 10), true},
		{dates.Of(2026, 3, 11), true},
		{dates.Of(2026, 3, 12), true},
		{dates.Of(2026, 3, 13), false},
	}
	for _, tt := range tests {
		if got := EventCoversDay(start, end, tt.day, testLoc); got != tt.want {
			t.Errorf("EventCoversDay(%s) = %v, want %v", tt.day, got, tt.want)
		}
	}
}

func TestEventCoversDayInvertedRangeOnlyStartDay(t *testing.T) {
	t.Parallel()

	start := ts(t, "2026-03-12T09:00:00")
	end := ts(t, "2026-03-10T09:00:00")
	for _, d := range []dates.Day{dates.Of(2026, 3, 10), dates.Of(2026, 3, 11), dates.Of(2026, 3, 13)} {
		if EventCoversDay(start, end, d, testLoc) {
			t.Errorf("inverted range matched %s", d)
		}
	}
	if !EventCoversDay(start, end, dates.Of(2026, 3, 12), testLoc) {
		t.Error("inverted range must still match its start day")
	}
}

func TestParseTimestampConvertsOffsets(t *testing.T) {
	t.Parallel()

	// 03:00Z is still the previous evening six hours west.
	v := ts(t, "2026-03-11T03:00:00Z")
	if got := dates.FromTime(*v, testLoc); got != dates.Of(2026, 3, 10) {
		t.Fatalf("day = %s, want 2026-03-10", got)
	}
	for _, s := range []string{"2026-03-10", "2026-03-10T14:00", "2026-03-10 14:00:00", "2026-03-10T14:00:00.250"} {
		v := ts(t, s)
		if got := dates.FromTime(*v, testLoc); got != dates.Of(2026, 3, 10) {
			t.Errorf("%q parsed to day %s", s, got)
		}
	}
	if _, err := ParseTimestamp("next tuesday", testLoc); err == nil {
		t.Fatal("expected error for garbage")
	}
}

func TestParseSpansMalformedTimestamps(t *testing.T) {
	t.Parallel()

	events := []model.EventSpan{
		{ID: "bad-start", StartDateTime: strp("garbage"), EndDateTime: strp("2026-03-12T00:00:00")},
		{ID: "bad-end", StartDateTime: strp("2026-03-10T08:00:00"), EndDateTime: strp("soon")},
	}
	spans := ParseSpans(events, testLoc)
	if len(spans) != 2 {
		t.Fatalf("got %d spans", len(spans))
	}
	if spans[0].Covers(dates.Of(2026, 3, 11)) || spans[0].Covers(dates.Of(2026, 3, 12)) {
		t.Fatal("event with unparseable start must never match")
	}
	if !spans[1].Covers(dates.Of(2026, 3, 10)) || spans[1].Covers(dates.Of(2026, 3, 11)) {
		t.Fatal("event with unparseable end must behave as single-day")
	}
}

func TestEventsOnKeepsOrder(t *testing.T) {
	t.Parallel()

	events := []model.EventSpan{
		{ID: "a", StartDateTime: strp("2026-03-09T10:00:00"), EndDateTime: strp("2026-03-11T10:00:00")},
		{ID: "b", StartDateTime: strp("2026-03-12T10:00:00")},
		{ID: "c", StartDateTime: strp("2026-03-10T07:00:00")},
		{ID: "d"},
	}
	got := EventsOn(events, dates.Of(2026, 3, 10), testLoc)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("EventsOn = %+v", got)
	}
}
