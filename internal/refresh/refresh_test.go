package refresh

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"crewcal/internal/config"
	"crewcal/internal/dates"
	"crewcal/internal/ics"
)

type stubFetcher struct {
	bodies map[string]string
}

func (s *stubFetcher) FetchAll(_ context.Context, sources []ics.Source) ([]ics.FetchResult, []error) {
	var out []ics.FetchResult
	var errs []error
	for _, src := range sources {
		body, ok := s.bodies[src.ID]
		if !ok {
			errs = append(errs, errors.New(src.ID+": unreachable"))
			continue
		}
		out = append(out, ics.FetchResult{Source: src, Body: []byte(body)})
	}
	return out, errs
}

func feed(lines ...string) string {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//crewcal//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return strings.Join(all, "\r\n")
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.HorizonWeeks = 1
	cfg.Feeds = []config.FeedConfig{
		{ID: "news", URL: "https://example.com/news.ics", Kind: "announcement"},
		{ID: "down", URL: "https://example.com/down.ics", Kind: "training"},
		{ID: "nourl"},
	}
	return cfg
}

func TestRefreshKeepsEventsInHorizon(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{
		"news": feed(
			"BEGIN:VEVENT", "UID:near", "DTSTART:20260305T150000Z", "SUMMARY:Health inspection", "END:VEVENT",
			"BEGIN:VEVENT", "UID:far", "DTSTART:20260601T150000Z", "SUMMARY:Summer menu", "END:VEVENT",
		),
	}}
	clock := dates.FixedClock(time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC), time.UTC)
	r := New(testConfig(), f, clock)

	err := r.Refresh(context.Background())
	if err == nil || !strings.Contains(err.Error(), "down: unreachable") {
		t.Fatalf("Refresh err = %v, want the failing feed reported", err)
	}

	events := r.Events()
	if len(events) != 1 || events[0].Title != "Health inspection" {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Kind != "announcement" || events[0].SourceID != "news" {
		t.Fatalf("event metadata = %+v", events[0])
	}
	if r.UpdatedAt().IsZero() {
		t.Fatal("UpdatedAt not set")
	}
}

func TestEventsBetweenExpandsPastHorizon(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{
		"news": feed(
			"BEGIN:VEVENT", "UID:standup", "DTSTART:20260305T150000Z", "DTEND:20260305T153000Z",
			"RRULE:FREQ=WEEKLY", "SUMMARY:Line check", "END:VEVENT",
			"BEGIN:VEVENT", "UID:far", "DTSTART:20260601T150000Z", "SUMMARY:Summer menu", "END:VEVENT",
		),
	}}
	clock := dates.FixedClock(time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC), time.UTC)
	r := New(testConfig(), f, clock)

	if got := r.EventsBetween(dates.Of(2026, time.June, 1), dates.Of(2026, time.June, 7)); len(got) != 0 {
		t.Fatalf("before first refresh = %+v", got)
	}
	_ = r.Refresh(context.Background())

	// 2026-02-22 .. 2026-03-14 is the refreshed horizon.
	if got := r.EventsBetween(dates.Of(2026, time.March, 1), dates.Of(2026, time.March, 7)); len(got) != len(r.Events()) {
		t.Fatalf("in horizon = %d spans, want the snapshot (%d)", len(got), len(r.Events()))
	}

	got := r.EventsBetween(dates.Of(2026, time.June, 1), dates.Of(2026, time.June, 7))
	titles := map[string]string{}
	for _, ev := range got {
		titles[*ev.StartDateTime] = ev.Title
	}
	want := map[string]string{
		"2026-06-01T15:00:00Z": "Summer menu",
		"2026-06-04T15:00:00Z": "Line check",
	}
	if len(titles) != len(want) {
		t.Fatalf("June week = %v, want %v", titles, want)
	}
	for start, title := range want {
		if titles[start] != title {
			t.Errorf("%s = %q, want %q", start, titles[start], title)
		}
	}
}

func TestRunRejectsBadSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshCron = "every now and then"
	r := New(cfg, &stubFetcher{}, dates.SystemClock(time.UTC))
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error for bad cron spec")
	}
}

func TestValidateSchedule(t *testing.T) {
	for _, spec := range []string{"*/15 * * * *", "@hourly", "0 6 * * 1-5"} {
		if err := ValidateSchedule(spec); err != nil {
			t.Errorf("ValidateSchedule(%q) = %v", spec, err)
		}
	}
	for _, spec := range []string{"", "every now and then", "61 * * * *", "* * * * * *"} {
		if err := ValidateSchedule(spec); err == nil {
			t.Errorf("ValidateSchedule(%q) = nil, want error", spec)
		}
	}
}

func TestRunRefreshesImmediatelyAndStops(t *testing.T) {
	f := &stubFetcher{bodies: map[string]string{"news": feed()}}
	r := New(testConfig(), f, dates.SystemClock(time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for r.UpdatedAt().IsZero() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if r.UpdatedAt().IsZero() {
		t.Fatal("Run did not refresh on start")
	}
}
