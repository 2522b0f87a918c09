// Package calendar implements the navigable week strip and month grid: which
// days are visible, which of them carry events, and how taps and swipes move
// the window and the selection.
package calendar

import (
	"sync"
	"time"

	"crewcal/internal/dates"
	appLog "crewcal/internal/log"
	"crewcal/internal/model"
)

// Haptics emits a short pulse after a navigation step. Failures are logged and
// never undo the step.
type Haptics interface {
	Pulse() error
}

// Highlight is the single visual state a cell is drawn with.
type Highlight string

const (
	HighlightNone     Highlight = "none"
	HighlightToday    Highlight = "today"
	HighlightSelected Highlight = "selected"
)

// Cell is everything the presentation layer needs for one visible day.
type Cell struct {
	Day        dates.Day `json:"date"`
	IsToday    bool      `json:"is_today"`
	IsSelected bool      `json:"is_selected"`
	HasEvent   bool      `json:"has_event"`
	// InMonth is false for the leading/trailing days of a month grid and
	// always true in week mode.
	InMonth bool `json:"in_month"`
}

// Highlight resolves today vs selected; an explicit selection hides the
// today ring.
func (c Cell) Highlight() Highlight {
	switch {
	case c.IsSelected:
		return HighlightSelected
	case c.IsToday:
		return HighlightToday
	}
	return HighlightNone
}

// Options configure a Navigator.
type Options struct {
	Mode           Mode
	Clock          dates.Clock
	SwipeThreshold float64
	Haptics        Haptics
}

// Navigator owns one calendar view's window. Each view has its own Navigator;
// nothing is shared between instances.
type Navigator struct {
	mu      sync.Mutex
	window  Window
	clock   dates.Clock
	swipe   *SwipeTracker
	haptics Haptics
}

// NewNavigator anchors a new view on today.
func NewNavigator(opts Options) *Navigator {
	return &Navigator{
		window:  NewWindow(opts.Mode, opts.Clock.Today()),
		clock:   opts.Clock,
		swipe:   NewSwipeTracker(opts.SwipeThreshold),
		haptics: opts.Haptics,
	}
}

// Window returns the current window.
func (n *Navigator) Window() Window {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.window
}

// Location is the zone that defines day boundaries for this view.
func (n *Navigator) Location() *time.Location { return n.clock.Loc() }

func (n *Navigator) Next() Window     { return n.move(DirectionNext) }
func (n *Navigator) Previous() Window { return n.move(DirectionPrevious) }

func (n *Navigator) move(dir Direction) Window {
	n.mu.Lock()
	switch dir {
	case DirectionNext:
		n.window = n.window.Next()
	case DirectionPrevious:
		n.window = n.window.Previous()
	default:
		w := n.window
		n.mu.Unlock()
		return w
	}
	w := n.window
	n.mu.Unlock()

	appLog.Debug("calendar: moved", "mode", w.Mode, "direction", dir, "anchor", w.Anchor)
	n.pulse()
	return w
}

func (n *Navigator) pulse() {
	if n.haptics == nil {
		return
	}
	if err := n.haptics.Pulse(); err != nil {
		appLog.Error("calendar: haptic pulse failed", err)
	}
}

// DragUpdate forwards an in-progress drag. The window never moves here.
func (n *Navigator) DragUpdate(dx float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.swipe.OnDragUpdate(dx)
}

// DragOffset is the current visual translation of the strip.
func (n *Navigator) DragOffset() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.swipe.Offset()
}

// DragEnd completes a drag and performs at most one step.
func (n *Navigator) DragEnd(dx float64) Direction {
	n.mu.Lock()
	dir := n.swipe.OnDragEnd(dx)
	n.mu.Unlock()

	n.move(dir)
	return dir
}

// Tap routes a tap on day to the host's selection.
func (n *Navigator) Tap(sel *Selection, day dates.Day) *dates.Day {
	return sel.Toggle(day)
}

// Cells annotates every visible day. hasEvent is recomputed in full on every
// call.
func (n *Navigator) Cells(events []model.EventSpan, selected *dates.Day) []Cell {
	w := n.Window()
	return BuildCells(w, events, selected, n.clock)
}

// BuildCells annotates the days of w.
func BuildCells(w Window, events []model.EventSpan, selected *dates.Day, clock dates.Clock) []Cell {
	spans := ParseSpans(events, clock.Loc())
	today := clock.Today()

	days := w.Days()
	out := make([]Cell, len(days))
	for i, d := range days {
		out[i] = Cell{
			Day:        d,
			IsToday:    d == today,
			IsSelected: selected != nil && *selected == d,
			HasEvent:   AnyCoversDay(spans, d),
			InMonth:    w.Mode == ModeWeek || dates.IsInMonth(d, w.Anchor.Year, w.Anchor.Month),
		}
	}
	return out
}

// WeekdayHeaders returns the short weekday names Sun..Sat in locale.
func WeekdayHeaders(locale string) []string {
	out := make([]string, 7)
	for i, d := range dates.WeekDays(dates.Of(2026, time.March, 1)) {
		out[i] = dates.ShortDayName(d, locale)
	}
	return out
}
