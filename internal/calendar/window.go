package calendar

import (
	"fmt"
	"strings"
	"time"

	"crewcal/internal/dates"
)

// Mode selects the week strip or the month grid.
type Mode int

const (
	ModeWeek Mode = iota
	ModeMonth
)

func (m Mode) String() string {
	if m == ModeMonth {
		return "month"
	}
	return "week"
}

// ParseMode accepts "week" or "month".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week":
		return ModeWeek, nil
	case "month":
		return ModeMonth, nil
	}
	return ModeWeek, fmt.Errorf("calendar: unknown view %q", s)
}

// Window is the block of days currently displayed. In week mode Anchor is a
// Sunday; in month mode it is the 1st of the month.
type Window struct {
	Mode   Mode
	Anchor dates.Day
}

// NewWindow anchors a window on the week or month containing today.
func NewWindow(mode Mode, today dates.Day) Window {
	if mode == ModeMonth {
		return Window{Mode: ModeMonth, Anchor: dates.Of(today.Year, today.Month, 1)}
	}
	return Window{Mode: ModeWeek, Anchor: dates.WeekStart(today)}
}

func (w Window) Next() Window     { return w.step(1) }
func (w Window) Previous() Window { return w.step(-1) }

func (w Window) step(n int) Window {
	if w.Mode == ModeMonth {
		w.Anchor = dates.AddMonths(w.Anchor, n)
	} else {
		w.Anchor = dates.AddWeeks(w.Anchor, n)
	}
	return w
}

// Year and Month name the month shown in month mode; in week mode they are
// the anchor Sunday's.
func (w Window) Year() int         { return w.Anchor.Year }
func (w Window) Month() time.Month { return w.Anchor.Month }

// Days returns 7 days in week mode and 42 in month mode.
func (w Window) Days() []dates.Day {
	if w.Mode == ModeMonth {
		g := dates.MonthGrid(w.Anchor.Year, w.Anchor.Month)
		return g[:]
	}
	d := dates.WeekDays(w.Anchor)
	return d[:]
}

// Contains reports whether day is one of the window's visible days.
func (w Window) Contains(day dates.Day) bool {
	days := w.Days()
	return !day.Before(days[0]) && !day.After(days[len(days)-1])
}

// Title is the "Month YYYY" heading for the window.
func (w Window) Title(locale string) string {
	return dates.FormatMonthYear(w.Anchor, locale)
}
