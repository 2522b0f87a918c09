package main

import (
	"fmt"
	"io"
	"strings"

	"crewcal/internal/calendar"
	"crewcal/internal/model"
)

// printGrid writes the current window as text, one week per line. "[d]" is
// today, "<d>" the selection, "*" marks days with events and days outside the
// shown month are in parentheses.
func printGrid(w io.Writer, nav *calendar.Navigator, events []model.EventSpan, locale string) {
	win := nav.Window()
	fmt.Fprintln(w, win.Title(locale))

	var b strings.Builder
	for _, h := range calendar.WeekdayHeaders(locale) {
		fmt.Fprintf(&b, "%-6s", h)
	}
	fmt.Fprintln(w, strings.TrimRight(b.String(), " "))

	cells := nav.Cells(events, nil)
	for row := 0; row < len(cells); row += 7 {
		b.Reset()
		for _, c := range cells[row : row+7] {
			fmt.Fprintf(&b, "%-6s", cellLabel(c))
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}

func cellLabel(c calendar.Cell) string {
	label := fmt.Sprintf("%d", c.Day.Dom)
	switch c.Highlight() {
	case calendar.HighlightSelected:
		label = "<" + label + ">"
	case calendar.HighlightToday:
		label = "[" + label + "]"
	}
	if !c.InMonth {
		label = "(" + label + ")"
	}
	if c.HasEvent {
		label += "*"
	}
	return label
}
