package calendar

import (
	"sync"

	"crewcal/internal/dates"
)

// ToggleSelection returns the selection after tapping day: nil if day was
// already selected, otherwise day.
func ToggleSelection(current *dates.Day, tapped dates.Day) *dates.Day {
	if current != nil && *current == tapped {
		return nil
	}
	d := tapped
	return &d
}

// Selection is the host-owned selected day shared by every calendar view of a
// screen. OnChange, if set, is called after every change with the new value.
type Selection struct {
	mu       sync.RWMutex
	day      *dates.Day
	OnChange func(day *dates.Day)
}

// Selected returns the selected day, if any.
func (s *Selection) Selected() (dates.Day, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.day == nil {
		return dates.Day{}, false
	}
	return *s.day, true
}

// Ptr returns a copy of the selection as a pointer (nil when empty).
func (s *Selection) Ptr() *dates.Day {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.day == nil {
		return nil
	}
	d := *s.day
	return &d
}

// Toggle applies a tap on day and returns the new selection.
func (s *Selection) Toggle(day dates.Day) *dates.Day {
	s.mu.Lock()
	s.day = ToggleSelection(s.day, day)
	var next *dates.Day
	if s.day != nil {
		d := *s.day
		next = &d
	}
	s.mu.Unlock()

	s.emit(next)
	return next
}

// Clear drops the selection so the host shows its top events.
func (s *Selection) Clear() {
	s.mu.Lock()
	s.day = nil
	s.mu.Unlock()

	s.emit(nil)
}

func (s *Selection) emit(day *dates.Day) {
	if s.OnChange != nil {
		s.OnChange(day)
	}
}
