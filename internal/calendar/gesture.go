package calendar

import "math"

// Direction is the outcome of a finished drag.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionNext
	DirectionPrevious
)

func (d Direction) String() string {
	switch d {
	case DirectionNext:
		return "next"
	case DirectionPrevious:
		return "previous"
	}
	return "none"
}

// DefaultSwipeThreshold is the horizontal distance, in points, a drag has to
// cover before it commits a navigation step.
const DefaultSwipeThreshold = 50.0

// SwipeTracker turns horizontal drags into at most one navigation step. While
// a drag is in progress only the visual offset moves.
type SwipeTracker struct {
	Threshold float64

	offset   float64
	dragging bool
}

// NewSwipeTracker returns a tracker; a non-positive threshold means
// DefaultSwipeThreshold.
func NewSwipeTracker(threshold float64) *SwipeTracker {
	if threshold <= 0 {
		threshold = DefaultSwipeThreshold
	}
	return &SwipeTracker{Threshold: threshold}
}

// OnDragUpdate records the current translation dx of an active drag.
func (s *SwipeTracker) OnDragUpdate(dx float64) {
	s.dragging = true
	s.offset = dx
}

// Offset is the translation the strip should be drawn at right now. It is
// zero when no drag is active.
func (s *SwipeTracker) Offset() float64 { return s.offset }

// Dragging reports whether a drag is in progress.
func (s *SwipeTracker) Dragging() bool { return s.dragging }

// OnDragEnd finishes the drag at total translation dx. Swiping left (dx < 0)
// moves forward. Below the threshold nothing is committed and the strip
// springs back to zero. The result is a single step however far dx goes.
func (s *SwipeTracker) OnDragEnd(dx float64) Direction {
	s.dragging = false
	s.offset = 0

	threshold := s.Threshold
	if threshold <= 0 {
		threshold = DefaultSwipeThreshold
	}
	if math.IsNaN(dx) || math.Abs(dx) < threshold {
		return DirectionNone
	}
	if dx < 0 {
		return DirectionNext
	}
	return DirectionPrevious
}
