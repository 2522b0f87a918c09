package model

// Kind classifies what a calendar entry is for staff.
type Kind string

const (
	KindAnnouncement Kind = "announcement"
	KindChecklist    Kind = "checklist"
	KindTraining     Kind = "training"
	KindShift        Kind = "shift"
)

// EventSpan is one schedulable item as the host screen supplies it to the
// calendar. Timestamps stay strings here; the calendar parses them against
// its own display timezone.
type EventSpan struct {
	// ID is unique among the events handed to one calendar.
	ID       string `json:"id"`
	SourceID string `json:"source_id,omitempty"`
	Title    string `json:"title"`
	Kind     Kind   `json:"kind,omitempty"`

	// StartDateTime nil means the event never shows on any day.
	StartDateTime *string `json:"start_date_time"`
	// EndDateTime nil means a single-day event on the start day.
	EndDateTime *string `json:"end_date_time"`
}
