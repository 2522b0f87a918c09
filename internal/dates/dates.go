// Package dates holds the calendar-day arithmetic used by the week strip and
// month grid. A Day carries no time of day and no zone; converting a timestamp
// into a Day always happens against an explicit *time.Location.
package dates

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDay is returned by ParseDay for anything that is not YYYY-MM-DD.
var ErrInvalidDay = errors.New("dates: invalid day")

const dayLayout = "2006-01-02"

// GridDays is the fixed size of a month grid (6 rows x 7 columns).
const GridDays = 42

// Day is a calendar day. Two Days are equal iff year, month and day-of-month
// match, so == can be used directly.
type Day struct {
	Year  int
	Month time.Month
	Dom   int
}

// Of builds a Day, normalizing overflow the same way time.Date does.
func Of(year int, month time.Month, dom int) Day {
	return fromUTC(time.Date(year, month, dom, 0, 0, 0, 0, time.UTC))
}

// FromTime truncates t to its calendar day as seen in loc. A nil loc means
// time.Local.
func FromTime(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Dom: d}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return fromUTC(t), nil
}

func fromUTC(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Dom: d}
}

// utc is the Day at UTC midnight. Arithmetic runs in UTC so DST transitions in
// the display zone can never shift a day.
func (d Day) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Dom, 0, 0, 0, 0, time.UTC)
}

// Midnight returns the start of d in loc.
func (d Day) Midnight(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Dom, 0, 0, 0, 0, loc)
}

// Weekday returns the day of the week d falls on.
func (d Day) Weekday() time.Weekday { return d.utc().Weekday() }

// String formats d as YYYY-MM-DD.
func (d Day) String() string { return d.utc().Format(dayLayout) }

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool { return d == Day{} }

// Compare returns -1, 0 or +1.
func (d Day) Compare(o Day) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Dom, o.Dom)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Before reports whether d is earlier than o.
func (d Day) Before(o Day) bool { return d.Compare(o) < 0 }

// After reports whether d is later than o.
func (d Day) After(o Day) bool { return d.Compare(o) > 0 }

// MarshalText encodes d as YYYY-MM-DD.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a YYYY-MM-DD day.
func (d *Day) UnmarshalText(b []byte) error {
	p, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = p
	return nil
}

// AddDays shifts d by n calendar days.
func (d Day) AddDays(n int) Day { return fromUTC(d.utc().AddDate(0, 0, n)) }

// AddWeeks shifts d by n whole weeks.
func AddWeeks(d Day, n int) Day { return d.AddDays(7 * n) }

// AddMonths shifts by n calendar months. Day-of-month overflow rolls into the
// following month (Jan 31 + 1 month is Mar 3, or Mar 2 in a leap year).
func AddMonths(d Day, n int) Day { return fromUTC(d.utc().AddDate(0, n, 0)) }

// WeekStart returns the Sunday on or before d. Weeks always start on Sunday.
func WeekStart(d Day) Day {
	return d.AddDays(-int(d.Weekday()))
}

// WeekDays returns the seven days Sun..Sat of the week containing d.
func WeekDays(d Day) [7]Day {
	var out [7]Day
	start := WeekStart(d)
	for i := range out {
		out[i] = start.AddDays(i)
	}
	return out
}

// MonthGrid returns six full weeks starting at the Sunday on or before the 1st
// of the month. The grid always has GridDays entries, even for months that fit
// in five rows.
func MonthGrid(year int, month time.Month) [GridDays]Day {
	var out [GridDays]Day
	start := WeekStart(Of(year, month, 1))
	for i := range out {
		out[i] = start.AddDays(i)
	}
	return out
}

// IsSameDay reports whether a and b are the same calendar day.
func IsSameDay(a, b Day) bool { return a == b }

// SameDay compares two timestamps by calendar day in loc; time of day is
// ignored.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return FromTime(a, loc) == FromTime(b, loc)
}

// IsInMonth reports whether d falls in the given month of year.
func IsInMonth(d Day, year int, month time.Month) bool {
	return d.Year == year && d.Month == month
}

// Clock supplies "now" and the zone that defines day boundaries.
type Clock struct {
	Location *time.Location
	// Now defaults to time.Now when nil.
	Now func() time.Time
}

// SystemClock uses the wall clock in loc (nil means time.Local).
func SystemClock(loc *time.Location) Clock {
	return Clock{Location: loc}
}

// FixedClock always reports t.
func FixedClock(t time.Time, loc *time.Location) Clock {
	return Clock{Location: loc, Now: func() time.Time { return t }}
}

func (c Clock) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Loc returns the clock's zone, never nil.
func (c Clock) Loc() *time.Location { return c.loc() }

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Today is the current calendar day in the clock's zone.
func (c Clock) Today() Day { return FromTime(c.now(), c.loc()) }

// IsToday reports whether d is Today.
func (c Clock) IsToday(d Day) bool { return IsSameDay(d, c.Today()) }
