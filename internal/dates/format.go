package dates

import "crewcal/internal/i18n"

// FormatMonthYear renders "Month YYYY" in locale. Unknown locales fall back to
// en-US.
func FormatMonthYear(d Day, locale string) string {
	return i18n.Default().MonthYear(locale, d.Year, d.Month)
}

// ShortDayName returns the abbreviated weekday of d in locale.
func ShortDayName(d Day, locale string) string {
	return i18n.Default().ShortWeekday(locale, d.Weekday())
}
