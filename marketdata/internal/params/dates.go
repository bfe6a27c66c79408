package params

import "time"

// DateLayout is the accepted calendar-date form. Month and day may omit the
// leading zero.
const DateLayout = "2006-1-2"

// canonicalDateLayout is what Encode emits.
const canonicalDateLayout = "2006-01-02"

// Relative-date keywords.
const (
	Today       = "TODAY"
	Trailing12M = "TRAILING_12M"
	Trailing6M  = "TRAILING_6M"
	Trailing20D = "TRAILING_20D"
)

// relativeDates resolves each keyword against the current UTC day.
var relativeDates = map[string]func(today time.Time) time.Time{
	Today:       func(d time.Time) time.Time { return d },
	Trailing12M: func(d time.Time) time.Time { return addMonths(d, -12) },
	Trailing6M:  func(d time.Time) time.Time { return addMonths(d, -6) },
	Trailing20D: func(d time.Time) time.Time { return d.AddDate(0, 0, -20) },
}

// startOfDay truncates t to midnight UTC.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// addMonths shifts t by n calendar months, clamping the day to the last day
// of the target month: 2024-08-31 minus 6 months is 2024-02-29, not 03-02.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func parseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, raw, time.UTC)
}
