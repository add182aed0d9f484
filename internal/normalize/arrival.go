package normalize

import (
	"strings"
	"time"
)

// timeLayouts accepted for the free-text arrival time field when combining it
// with the arrival date for submission.
var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"15.04",
}

// CombineArrival joins the ISO arrival date with the free-text time into a
// single UTC timestamp for the planner core boundary.  The time component
// defaults to midnight when absent or unparseable; ok is false when the date
// itself is missing or not an ISO calendar date, in which case no timestamp
// is submitted.
func CombineArrival(arrivalDate, timeText string) (time.Time, bool) {
	d := strings.TrimSpace(arrivalDate)
	if d == "" {
		return time.Time{}, false
	}
	day, err := time.Parse("2006-01-02", d)
	if err != nil {
		return time.Time{}, false
	}
	hour, min, sec := 0, 0, 0
	tt := strings.TrimSpace(strings.ToUpper(timeText))
	for _, layout := range timeLayouts {
		if clock, err := time.Parse(layout, tt); err == nil {
			hour, min, sec = clock.Hour(), clock.Minute(), clock.Second()
			break
		}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, sec, 0, time.UTC), true
}

// SplitArrival is the inverse boundary conversion: a UTC timestamp from the
// planner core becomes the separate date and time fields the grid displays.
// Midnight maps back to an empty time field.
func SplitArrival(ts time.Time) (arrivalDate, timeText string) {
	if ts.IsZero() {
		return "", ""
	}
	ts = ts.UTC()
	arrivalDate = ts.Format("2006-01-02")
	if ts.Hour() != 0 || ts.Minute() != 0 || ts.Second() != 0 {
		timeText = ts.Format("15:04")
	}
	return arrivalDate, timeText
}
