package models

import "time"

// TimeLayout is the fixed-width UTC layout used for TEXT time columns, so
// that string comparison in SQL matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}
