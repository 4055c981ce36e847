// Package timestamp converts provider epoch-second fields into store values.
// Absent inputs stay absent; nothing is ever coerced to the epoch.
package timestamp

import "time"

// Layout is ISO-8601 UTC with millisecond precision.
const Layout = "2006-01-02T15:04:05.000Z07:00"

// FromUnix converts epoch seconds to a UTC time. A nil input yields nil.
func FromUnix(sec *int64) *time.Time {
	if sec == nil {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}

// Format renders epoch seconds as an ISO-8601 string. A nil input yields nil.
func Format(sec *int64) *string {
	t := FromUnix(sec)
	if t == nil {
		return nil
	}
	s := t.Format(Layout)
	return &s
}
