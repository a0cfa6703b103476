package syncx

import (
	"fmt"
	"time"
)

// Layouts accepted from clients, tried in order. Naive layouts (no offset)
// are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp string. Timestamps without an
// offset are treated as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp: %q", s)
}

// ISO renders a time as an ISO-8601 / RFC3339 string in UTC.
func ISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ISOPtr renders a nullable time; nil stays nil so JSON snapshots keep the
// null, matching what clients sent.
func ISOPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ISO(*t)
}
