package bulkudp

import "time"

// ISO-8601 without a zone designator; the fraction is microseconds and is
// left out entirely when it is zero
const (
	timestampLayout         = "2006-01-02T15:04:05"
	timestampLayoutFraction = "2006-01-02T15:04:05.000000"
)

// formatTimestamp renders t in UTC for the `@timestamp` field, e.g.
// "2009-11-10T23:00:00.250000Z". The `Z` is appended, not formatted.
func formatTimestamp(t time.Time) string {
	t = t.UTC()

	layout := timestampLayout
	if t.Nanosecond()/int(time.Microsecond) != 0 {
		layout = timestampLayoutFraction
	}

	b := make([]byte, 0, len(timestampLayoutFraction)+1)
	b = t.AppendFormat(b, layout)
	return string(append(b, 'Z'))
}
