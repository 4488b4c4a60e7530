// Package timestamp converts heterogeneous exchange timestamp representations
// into one fixed-precision UTC string form.
package timestamp

import (
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical lexical form: UTC, millisecond precision, sortable
// as a plain string.
const Layout = "2006-01-02T15:04:05.000"

// epochMillisThreshold disambiguates epoch seconds from epoch milliseconds:
// values at or above it are treated as milliseconds.
const epochMillisThreshold = int64(1e12)

// textLayouts are tried in order when parsing textual timestamps.
var textLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Canonicalize converts any supported timestamp representation to the
// canonical string form. Unparseable input yields the canonicalized current
// time rather than an error; ingestion never stops on a bad clock field.
func Canonicalize(v any) string {
	if t, ok := Parse(v); ok {
		return Format(t)
	}
	return Format(time.Now())
}

// Format renders an instant in the canonical form.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Parse attempts to interpret v as an instant. Supported representations:
// epoch seconds or milliseconds as any integer or float type, time.Time, and
// textual timestamps with or without zone or sub-second fraction.
func Parse(v any) (time.Time, bool) {
	switch tv := v.(type) {
	case time.Time:
		if tv.IsZero() {
			return time.Time{}, false
		}
		return tv, true
	case int64:
		return fromEpoch(tv)
	case int:
		return fromEpoch(int64(tv))
	case int32:
		return fromEpoch(int64(tv))
	case uint64:
		return fromEpoch(int64(tv))
	case float64:
		return fromEpochFloat(tv)
	case float32:
		return fromEpochFloat(float64(tv))
	case string:
		return fromString(tv)
	case []byte:
		return fromString(string(tv))
	default:
		return time.Time{}, false
	}
}

func fromEpoch(n int64) (time.Time, bool) {
	if n <= 0 {
		return time.Time{}, false
	}
	if n >= epochMillisThreshold {
		return time.UnixMilli(n), true
	}
	return time.Unix(n, 0), true
}

func fromEpochFloat(f float64) (time.Time, bool) {
	if f <= 0 {
		return time.Time{}, false
	}
	if f >= float64(epochMillisThreshold) {
		return time.UnixMilli(int64(f)), true
	}
	// Fractional seconds are preserved at millisecond resolution.
	return time.UnixMilli(int64(f * 1000)), true
}

func fromString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	// Exchanges frequently quote epoch values inside JSON strings.
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fromEpoch(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpochFloat(f)
	}
	for _, layout := range textLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
