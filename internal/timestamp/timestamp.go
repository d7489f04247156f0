// Package timestamp resolves heterogeneous date values to float seconds since the epoch.
package timestamp

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateParseError reports a date value that matched no supported representation.
// Callers treat it as "time unknown" for that record and keep going.
type DateParseError struct {
	Value any
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("unparseable date %#v", e.Value)
}

// Layouts tried for string values, in order. Values without a zone are read as UTC.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Resolve returns v as seconds since the Unix epoch. Numeric values are taken
// as epoch seconds. Strings are tried as ISO-8601 first and as a numeric
// string last.
func Resolve(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, &DateParseError{Value: v}
	case json.Number:
		return parseNumeric(string(x), v)
	case float64:
		return finite(x, v)
	case float32:
		return finite(float64(x), v)
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case time.Time:
		if x.IsZero() {
			return 0, &DateParseError{Value: v}
		}
		return FromTime(x), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, &DateParseError{Value: v}
		}
		if t, ok := parseISO(s); ok {
			return FromTime(t), nil
		}
		return parseNumeric(s, v)
	default:
		return 0, &DateParseError{Value: v}
	}
}

// ParseISO parses an ISO-8601 string, accepting a trailing "Z" and naive values.
func ParseISO(s string) (time.Time, error) {
	if t, ok := parseISO(strings.TrimSpace(s)); ok {
		return t, nil
	}
	return time.Time{}, &DateParseError{Value: s}
}

func parseISO(s string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumeric(s string, orig any) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &DateParseError{Value: orig}
	}
	return finite(f, orig)
}

func finite(f float64, orig any) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &DateParseError{Value: orig}
	}
	return f, nil
}

// FromTime converts t to float seconds since the epoch.
func FromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// ToTime converts float epoch seconds back to a UTC time.
func ToTime(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
