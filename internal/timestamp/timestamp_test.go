package timestamp

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestResolve_Numeric(t *testing.T) {
	cases := []any{json.Number("1700000000"), float64(1700000000), 1700000000, int64(1700000000), "1700000000"}
	for _, c := range cases {
		got, err := Resolve(c)
		if err != nil {
			t.Errorf("Resolve(%#v) error: %v", c, err)
			continue
		}
		if got != 1700000000 {
			t.Errorf("Resolve(%#v) = %v", c, got)
		}
	}
}

func TestResolve_Fractional(t *testing.T) {
	got, err := Resolve(json.Number("12.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 12.5 {
		t.Errorf("Resolve = %v, want 12.5", got)
	}
}

func TestResolve_ISO(t *testing.T) {
	want := float64(time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC).Unix())
	cases := []string{
		"2023-11-14T22:13:20Z",
		"2023-11-14T22:13:20+00:00",
		"2023-11-15T00:13:20+02:00",
		"2023-11-14T22:13:20",
		"2023-11-14 22:13:20",
	}
	for _, c := range cases {
		got, err := Resolve(c)
		if err != nil {
			t.Errorf("Resolve(%q) error: %v", c, err)
			continue
		}
		if got != want {
			t.Errorf("Resolve(%q) = %v, want %v", c, got, want)
		}
	}
}

func TestResolve_Fails(t *testing.T) {
	for _, c := range []any{nil, "", "yesterday", true, map[string]any{}, json.Number("NaN")} {
		_, err := Resolve(c)
		var dpe *DateParseError
		if !errors.As(err, &dpe) {
			t.Errorf("Resolve(%#v) err = %v, want DateParseError", c, err)
		}
	}
}

func TestToTime_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	if got := ToTime(FromTime(ts)); !got.Equal(ts) {
		t.Errorf("ToTime(FromTime) = %v, want %v", got, ts)
	}
}

func TestParseISO(t *testing.T) {
	if _, err := ParseISO("2026-02-11T10:00:00Z"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseISO("not a date"); err == nil {
		t.Error("expected error")
	}
}
