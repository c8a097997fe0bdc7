package util

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024/03/15", "2024-03-15", "2024.03.15", "15/03/2024", "2024-03-15 10:30:00", "45366"} {
		got, ok := ParseDate(in)
		if !ok {
			t.Fatalf("ParseDate(%q) failed", in)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseDate(%q) = %v want %v", in, got, want)
		}
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, in := range []string{"", "nan", "TBA", "2024/13/45"} {
		if _, ok := ParseDate(in); ok {
			t.Fatalf("ParseDate(%q) should fail", in)
		}
	}
}

func TestAddDaysAndFormat(t *testing.T) {
	if got := AddDays("2024-02-25", 7, "2006/01/02"); got != "2024/03/03" {
		t.Fatalf("AddDays got %q", got)
	}
	if got := AddDays("soon", 7, "2006/01/02"); got != "" {
		t.Fatalf("AddDays invalid got %q", got)
	}
	if got := FormatDate("2024-01-05", "2006/01/02"); got != "2024/01/05" {
		t.Fatalf("FormatDate got %q", got)
	}
}

func TestParseDateUnpaddedAndMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"6/1/2024", time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)},
		{"1/6/2024", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"15/6/2024", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"15-6-2024", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"6/15/2024", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"06/15/2024", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-06-01 08:30", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"2024/06/01 08:30", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		if !ok || !got.Equal(tc.want) {
			t.Fatalf("ParseDate(%q) = %v,%v want %v", tc.in, got, ok, tc.want)
		}
	}
}
