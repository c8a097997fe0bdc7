package util

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	// MinDate and MaxDate bound open-ended rate validity windows.
	MinDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	MaxDate = time.Date(2100, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Day-first layouts come before month-first ones, so 6/1/2024 is 6 January.
var dateLayouts = []string{
	"2006/01/02",
	"2006-01-02",
	"2006.01.02",
	"2/1/2006",
	"2-1-2006",
	"1/2/2006",
	"1-2-2006",
	"2006/1/2",
	"2006-1-2",
	"2-Jan-2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"January 2, 2006",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
}

// ParseDate accepts the date spellings seen on invoices and rate tables,
// including Excel serial numbers, and drops the time of day.
func ParseDate(v string) (time.Time, bool) {
	s := SafeString(v)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TruncateDate(t), true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 2958466 && !strings.ContainsAny(s, "/-") {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return TruncateDate(t), true
		}
	}
	return time.Time{}, false
}

func TruncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate reformats v with layout, or returns "" when v is not a date.
func FormatDate(v, layout string) string {
	t, ok := ParseDate(v)
	if !ok {
		return ""
	}
	return t.Format(layout)
}

// AddDays returns v plus days formatted with layout, or "" when v is not a
// date.
func AddDays(v string, days int, layout string) string {
	t, ok := ParseDate(v)
	if !ok {
		return ""
	}
	return t.AddDate(0, 0, days).Format(layout)
}
