package util

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var (
	reSpaces       = regexp.MustCompile(`\s+`)
	reIllegalChars = strings.NewReplacer("<", "_", ">", "_", ":", "_", "\"", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_")
)

// NormalizeSpaces collapses whitespace runs into one space and trims.
func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// NormalizeCell is the canonical form used for exact cell comparisons.
func NormalizeCell(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

// NormalizeHeaderKey folds full-width characters, uppercases and removes
// every space so that "40 HQ", "40ＨＱ" and "40hq" compare equal.
func NormalizeHeaderKey(input string) string {
	s := width.Narrow.String(input)
	s = strings.ToUpper(s)
	return strings.Join(strings.Fields(s), "")
}

// SafeString trims the value and maps the usual spreadsheet null spellings
// to the empty string.
func SafeString(v string) string {
	s := strings.TrimSpace(v)
	switch strings.ToLower(s) {
	case "nan", "none", "null", "<nil>":
		return ""
	}
	return s
}

// SafeJoin joins the non-empty parts with sep.
func SafeJoin(parts []string, sep string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := SafeString(p); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, sep)
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := SafeString(v); s != "" {
			return s
		}
	}
	return ""
}

// MapSupplierName returns the accounting contact name for a supplier.
func MapSupplierName(name string) string {
	s := SafeString(name)
	if s == "" {
		return ""
	}
	if strings.Contains(strings.ToUpper(s), "SRTS") {
		return "SRTS Far East Ltd"
	}
	return s
}

func SanitizeFilename(name string) string {
	return reIllegalChars.Replace(name)
}

// ContainsAny reports whether s contains any of the needles. Both sides are
// compared as given.
func ContainsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// FindHeaderIndex returns the first header containing any probe,
// case-insensitively, or -1.
func FindHeaderIndex(headers []string, probes []string) int {
	for i, h := range headers {
		lh := strings.ToLower(strings.TrimSpace(h))
		for _, probe := range probes {
			if strings.Contains(lh, strings.ToLower(probe)) {
				return i
			}
		}
	}
	return -1
}
