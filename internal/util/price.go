package util

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reNonPrice     = regexp.MustCompile(`[^\d.]`)
	reNumberToken  = regexp.MustCompile(`-?(\d{1,3}(?:[\s.,]\d{3})+(?:[.,]\d+)?|\d+(?:[.,]\d+)?)`)
	reThousandDot  = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	reThousandComa = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
	reMixedComma   = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+\.\d+$`)
	reMixedDot     = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+,\d+$`)
)

// CleanPrice keeps only digits and dots. "$1,000.50" becomes 1000.50 and an
// empty or unparseable value becomes zero.
func CleanPrice(v string) decimal.Decimal {
	cleaned := reNonPrice.ReplaceAllString(SafeString(v), "")
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParsePrice reads the first number in v, accepting thousand separators and
// decimal commas. ok is false when v holds no number.
func ParsePrice(v string) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(SafeString(v), "\u00a0", " ")
	if s == "" {
		return decimal.Zero, false
	}
	m := reNumberToken.FindString(s)
	if m == "" {
		return decimal.Zero, false
	}
	negative := strings.HasPrefix(m, "-")
	m = strings.TrimPrefix(m, "-")
	d, err := decimal.NewFromString(normalizeNumericToken(m))
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	switch {
	case reThousandDot.MatchString(compact):
		return strings.ReplaceAll(compact, ".", "")
	case reThousandComa.MatchString(compact):
		return strings.ReplaceAll(compact, ",", "")
	case reMixedComma.MatchString(compact):
		return strings.ReplaceAll(compact, ",", "")
	case reMixedDot.MatchString(compact):
		return strings.ReplaceAll(strings.ReplaceAll(compact, ".", ""), ",", ".")
	case strings.Contains(compact, ",") && !strings.Contains(compact, "."):
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}
