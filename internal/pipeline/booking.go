package pipeline

import (
	"html"
	"regexp"
	"strings"

	"freightdesk/internal"
)

// bookingPatterns is tried in order against the cleaned body. The first two
// need a separator and a token of at least five characters; the last two
// accept no separator but need a token starting with two letters.
var bookingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:ORDER|Booking)\s*(?:nbr|No|Ref|#)\s*[:.=]\s*([A-Za-z0-9\-/]{5,})`),
	regexp.MustCompile(`(?i)(?:ORDER|Booking)\s*[:.=]\s*([A-Za-z0-9\-/]{5,})`),
	regexp.MustCompile(`(?i)(?:ORDER|Booking)\s*(?:nbr|No|Ref|#)\s+([A-Za-z]{2}[A-Za-z0-9\-]{4,})`),
	regexp.MustCompile(`(?i)(?:ORDER|Booking)\s+([A-Za-z]{2}[A-Za-z0-9\-]{4,})`),
}

var bookingKeywordTokens = map[string]struct{}{
	"NBR": {}, "NO": {}, "REF": {}, "ORDER": {}, "BOOKING": {},
}

var reOrderNo = regexp.MustCompile(`(?i)ORDER NO\s*([A-Za-z0-9]+)`)

var messageTextCleaner = strings.NewReplacer(
	"\ufffd", "",
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\ufeff", "",
	"\u00a0", " ",
	"\u2002", " ",
	"\u2003", " ",
	"\u2009", " ",
	"\u200a", " ",
)

// CleanMessageText decodes HTML entities, drops invisible characters and
// turns the odd Unicode spaces into plain ones.
func CleanMessageText(s string) string {
	return messageTextCleaner.Replace(html.UnescapeString(s))
}

// ExtractBooking returns the booking reference found in a message body, or
// "".
func ExtractBooking(body string) string {
	text := CleanMessageText(body)
	for _, re := range bookingPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		token := strings.TrimSpace(m[1])
		if _, keyword := bookingKeywordTokens[strings.ToUpper(token)]; keyword {
			continue
		}
		return token
	}
	return ""
}

func DetectSupplier(subject, body string) internal.SupplierType {
	if strings.Contains(strings.ToUpper(subject+body), "SRTS") {
		return internal.SupplierSRTS
	}
	return internal.SupplierOther
}

// ExtractOrderNo reads "ORDER NO xxx" from a subject line.
func ExtractOrderNo(subject string) string {
	m := reOrderNo.FindStringSubmatch(subject)
	if m == nil {
		return ""
	}
	return m[1]
}
