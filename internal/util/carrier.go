package util

import "strings"

type carrierRule struct {
	keywords []string
	code     string
}

// carrierRules is evaluated top to bottom; the first rule with a keyword
// contained in the name wins.
var carrierRules = []carrierRule{
	{keywords: []string{"YANG MING", "YANGMING"}, code: "YML"},
	{keywords: []string{"HYUNDAI", "HMM"}, code: "HMM"},
	{keywords: []string{"EVERGREEN"}, code: "EMC"},
	{keywords: []string{"MAERSK", "MSK"}, code: "MSK"},
	{keywords: []string{"COSCO"}, code: "COSCO"},
	{keywords: []string{"ONE"}, code: "ONE"},
	{keywords: []string{"CMA"}, code: "CMA"},
	{keywords: []string{"MSC"}, code: "MSC"},
	{keywords: []string{"OOCL"}, code: "OOCL"},
}

// CanonicalCarrier maps a carrier name to its short code. Names that match no
// rule come back uppercased and trimmed. Apply it to both sides of a
// comparison.
func CanonicalCarrier(raw string) string {
	name := strings.ToUpper(SafeString(raw))
	if name == "" {
		return ""
	}
	for _, rule := range carrierRules {
		if ContainsAny(name, rule.keywords) {
			return rule.code
		}
	}
	return name
}
