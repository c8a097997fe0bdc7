package pricing

import (
	"strings"

	"freightdesk/internal/util"
)

// containerAliases lists other spellings rate tables use for a container
// column header.
var containerAliases = map[string][]string{
	util.Container40HQ: {"40HC", "40 HC", "40High", "40 HIGH"},
	util.Container20GP: {"20 GP", "20FT", "20 FT"},
}

// ResolvePriceColumn finds the header holding prices for a normalized
// container type: exact header, then an alias exactly, then an alias by
// containment, then containment of the type itself.
func ResolvePriceColumn(headers []string, container string) (int, bool) {
	if container == "" || container == util.ContainerUnknown {
		return -1, false
	}
	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = util.NormalizeHeaderKey(h)
	}
	target := util.NormalizeHeaderKey(container)

	for i, k := range keys {
		if k == target {
			return i, true
		}
	}

	aliases := containerAliases[container]
	for _, alias := range aliases {
		a := util.NormalizeHeaderKey(alias)
		for i, k := range keys {
			if k == a {
				return i, true
			}
		}
	}
	for _, alias := range aliases {
		a := util.NormalizeHeaderKey(alias)
		for i, k := range keys {
			if overlaps(k, a) {
				return i, true
			}
		}
	}

	for i, k := range keys {
		if overlaps(k, target) {
			return i, true
		}
	}
	return -1, false
}

// overlaps reports whether either non-empty key contains the other.
func overlaps(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
