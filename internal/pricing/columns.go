package pricing

import (
	"fmt"
	"sort"
	"strings"
)

const (
	RoleCarrier   = "Carrier"
	RolePOL       = "POL Code"
	RolePOD       = "POD Code"
	RoleEffective = "Effective Date"
	RoleExpiry    = "Expiry Date"
)

var requiredRoles = []string{RoleCarrier, RolePOL, RolePOD, RoleEffective, RoleExpiry}

// Columns holds the header index found for each key column, -1 when absent.
type Columns struct {
	Carrier   int
	POL       int
	POD       int
	Effective int
	Expiry    int
}

func (c Columns) byRole() map[string]int {
	return map[string]int{
		RoleCarrier:   c.Carrier,
		RolePOL:       c.POL,
		RolePOD:       c.POD,
		RoleEffective: c.Effective,
		RoleExpiry:    c.Expiry,
	}
}

// ColumnsError reports a rate table whose key columns could not be found.
type ColumnsError struct {
	Found   map[string]string
	Missing []string
}

func (e *ColumnsError) Error() string {
	found := make([]string, 0, len(e.Found))
	for role, header := range e.Found {
		found = append(found, fmt.Sprintf("%s=%q", role, header))
	}
	sort.Strings(found)
	return fmt.Sprintf("rate table is missing columns: %s (found: %s)",
		strings.Join(e.Missing, ", "), strings.Join(found, ", "))
}

type headerRule func(lower, raw string) bool

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}

func oneOf(s string, values ...string) bool {
	for _, v := range values {
		if s == v {
			return true
		}
	}
	return false
}

var (
	carrierHeader headerRule = func(lower, raw string) bool {
		return strings.Contains(lower, "carrier") ||
			strings.Contains(raw, "船公司") ||
			strings.Contains(lower, "shipping line") ||
			strings.Contains(lower, "line") ||
			oneOf(lower, "carrier name", "carrier_name", "船公司名称")
	}
	polHeader headerRule = func(lower, _ string) bool {
		return containsAll(lower, "pol", "code") ||
			containsAll(lower, "pol", "port") ||
			containsAll(lower, "origin", "code") ||
			oneOf(lower, "pol code", "pol_code", "pol", "origin port code", "origin_port_code")
	}
	podHeader headerRule = func(lower, _ string) bool {
		return containsAll(lower, "pod", "code") ||
			containsAll(lower, "pod", "port") ||
			containsAll(lower, "destination", "code") ||
			containsAll(lower, "discharge", "code") ||
			oneOf(lower, "pod code", "pod_code", "pod", "destination port code", "destination_port_code")
	}
	effectiveHeader headerRule = func(lower, raw string) bool {
		return strings.Contains(lower, "effective date") ||
			strings.Contains(lower, "effective_date") ||
			strings.Contains(raw, "生效日期") ||
			containsAll(lower, "effective", "date")
	}
	expiryHeader headerRule = func(lower, raw string) bool {
		return strings.Contains(lower, "expiry date") ||
			strings.Contains(lower, "expiry_date") ||
			strings.Contains(raw, "到期日期") ||
			containsAll(lower, "expire", "date") ||
			strings.Contains(lower, "valid until") ||
			strings.Contains(lower, "valid_until")
	}
)

// DiscoverColumns finds the key columns by header keywords. Carrier, POL and
// POD fall back to the 2nd, 3rd and 8th column; the dates fall back to any
// header mentioning "date".
func DiscoverColumns(headers []string) (Columns, error) {
	cols := Columns{Carrier: -1, POL: -1, POD: -1, Effective: -1, Expiry: -1}
	for i, h := range headers {
		lower := strings.ToLower(strings.TrimSpace(h))
		if cols.Carrier < 0 && carrierHeader(lower, h) {
			cols.Carrier = i
		}
		if cols.POL < 0 && polHeader(lower, h) {
			cols.POL = i
		}
		if cols.POD < 0 && podHeader(lower, h) {
			cols.POD = i
		}
		if cols.Effective < 0 && effectiveHeader(lower, h) {
			cols.Effective = i
		}
		if cols.Expiry < 0 && expiryHeader(lower, h) {
			cols.Expiry = i
		}
	}

	if cols.Carrier < 0 && len(headers) > 1 {
		cols.Carrier = 1
	}
	if cols.POL < 0 && len(headers) > 2 {
		cols.POL = 2
	}
	if cols.POD < 0 && len(headers) > 7 {
		cols.POD = 7
	}
	if cols.Effective < 0 {
		for i, h := range headers {
			lower := strings.ToLower(h)
			if strings.Contains(lower, "date") && !strings.Contains(lower, "expir") {
				cols.Effective = i
				break
			}
		}
	}
	if cols.Expiry < 0 {
		for i, h := range headers {
			if strings.Contains(strings.ToLower(h), "date") && i != cols.Effective {
				cols.Expiry = i
				break
			}
		}
	}

	found := map[string]string{}
	var missing []string
	byRole := cols.byRole()
	for _, role := range requiredRoles {
		if idx := byRole[role]; idx >= 0 {
			found[role] = headers[idx]
		} else {
			missing = append(missing, role)
		}
	}
	if len(missing) > 0 {
		return cols, &ColumnsError{Found: found, Missing: missing}
	}
	return cols, nil
}
