package util

import "testing"

func TestNormalizeContainerType(t *testing.T) {
	cases := map[string]string{
		"1x40HQ":        Container40HQ,
		"40' HIGH CUBE": Container40HQ,
		"40GP":          Container40GP,
		"40HC":          Container40GP,
		"20'":           Container20GP,
		"refrigerated":  ContainerUnknown,
		"":              ContainerUnknown,
	}
	for in, want := range cases {
		if got := NormalizeContainerType(in); got != want {
			t.Fatalf("NormalizeContainerType(%q) = %q want %q", in, got, want)
		}
	}
}

func TestNormalizeContainerTypeRich(t *testing.T) {
	cases := map[string]string{
		"40HC":     Container40HQ,
		"45' HC":   Container40HQ,
		"45GP":     Container40GP,
		"2x20GP":   Container20GP,
		"HI-CUBE":  Container40HQ,
		"1 TEU":    Container20GP,
		"FEU":      Container40GP,
		"flatrack": ContainerUnknown,
	}
	for in, want := range cases {
		if got := NormalizeContainerTypeRich(in); got != want {
			t.Fatalf("NormalizeContainerTypeRich(%q) = %q want %q", in, got, want)
		}
	}
}

func TestCanonicalCarrier(t *testing.T) {
	cases := map[string]string{
		"Maersk Line":       "MSK",
		"msk":               "MSK",
		"YANG MING MARINE":  "YML",
		"Hyundai Merchant":  "HMM",
		"Evergreen":         "EMC",
		"COSCO Shipping":    "COSCO",
		"  zim  ":           "ZIM",
		"":                  "",
		"Ocean Network ONE": "ONE",
	}
	for in, want := range cases {
		if got := CanonicalCarrier(in); got != want {
			t.Fatalf("CanonicalCarrier(%q) = %q want %q", in, got, want)
		}
	}
}

func TestCanonicalCarrierOrder(t *testing.T) {
	// COSCO is checked before ONE, so a name carrying both maps to COSCO.
	if got := CanonicalCarrier("COSCO ONE"); got != "COSCO" {
		t.Fatalf("got %q want COSCO", got)
	}
}

func TestNormalizeHeaderKey(t *testing.T) {
	for _, in := range []string{"40 HQ", "40ＨＱ", "40hq", " 40　HQ "} {
		if got := NormalizeHeaderKey(in); got != "40HQ" {
			t.Fatalf("NormalizeHeaderKey(%q) = %q", in, got)
		}
	}
}

func TestSafeJoinAndSupplier(t *testing.T) {
	if got := SafeJoin([]string{"F1", "", "nan", " OBL9 "}, "/"); got != "F1/OBL9" {
		t.Fatalf("SafeJoin got %q", got)
	}
	if got := MapSupplierName("srts logistics"); got != "SRTS Far East Ltd" {
		t.Fatalf("MapSupplierName got %q", got)
	}
	if got := MapSupplierName(" Acme "); got != "Acme" {
		t.Fatalf("MapSupplierName got %q", got)
	}
	if got := SanitizeFilename(`a/b:c*?.pdf`); got != "a_b_c__.pdf" {
		t.Fatalf("SanitizeFilename got %q", got)
	}
}
