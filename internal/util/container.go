package util

import (
	"regexp"
	"strings"
)

const (
	Container20GP    = "20GP"
	Container40GP    = "40GP"
	Container40HQ    = "40HQ"
	ContainerUnknown = "Unknown"
)

var (
	reContainerSize  = regexp.MustCompile(`(20|40|45)`)
	highCubeShort    = []string{"HQ", "HIGH", "CUBE"}
	highCubeExtended = []string{"HQ", "HC", "HIGH", "CUBE", "HI-CUBE", "HICUBE"}
)

// NormalizeContainerType is the rule the price matcher uses:
// 40 with a high-cube marker is 40HQ, other 40 is 40GP, 20 is 20GP.
func NormalizeContainerType(raw string) string {
	text := strings.ToUpper(SafeString(raw))
	if text == "" {
		return ContainerUnknown
	}
	if strings.Contains(text, "40") {
		if ContainsAny(text, highCubeShort) {
			return Container40HQ
		}
		return Container40GP
	}
	if strings.Contains(text, "20") {
		return Container20GP
	}
	return ContainerUnknown
}

// NormalizeContainerTypeRich also treats 45ft as the 40 class, reads HC as
// high cube and falls back to TEU/FEU when no size is written.
func NormalizeContainerTypeRich(raw string) string {
	text := strings.ToUpper(SafeString(raw))
	if text == "" {
		return ContainerUnknown
	}
	isHighCube := ContainsAny(text, highCubeExtended)

	if m := reContainerSize.FindString(text); m != "" {
		if m == "20" {
			return Container20GP
		}
		if isHighCube {
			return Container40HQ
		}
		return Container40GP
	}

	switch {
	case isHighCube:
		return Container40HQ
	case strings.Contains(text, "TEU"):
		return Container20GP
	case strings.Contains(text, "FEU"):
		return Container40GP
	}
	return ContainerUnknown
}
