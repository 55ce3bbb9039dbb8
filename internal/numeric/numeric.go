// Package numeric holds the loose number coercions shared by the loader, the
// grade computer and the renderer.
package numeric

import (
	"math"
	"strconv"
	"strings"
)

// ParseLoose strips everything that is not a digit, a decimal point or a minus
// sign and parses what is left. "1,234" parses as 1234.
func ParseLoose(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || !IsFinite(v) {
		return 0, false
	}
	return v, true
}

// ToNumLoose is ParseLoose with a fallback for unparsable input.
func ToNumLoose(s string, fallback float64) float64 {
	if v, ok := ParseLoose(s); ok {
		return v
	}
	return fallback
}

// ToRate0to100 normalises "42%", "0.42" and "42" to 42. Values without a
// percent sign that are <= 1 are read as fractions.
func ToRate0to100(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, ok := ParseLoose(s)
	if !ok {
		return 0, false
	}
	if strings.Contains(s, "%") {
		return clampPct(v), true
	}
	return RateOf(v), true
}

// RateOf applies the fraction-or-percent rule to an already numeric value.
func RateOf(v float64) int {
	if !IsFinite(v) {
		return 0
	}
	if v <= 1 {
		v *= 100
	}
	return clampPct(v)
}

// PctOf10 maps a 0-10 grade onto a 0-100 integer.
func PctOf10(v float64) int {
	if !IsFinite(v) {
		return 0
	}
	// v/10*100, computed as v*10 to keep 9.5 -> 95 exact
	return clampPct(v * 10)
}

// Round1 rounds half away from zero on the tenths digit.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Format1 renders v with exactly one decimal.
func Format1(v float64) string {
	r := Round1(v)
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', 1, 64)
}

func Clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clampPct(v float64) int {
	if !IsFinite(v) {
		return 0
	}
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return int(r)
}
