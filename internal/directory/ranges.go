// Package directory implements the filter, pagination and serialization
// layer shared by the investor and investment fund tables.
package directory

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidRange is returned when a tier label cannot be mapped to an interval.
var ErrInvalidRange = errors.New("invalid range label")

// Range is a half-open numeric interval [Min, Max). A nil Max is unbounded.
type Range struct {
	Min float64  `json:"min"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether v falls inside the interval.
func (r Range) Contains(v float64) bool {
	if v < r.Min {
		return false
	}
	return r.Max == nil || v < *r.Max
}

// Bounded reports whether the interval has an upper edge.
func (r Range) Bounded() bool {
	return r.Max != nil
}

func (r Range) String() string {
	if r.Max == nil {
		return fmt.Sprintf("[%g, +inf)", r.Min)
	}
	return fmt.Sprintf("[%g, %g)", r.Min, *r.Max)
}

var suffixMultipliers = map[byte]float64{
	'K': 1e3,
	'M': 1e6,
	'B': 1e9,
}

// ParseRange maps a tier label to its interval. It accepts display labels
// ("$100M - $500M", "$1B+", "1 - 10") and the legacy keys used by older
// clients ("100M_500M", "1B_PLUS").
func ParseRange(label string) (Range, error) {
	norm := normalizeLabel(label)
	if norm == "" {
		return Range{}, fmt.Errorf("%w: empty label", ErrInvalidRange)
	}

	if strings.HasSuffix(norm, "+") || strings.HasSuffix(norm, "_PLUS") {
		lo := strings.TrimSuffix(strings.TrimSuffix(norm, "+"), "_PLUS")
		lower, err := parseAmount(lo)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, label)
		}
		return Range{Min: lower}, nil
	}

	sep := "-"
	if !strings.Contains(norm, sep) {
		sep = "_"
	}
	lo, hi, ok := strings.Cut(norm, sep)
	if !ok {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, label)
	}

	lower, err := parseAmount(lo)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, label)
	}
	upper, err := parseAmount(hi)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, label)
	}
	// "5-20M" carries the unit only on the upper edge.
	if !hasSuffixUnit(lo) && hasSuffixUnit(hi) {
		lower *= suffixMultipliers[hi[len(hi)-1]]
	}
	if upper <= lower {
		return Range{}, fmt.Errorf("%w: %q has empty interval", ErrInvalidRange, label)
	}
	return Range{Min: lower, Max: &upper}, nil
}

// ParseRanges parses every label, failing on the first invalid one.
func ParseRanges(labels []string) ([]Range, error) {
	out := make([]Range, 0, len(labels))
	for _, l := range labels {
		r, err := ParseRange(l)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func normalizeLabel(label string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(label) {
		switch r {
		case '$', ',', ' ', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func hasSuffixUnit(s string) bool {
	if s == "" {
		return false
	}
	_, ok := suffixMultipliers[s[len(s)-1]]
	return ok
}

func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty amount")
	}
	mult := 1.0
	if m, ok := suffixMultipliers[s[len(s)-1]]; ok {
		mult = m
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("amount is not finite")
	}
	if v < 0 {
		return 0, errors.New("negative amount")
	}
	return v * mult, nil
}
