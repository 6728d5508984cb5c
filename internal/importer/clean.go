package importer

import (
	"math"
	"strconv"
	"strings"
)

var nullTokens = map[string]bool{
	"":        true,
	"unknown": true,
	"n/a":     true,
	"nan":     true,
	"null":    true,
	"none":    true,
	"[]":      true,
	`[""]`:    true,
	`["]`:     true,
}

// IsNull reports whether a raw cell means "no value".
func IsNull(raw string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(raw))]
}

// CleanString trims a cell and maps null tokens to nil.
func CleanString(raw string) *string {
	if IsNull(raw) {
		return nil
	}
	s := strings.TrimSpace(raw)
	return &s
}

var currencyUnits = map[byte]float64{'K': 1e3, 'M': 1e6, 'B': 1e9}

// ParseCurrency converts amounts like "$1,000,000", "2.5M" or "1M-5M" to a
// positive number. A range becomes the average of its edges. Anything
// unparseable or not greater than zero becomes nil.
func ParseCurrency(raw string) *float64 {
	if IsNull(raw) {
		return nil
	}
	s := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.ToUpper(raw))

	var total float64
	var n int
	for _, part := range strings.Split(s, "-") {
		if part == "" {
			continue
		}
		v, ok := parseAmount(part)
		if !ok {
			return nil
		}
		total += v
		n++
	}
	if n == 0 {
		return nil
	}
	avg := total / float64(n)
	if avg <= 0 {
		return nil
	}
	return &avg
}

func parseAmount(s string) (float64, bool) {
	mult := 1.0
	if m, ok := currencyUnits[s[len(s)-1]]; ok {
		mult = m
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v * mult, true
}

// ParseCount converts a plain number, keeping zero.
func ParseCount(raw string) *float64 {
	if IsNull(raw) {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 64)
	if err != nil || !finite(v) {
		return nil
	}
	return &v
}

// finite rejects the NaN and Inf spellings strconv accepts.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CleanList splits a list cell on commas after removing brackets and quotes.
// Items are trimmed and deduplicated in first-seen order.
func CleanList(raw string) []string {
	if IsNull(raw) {
		return nil
	}
	s := strings.Trim(strings.TrimSpace(raw), "[]")
	s = strings.NewReplacer(`"`, "", "'", "").Replace(s)

	seen := make(map[string]bool)
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
