package directory

import (
	"math"
	"strings"
)

// ScrubFloat drops NaN and infinite values, which JSON cannot encode.
func ScrubFloat(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

// NormalizeArray flattens elements that hold a Postgres array literal
// ("{a,\"b c\"}"), trims quotes and whitespace, and drops blanks and NULLs.
// An empty result is nil.
func NormalizeArray(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			out = append(out, ParseArrayLiteral(s)...)
			continue
		}
		s = strings.TrimSpace(strings.Trim(s, `"'`))
		if s == "" || strings.EqualFold(s, "null") {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseArrayLiteral parses a one-dimensional Postgres text array literal.
// Unquoted NULL elements and blanks are dropped.
func ParseArrayLiteral(lit string) []string {
	lit = strings.TrimSpace(lit)
	if !strings.HasPrefix(lit, "{") || !strings.HasSuffix(lit, "}") {
		return nil
	}
	body := lit[1 : len(lit)-1]

	var (
		out     []string
		cur     strings.Builder
		quoted  bool
		inQuote bool
		escaped bool
	)
	flush := func() {
		v := cur.String()
		if !quoted {
			v = strings.TrimSpace(v)
			if strings.EqualFold(v, "null") {
				v = ""
			}
		}
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
		cur.Reset()
		quoted = false
	}

	for _, r := range body {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
			quoted = true
		case r == ',' && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if body != "" {
		flush()
	}
	return out
}

// CleanList is the write-side normalization for array columns: trimmed,
// de-duplicated in order, nil when empty.
func CleanList(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range NormalizeArray(in) {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
