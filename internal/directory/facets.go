package directory

import (
	"fmt"
	"strings"
)

var groupAliases = map[string]string{
	"fundType":         GroupFundType,
	"fundtype":         GroupFundType,
	"fund-type":        GroupFundType,
	"jobTitle":         GroupJobTitle,
	"job-title":        GroupJobTitle,
	"investmentRanges": GroupRanges,
	"investorCount":    GroupInvestorCount,
	"genderRatio":      GroupGender,
	"contactInfo":      GroupContact,
	"searchTerm":       GroupSearch,
}

// NormalizeGroup maps the client spellings of a filter group onto its
// canonical name.
func NormalizeGroup(name string) string {
	name = strings.TrimSpace(name)
	if g, ok := groupAliases[name]; ok {
		return g
	}
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

// FacetsFor returns the schema facets whose group is not excluded.
func FacetsFor(s *Schema, exclude []string) []Facet {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[NormalizeGroup(e)] = true
	}
	var out []Facet
	for _, f := range s.Facets {
		if !skip[f.Group] && !skip[f.Name] {
			out = append(out, f)
		}
	}
	return out
}

// FacetSQL builds the grouped count query for one facet. Array columns are
// unnested so each element counts once per row. Every distinct value is
// returned.
func FacetSQL(s *Schema, facet Facet, q Query) string {
	var sb strings.Builder
	if facet.Array {
		fmt.Fprintf(&sb, "SELECT v AS value, COUNT(*) FROM %s, unnest(%s) AS v WHERE ", s.Table, facet.Column)
		if q.Where != "" {
			sb.WriteString("(" + q.Where + ") AND ")
		}
		sb.WriteString("NULLIF(BTRIM(v), '') IS NOT NULL GROUP BY v")
	} else {
		fmt.Fprintf(&sb, "SELECT %s AS value, COUNT(*) FROM %s WHERE ", facet.Column, s.Table)
		if q.Where != "" {
			sb.WriteString("(" + q.Where + ") AND ")
		}
		fmt.Fprintf(&sb, "NULLIF(BTRIM(%s), '') IS NOT NULL GROUP BY %s", facet.Column, facet.Column)
	}
	sb.WriteString(" ORDER BY 2 DESC, 1")
	return sb.String()
}
