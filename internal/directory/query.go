package directory

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnsupportedFilter is returned when a filter field has no column on the
// target entity.
var ErrUnsupportedFilter = errors.New("filter not supported for entity")

// Query is a composed predicate with positional ($n) arguments.
type Query struct {
	Where string
	Args  []any
}

// SQL returns the predicate prefixed with WHERE, or "" when unconstrained.
func (q Query) SQL() string {
	if q.Where == "" {
		return ""
	}
	return " WHERE " + q.Where
}

// NextArg is the placeholder index a caller should use after the predicate.
func (q Query) NextArg() int {
	return len(q.Args) + 1
}

type builder struct {
	clauses []string
	args    []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) add(clause string) {
	b.clauses = append(b.clauses, clause)
}

func (b *builder) query() Query {
	return Query{Where: strings.Join(b.clauses, " AND "), Args: b.args}
}

// Compose translates a filter into a predicate over the schema's table.
// Clauses are ANDed; values inside a single field are ORed.
func Compose(s *Schema, f *Filter) (Query, error) {
	b := &builder{}
	if f == nil {
		return b.query(), nil
	}

	if term := strings.TrimSpace(f.SearchTerm); term != "" {
		p := b.arg("%" + EscapeLike(term) + "%")
		ors := make([]string, 0, len(s.SearchColumns))
		for _, col := range s.SearchColumns {
			if f.HideContact && slices.Contains(s.ContactColumns, col) {
				continue
			}
			ors = append(ors, fmt.Sprintf("%s ILIKE %s", col, p))
		}
		b.add(paren(ors, " OR "))
	}

	if loc := f.Location; loc != nil {
		if err := b.ilikeAny("location.city", s.CityColumn, loc.City); err != nil {
			return Query{}, err
		}
		if err := b.ilikeAny("location.state", s.StateColumn, loc.State); err != nil {
			return Query{}, err
		}
		if err := b.ilikeAny("location.country", s.CountryColumn, loc.Country); err != nil {
			return Query{}, err
		}
		if err := b.overlap("location.location_preferences", s.LocationPrefsColumn, loc.LocationPreferences); err != nil {
			return Query{}, err
		}
	}

	if ci := f.ContactInfo; ci != nil {
		if err := b.presence("contactInfo.hasEmail", s.EmailColumns, false, ci.HasEmail); err != nil {
			return Query{}, err
		}
		if err := b.presence("contactInfo.hasPhone", s.PhoneColumns, false, ci.HasPhone); err != nil {
			return Query{}, err
		}
		if err := b.presence("contactInfo.hasAddress", s.AddressColumns, true, ci.HasAddress); err != nil {
			return Query{}, err
		}
	}

	if f.Industry != nil {
		if err := b.overlap("industry.industries", s.IndustriesColumn, f.Industry.Industries); err != nil {
			return Query{}, err
		}
	}
	if f.Stages != nil {
		if err := b.overlap("stages.stages", s.StagesColumn, f.Stages.Stages); err != nil {
			return Query{}, err
		}
	}
	if f.FundType != nil && len(f.FundType.Types) > 0 {
		switch {
		case s.FundTypeOverlapColumn != "":
			if err := b.overlap("fundType.types", s.FundTypeOverlapColumn, f.FundType.Types); err != nil {
				return Query{}, err
			}
		case s.FundTypeColumn != "" || s.FundTypeArrayColumn != "":
			var ors []string
			for _, t := range f.FundType.Types {
				p := b.arg("%" + EscapeLike(t) + "%")
				if s.FundTypeColumn != "" {
					ors = append(ors, fmt.Sprintf("%s ILIKE %s", s.FundTypeColumn, p))
				}
				if s.FundTypeArrayColumn != "" {
					ors = append(ors, fmt.Sprintf("array_to_string(%s, ',') ILIKE %s", s.FundTypeArrayColumn, p))
				}
			}
			b.add(paren(ors, " OR "))
		default:
			return Query{}, unsupported(s, "fundType.types")
		}
	}

	if r := f.InvestmentRanges; r != nil {
		if err := b.ranges("investmentRanges.assetsUnderManagement", s.CapitalColumn, r.AssetsUnderManagement); err != nil {
			return Query{}, err
		}
		if err := b.ranges("investmentRanges.minInvestment", s.MinInvestmentColumn, r.MinInvestment); err != nil {
			return Query{}, err
		}
		if err := b.ranges("investmentRanges.maxInvestment", s.MaxInvestmentColumn, r.MaxInvestment); err != nil {
			return Query{}, err
		}
	}

	if f.JobTitle != nil {
		if err := b.ilikeAny("jobTitle.titles", s.JobTitleColumn, f.JobTitle.Titles); err != nil {
			return Query{}, err
		}
	}
	if f.Gender != nil {
		if g := strings.TrimSpace(f.Gender.Gender); g != "" {
			if s.GenderColumn == "" {
				return Query{}, unsupported(s, "gender.gender")
			}
			b.add(fmt.Sprintf("LOWER(%s) = LOWER(%s)", s.GenderColumn, b.arg(g)))
		}
	}
	if f.InvestorCount != nil {
		if err := b.ranges("investorCount.range", s.InvestorCountColumn, f.InvestorCount.Range); err != nil {
			return Query{}, err
		}
	}
	if f.GenderRatio != nil && len(f.GenderRatio.Ratio) > 0 {
		if s.GenderRatioColumn == "" {
			return Query{}, unsupported(s, "genderRatio.ratio")
		}
		b.add(fmt.Sprintf("%s = ANY(%s::text[])", s.GenderRatioColumn, b.arg([]string(f.GenderRatio.Ratio))))
	}

	return b.query(), nil
}

func (b *builder) ilikeAny(field, col string, values StringList) error {
	if len(values) == 0 {
		return nil
	}
	if col == "" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFilter, field)
	}
	ors := make([]string, 0, len(values))
	for _, v := range values {
		ors = append(ors, fmt.Sprintf("%s ILIKE %s", col, b.arg("%"+EscapeLike(v)+"%")))
	}
	b.add(paren(ors, " OR "))
	return nil
}

func (b *builder) overlap(field, col string, values StringList) error {
	if len(values) == 0 {
		return nil
	}
	if col == "" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFilter, field)
	}
	b.add(fmt.Sprintf("%s && %s::text[]", col, b.arg([]string(values))))
	return nil
}

// presence requires the columns to hold a non-blank value when want is true
// and to all be blank when want is false.
func (b *builder) presence(field string, cols []string, all bool, want *bool) error {
	if want == nil {
		return nil
	}
	if len(cols) == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFilter, field)
	}
	present := make([]string, 0, len(cols))
	for _, col := range cols {
		present = append(present, fmt.Sprintf("NULLIF(BTRIM(%s), '') IS NOT NULL", col))
	}
	join := " OR "
	if all {
		join = " AND "
	}
	clause := paren(present, join)
	if !*want {
		clause = "NOT " + clause
	}
	b.add(clause)
	return nil
}

func (b *builder) ranges(field, col string, labels StringList) error {
	if len(labels) == 0 {
		return nil
	}
	if col == "" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFilter, field)
	}
	parsed, err := ParseRanges(labels)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	ors := make([]string, 0, len(parsed))
	for _, r := range parsed {
		if !r.Bounded() {
			ors = append(ors, fmt.Sprintf("%s >= %s", col, b.arg(r.Min)))
			continue
		}
		ors = append(ors, fmt.Sprintf("(%s >= %s AND %s < %s)", col, b.arg(r.Min), col, b.arg(*r.Max)))
	}
	b.add(paren(ors, " OR "))
	return nil
}

func unsupported(s *Schema, field string) error {
	return fmt.Errorf("%w: %s on %s", ErrUnsupportedFilter, field, s.Entity)
}

func paren(parts []string, sep string) string {
	return "(" + strings.Join(parts, sep) + ")"
}

// EscapeLike escapes LIKE metacharacters so user input matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
