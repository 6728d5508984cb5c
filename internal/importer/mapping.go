package importer

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/MacJediWizard/dealbook/internal/models"
)

type cellKind int

const (
	kindString cellKind = iota
	kindCurrency
	kindCount
	kindList
)

// binding stores one cleaned cell into a record of type T.
type binding[T any] struct {
	kind cellKind
	set  func(*T, cell)
}

type cell struct {
	str  *string
	num  *float64
	list []string
}

func str[T any](f func(*T) **string) binding[T] {
	return binding[T]{kind: kindString, set: func(r *T, c cell) { *f(r) = c.str }}
}

func currency[T any](f func(*T) **float64) binding[T] {
	return binding[T]{kind: kindCurrency, set: func(r *T, c cell) { *f(r) = c.num }}
}

func count[T any](f func(*T) **float64) binding[T] {
	return binding[T]{kind: kindCount, set: func(r *T, c cell) { *f(r) = c.num }}
}

func list[T any](f func(*T) *[]string) binding[T] {
	return binding[T]{kind: kindList, set: func(r *T, c cell) { *f(r) = c.list }}
}

var investorMapping = map[string]binding[models.Investor]{
	"Prefix":                 str(func(i *models.Investor) **string { return &i.Prefix }),
	"First Name":             str(func(i *models.Investor) **string { return &i.FirstName }),
	"Last Name":              str(func(i *models.Investor) **string { return &i.LastName }),
	"Gender":                 str(func(i *models.Investor) **string { return &i.Gender }),
	"Contact Title":          str(func(i *models.Investor) **string { return &i.ContactTitle }),
	"Email":                  str(func(i *models.Investor) **string { return &i.Email }),
	"Phone":                  str(func(i *models.Investor) **string { return &i.Phone }),
	"Address":                str(func(i *models.Investor) **string { return &i.Address }),
	"Office Website":         str(func(i *models.Investor) **string { return &i.OfficeWebsite }),
	"Firm Name":              str(func(i *models.Investor) **string { return &i.FirmName }),
	"City":                   str(func(i *models.Investor) **string { return &i.City }),
	"State":                  str(func(i *models.Investor) **string { return &i.State }),
	"Country":                str(func(i *models.Investor) **string { return &i.Country }),
	"Type Of Firm":           str(func(i *models.Investor) **string { return &i.TypeOfFirm }),
	"Type of Financing":      list(func(i *models.Investor) *[]string { return &i.TypeOfFinancing }),
	"Industry Preferences":   list(func(i *models.Investor) *[]string { return &i.IndustryPreferences }),
	"Geographic Preferences": list(func(i *models.Investor) *[]string { return &i.GeographicPreferences }),
	"Stage Preferences":      list(func(i *models.Investor) *[]string { return &i.StagePreferences }),
	"Capital Managed":        currency(func(i *models.Investor) **float64 { return &i.CapitalManaged }),
	"Min Investment":         currency(func(i *models.Investor) **float64 { return &i.MinInvestment }),
	"Max Investment":         currency(func(i *models.Investor) **float64 { return &i.MaxInvestment }),
	"Number Of Investors":    count(func(i *models.Investor) **float64 { return &i.NumberOfInvestors }),
}

var fundMapping = map[string]binding[models.InvestmentFund]{
	"Full Name":              str(func(f *models.InvestmentFund) **string { return &f.FullName }),
	"Title":                  str(func(f *models.InvestmentFund) **string { return &f.Title }),
	"Contact Email":          str(func(f *models.InvestmentFund) **string { return &f.ContactEmail }),
	"Contact Phone":          str(func(f *models.InvestmentFund) **string { return &f.ContactPhone }),
	"Firm Name":              str(func(f *models.InvestmentFund) **string { return &f.FirmName }),
	"Firm Email":             str(func(f *models.InvestmentFund) **string { return &f.FirmEmail }),
	"Firm Phone":             str(func(f *models.InvestmentFund) **string { return &f.FirmPhone }),
	"Firm Website":           str(func(f *models.InvestmentFund) **string { return &f.FirmWebsite }),
	"Firm Address":           str(func(f *models.InvestmentFund) **string { return &f.FirmAddress }),
	"Firm City":              str(func(f *models.InvestmentFund) **string { return &f.FirmCity }),
	"Firm State":             str(func(f *models.InvestmentFund) **string { return &f.FirmState }),
	"Firm Zip":               str(func(f *models.InvestmentFund) **string { return &f.FirmZip }),
	"Firm Country":           str(func(f *models.InvestmentFund) **string { return &f.FirmCountry }),
	"Office Type":            str(func(f *models.InvestmentFund) **string { return &f.OfficeType }),
	"Firm Type":              str(func(f *models.InvestmentFund) **string { return &f.FirmType }),
	"Description":            str(func(f *models.InvestmentFund) **string { return &f.Description }),
	"Gender Ratio":           str(func(f *models.InvestmentFund) **string { return &f.GenderRatio }),
	"Financing Type":         list(func(f *models.InvestmentFund) *[]string { return &f.FinancingType }),
	"Industry Preferences":   list(func(f *models.InvestmentFund) *[]string { return &f.IndustryPreferences }),
	"Geographic Preferences": list(func(f *models.InvestmentFund) *[]string { return &f.GeographicPreferences }),
	"Stage Preferences":      list(func(f *models.InvestmentFund) *[]string { return &f.StagePreferences }),
	"Capital Managed":        currency(func(f *models.InvestmentFund) **float64 { return &f.CapitalManaged }),
	"Min. Investment":        currency(func(f *models.InvestmentFund) **float64 { return &f.MinInvestment }),
	"Max. Investment":        currency(func(f *models.InvestmentFund) **float64 { return &f.MaxInvestment }),
	"Number Of Investors":    count(func(f *models.InvestmentFund) **float64 { return &f.NumberOfInvestors }),
}

// foldKey normalizes a header for case-insensitive matching. Dots are
// ignored so "Min Investment" and "Min. Investment" match.
func foldKey(folder cases.Caser, header string) string {
	h := strings.ReplaceAll(strings.TrimSpace(header), ".", "")
	h = strings.Join(strings.Fields(h), " ")
	return folder.String(h)
}

// columnPlan maps CSV column indexes to bindings. Unknown headers are
// returned so callers can log them.
type columnPlan[T any] struct {
	bindings map[int]binding[T]
	unknown  []string
}

func planColumns[T any](header []string, mapping map[string]binding[T]) columnPlan[T] {
	folder := cases.Fold()
	byKey := make(map[string]binding[T], len(mapping))
	for name, b := range mapping {
		byKey[foldKey(folder, name)] = b
	}
	plan := columnPlan[T]{bindings: make(map[int]binding[T])}
	for i, h := range header {
		// snake_case database column names match too
		key := foldKey(folder, strings.ReplaceAll(h, "_", " "))
		if b, ok := byKey[key]; ok {
			plan.bindings[i] = b
			continue
		}
		plan.unknown = append(plan.unknown, h)
	}
	return plan
}

func (p columnPlan[T]) apply(record []string) T {
	var out T
	for i, b := range p.bindings {
		if i >= len(record) {
			continue
		}
		raw := record[i]
		var c cell
		switch b.kind {
		case kindString:
			c.str = CleanString(raw)
		case kindCurrency:
			c.num = ParseCurrency(raw)
		case kindCount:
			c.num = ParseCount(raw)
		case kindList:
			c.list = CleanList(raw)
		}
		b.set(&out, c)
	}
	return out
}
