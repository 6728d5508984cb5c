package export

import "github.com/MacJediWizard/dealbook/internal/models"

// InvestorColumns is the full investor export.
var InvestorColumns = []Column[models.Investor]{
	{Name: "id", Value: func(i *models.Investor) any { return i.ID }},
	{Name: "prefix", Value: func(i *models.Investor) any { return i.Prefix }},
	{Name: "first_name", Value: func(i *models.Investor) any { return i.FirstName }},
	{Name: "last_name", Value: func(i *models.Investor) any { return i.LastName }},
	{Name: "gender", Value: func(i *models.Investor) any { return i.Gender }},
	{Name: "contact_title", Value: func(i *models.Investor) any { return i.ContactTitle }},
	{Name: "email", Contact: true, Value: func(i *models.Investor) any { return i.Email }},
	{Name: "phone", Contact: true, Value: func(i *models.Investor) any { return i.Phone }},
	{Name: "address", Contact: true, Value: func(i *models.Investor) any { return i.Address }},
	{Name: "office_website", Value: func(i *models.Investor) any { return i.OfficeWebsite }},
	{Name: "firm_name", Value: func(i *models.Investor) any { return i.FirmName }},
	{Name: "city", Value: func(i *models.Investor) any { return i.City }},
	{Name: "state", Value: func(i *models.Investor) any { return i.State }},
	{Name: "country", Value: func(i *models.Investor) any { return i.Country }},
	{Name: "type_of_firm", Value: func(i *models.Investor) any { return i.TypeOfFirm }},
	{Name: "type_of_financing", Value: func(i *models.Investor) any { return i.TypeOfFinancing }},
	{Name: "industry_preferences", Value: func(i *models.Investor) any { return i.IndustryPreferences }},
	{Name: "geographic_preferences", Value: func(i *models.Investor) any { return i.GeographicPreferences }},
	{Name: "stage_preferences", Value: func(i *models.Investor) any { return i.StagePreferences }},
	{Name: "capital_managed", Value: func(i *models.Investor) any { return i.CapitalManaged }},
	{Name: "min_investment", Value: func(i *models.Investor) any { return i.MinInvestment }},
	{Name: "max_investment", Value: func(i *models.Investor) any { return i.MaxInvestment }},
	{Name: "number_of_investors", Value: func(i *models.Investor) any { return i.NumberOfInvestors }},
}

// FundColumns is the full fund export.
var FundColumns = []Column[models.InvestmentFund]{
	{Name: "id", Value: func(f *models.InvestmentFund) any { return f.ID }},
	{Name: "full_name", Value: func(f *models.InvestmentFund) any { return f.FullName }},
	{Name: "title", Value: func(f *models.InvestmentFund) any { return f.Title }},
	{Name: "contact_email", Contact: true, Value: func(f *models.InvestmentFund) any { return f.ContactEmail }},
	{Name: "contact_phone", Contact: true, Value: func(f *models.InvestmentFund) any { return f.ContactPhone }},
	{Name: "firm_name", Value: func(f *models.InvestmentFund) any { return f.FirmName }},
	{Name: "firm_email", Contact: true, Value: func(f *models.InvestmentFund) any { return f.FirmEmail }},
	{Name: "firm_phone", Contact: true, Value: func(f *models.InvestmentFund) any { return f.FirmPhone }},
	{Name: "firm_website", Value: func(f *models.InvestmentFund) any { return f.FirmWebsite }},
	{Name: "firm_address", Contact: true, Value: func(f *models.InvestmentFund) any { return f.FirmAddress }},
	{Name: "firm_city", Value: func(f *models.InvestmentFund) any { return f.FirmCity }},
	{Name: "firm_state", Value: func(f *models.InvestmentFund) any { return f.FirmState }},
	{Name: "firm_zip", Value: func(f *models.InvestmentFund) any { return f.FirmZip }},
	{Name: "firm_country", Value: func(f *models.InvestmentFund) any { return f.FirmCountry }},
	{Name: "office_type", Value: func(f *models.InvestmentFund) any { return f.OfficeType }},
	{Name: "firm_type", Value: func(f *models.InvestmentFund) any { return f.FirmType }},
	{Name: "financing_type", Value: func(f *models.InvestmentFund) any { return f.FinancingType }},
	{Name: "industry_preferences", Value: func(f *models.InvestmentFund) any { return f.IndustryPreferences }},
	{Name: "geographic_preferences", Value: func(f *models.InvestmentFund) any { return f.GeographicPreferences }},
	{Name: "stage_preferences", Value: func(f *models.InvestmentFund) any { return f.StagePreferences }},
	{Name: "capital_managed", Value: func(f *models.InvestmentFund) any { return f.CapitalManaged }},
	{Name: "min_investment", Value: func(f *models.InvestmentFund) any { return f.MinInvestment }},
	{Name: "max_investment", Value: func(f *models.InvestmentFund) any { return f.MaxInvestment }},
	{Name: "number_of_investors", Value: func(f *models.InvestmentFund) any { return f.NumberOfInvestors }},
	{Name: "gender_ratio", Value: func(f *models.InvestmentFund) any { return f.GenderRatio }},
	{Name: "description", Value: func(f *models.InvestmentFund) any { return f.Description }},
}

// ListInvestorColumns is the condensed investor section of a list export.
var ListInvestorColumns = pick(InvestorColumns,
	"id", "first_name", "last_name", "email", "phone", "firm_name", "city", "state", "country",
	"type_of_financing", "industry_preferences", "stage_preferences", "capital_managed")

// ListFundColumns is the condensed fund section of a list export.
var ListFundColumns = pick(FundColumns,
	"id", "firm_name", "firm_type", "contact_email", "firm_city", "firm_state", "firm_country",
	"financing_type", "industry_preferences", "stage_preferences", "capital_managed")

func pick[T any](cols []Column[T], names ...string) []Column[T] {
	byName := make(map[string]Column[T], len(cols))
	for _, c := range cols {
		byName[c.Name] = c
	}
	out := make([]Column[T], 0, len(names))
	for _, n := range names {
		c, ok := byName[n]
		if !ok {
			panic("export: unknown column " + n)
		}
		out = append(out, c)
	}
	return out
}
