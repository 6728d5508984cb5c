package directory

// Facet describes one grouped count exposed by the counts endpoints.
type Facet struct {
	Name   string
	Group  string
	Column string
	Array  bool
}

// Schema maps filter fields onto the columns of one entity table. An empty
// column name means the entity does not support that filter.
type Schema struct {
	Entity string
	Table  string

	SearchColumns []string

	CityColumn    string
	StateColumn   string
	CountryColumn string

	LocationPrefsColumn string
	IndustriesColumn    string
	StagesColumn        string

	// Fund types either overlap FundTypeOverlapColumn exactly, or match the
	// scalar column or any element of the array column by substring.
	FundTypeOverlapColumn string
	FundTypeColumn        string
	FundTypeArrayColumn   string

	// Email and phone are present when any listed column has a value.
	// Address is present only when every listed column has a value.
	EmailColumns   []string
	PhoneColumns   []string
	AddressColumns []string

	CapitalColumn       string
	MinInvestmentColumn string
	MaxInvestmentColumn string
	InvestorCountColumn string

	JobTitleColumn    string
	GenderColumn      string
	GenderRatioColumn string

	// ContactColumns are hidden from tiers without contact access.
	ContactColumns []string
	ArrayColumns   []string

	Facets []Facet
}

// InvestorSchema describes the investors table.
var InvestorSchema = Schema{
	Entity:                "investors",
	Table:                 "investors",
	SearchColumns:         []string{"first_name", "last_name", "firm_name", "contact_title", "email"},
	CityColumn:            "city",
	StateColumn:           "state",
	CountryColumn:         "country",
	LocationPrefsColumn:   "geographic_preferences",
	IndustriesColumn:      "industry_preferences",
	StagesColumn:          "stage_preferences",
	FundTypeOverlapColumn: "type_of_financing",
	EmailColumns:          []string{"email"},
	PhoneColumns:          []string{"phone"},
	AddressColumns:        []string{"address", "city"},
	CapitalColumn:         "capital_managed",
	MinInvestmentColumn:   "min_investment",
	MaxInvestmentColumn:   "max_investment",
	InvestorCountColumn:   "number_of_investors",
	JobTitleColumn:        "contact_title",
	GenderColumn:          "gender",
	ContactColumns:        []string{"email", "phone", "address"},
	ArrayColumns:          []string{"type_of_financing", "industry_preferences", "geographic_preferences", "stage_preferences"},
	Facets: []Facet{
		{Name: "cities", Group: GroupLocation, Column: "city"},
		{Name: "states", Group: GroupLocation, Column: "state"},
		{Name: "countries", Group: GroupLocation, Column: "country"},
		{Name: "location_preferences", Group: GroupLocation, Column: "geographic_preferences", Array: true},
		{Name: "industries", Group: GroupIndustry, Column: "industry_preferences", Array: true},
		{Name: "stages", Group: GroupStages, Column: "stage_preferences", Array: true},
		{Name: "fund_types", Group: GroupFundType, Column: "type_of_financing", Array: true},
		{Name: "job_titles", Group: GroupJobTitle, Column: "contact_title"},
		{Name: "genders", Group: GroupGender, Column: "gender"},
	},
}

// FundSchema describes the investment_funds table.
var FundSchema = Schema{
	Entity:              "funds",
	Table:               "investment_funds",
	SearchColumns:       []string{"firm_name", "full_name", "firm_email", "contact_email", "description"},
	CityColumn:          "firm_city",
	StateColumn:         "firm_state",
	CountryColumn:       "firm_country",
	LocationPrefsColumn: "geographic_preferences",
	IndustriesColumn:    "industry_preferences",
	StagesColumn:        "stage_preferences",
	FundTypeColumn:      "firm_type",
	FundTypeArrayColumn: "financing_type",
	EmailColumns:        []string{"firm_email", "contact_email"},
	PhoneColumns:        []string{"firm_phone", "contact_phone"},
	AddressColumns:      []string{"firm_address", "firm_city"},
	CapitalColumn:       "capital_managed",
	MinInvestmentColumn: "min_investment",
	MaxInvestmentColumn: "max_investment",
	InvestorCountColumn: "number_of_investors",
	GenderRatioColumn:   "gender_ratio",
	ContactColumns:      []string{"contact_email", "contact_phone", "firm_email", "firm_phone", "firm_address"},
	ArrayColumns:        []string{"financing_type", "industry_preferences", "geographic_preferences", "stage_preferences"},
	Facets: []Facet{
		{Name: "cities", Group: GroupLocation, Column: "firm_city"},
		{Name: "states", Group: GroupLocation, Column: "firm_state"},
		{Name: "countries", Group: GroupLocation, Column: "firm_country"},
		{Name: "location_preferences", Group: GroupLocation, Column: "geographic_preferences", Array: true},
		{Name: "industries", Group: GroupIndustry, Column: "industry_preferences", Array: true},
		{Name: "stages", Group: GroupStages, Column: "stage_preferences", Array: true},
		{Name: "fund_types", Group: GroupFundType, Column: "firm_type"},
		{Name: "gender_ratios", Group: GroupGender, Column: "gender_ratio"},
	},
}

// SchemaFor resolves an entity name as used in URLs.
func SchemaFor(entity string) (*Schema, bool) {
	switch entity {
	case "investors", "investor":
		return &InvestorSchema, true
	case "funds", "fund", "investment-funds", "investment_funds":
		return &FundSchema, true
	}
	return nil, false
}
