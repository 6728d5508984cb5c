package directory

import (
	"encoding/json"
	"strings"
)

// StringList decodes from either a JSON string or an array of strings.
// Blank entries are dropped.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var single *string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = nil
		if single != nil {
			*l = compactStrings([]string{*single})
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = compactStrings(many)
	return nil
}

func compactStrings(in []string) StringList {
	var out StringList
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// LocationFilter restricts results by place and geographic preference.
type LocationFilter struct {
	City                StringList `json:"city,omitempty"`
	State               StringList `json:"state,omitempty"`
	Country             StringList `json:"country,omitempty"`
	LocationPreferences StringList `json:"location_preferences,omitempty"`
}

// ContactInfoFilter is tri-state per field: true requires the value to be
// present, false requires it to be missing, nil ignores it.
type ContactInfoFilter struct {
	HasEmail   *bool `json:"hasEmail,omitempty"`
	HasPhone   *bool `json:"hasPhone,omitempty"`
	HasAddress *bool `json:"hasAddress,omitempty"`
}

type IndustryFilter struct {
	Industries StringList `json:"industries,omitempty"`
}

type StageFilter struct {
	Stages StringList `json:"stages,omitempty"`
}

type FundTypeFilter struct {
	Types StringList `json:"types,omitempty"`
}

// InvestmentRangesFilter holds tier labels per numeric column. Labels within
// a field are alternatives.
type InvestmentRangesFilter struct {
	AssetsUnderManagement StringList `json:"assetsUnderManagement,omitempty"`
	MinInvestment         StringList `json:"minInvestment,omitempty"`
	MaxInvestment         StringList `json:"maxInvestment,omitempty"`
}

type JobTitleFilter struct {
	Titles StringList `json:"titles,omitempty"`
}

type GenderFilter struct {
	Gender string `json:"gender,omitempty"`
}

type InvestorCountFilter struct {
	Range StringList `json:"range,omitempty"`
}

type GenderRatioFilter struct {
	Ratio StringList `json:"ratio,omitempty"`
}

// Filter is the structured search request accepted by both entity tables.
type Filter struct {
	SearchTerm       string                  `json:"searchTerm,omitempty"`
	Location         *LocationFilter         `json:"location,omitempty"`
	ContactInfo      *ContactInfoFilter      `json:"contactInfo,omitempty"`
	Industry         *IndustryFilter         `json:"industry,omitempty"`
	FundType         *FundTypeFilter         `json:"fundType,omitempty"`
	Stages           *StageFilter            `json:"stages,omitempty"`
	InvestmentRanges *InvestmentRangesFilter `json:"investmentRanges,omitempty"`
	JobTitle         *JobTitleFilter         `json:"jobTitle,omitempty"`
	Gender           *GenderFilter           `json:"gender,omitempty"`
	InvestorCount    *InvestorCountFilter    `json:"investorCount,omitempty"`
	GenderRatio      *GenderRatioFilter      `json:"genderRatio,omitempty"`

	// HideContact keeps contact columns out of the free-text search. Set by
	// the server for tiers without contact access, never by clients.
	HideContact bool `json:"-"`
}

// IsEmpty reports whether the filter constrains nothing.
func (f *Filter) IsEmpty() bool {
	if f == nil {
		return true
	}
	return strings.TrimSpace(f.SearchTerm) == "" &&
		f.Location.empty() && f.ContactInfo.empty() &&
		(f.Industry == nil || len(f.Industry.Industries) == 0) &&
		(f.FundType == nil || len(f.FundType.Types) == 0) &&
		(f.Stages == nil || len(f.Stages.Stages) == 0) &&
		f.InvestmentRanges.empty() &&
		(f.JobTitle == nil || len(f.JobTitle.Titles) == 0) &&
		(f.Gender == nil || strings.TrimSpace(f.Gender.Gender) == "") &&
		(f.InvestorCount == nil || len(f.InvestorCount.Range) == 0) &&
		(f.GenderRatio == nil || len(f.GenderRatio.Ratio) == 0)
}

// Filter group names, used by facet exclusion.
const (
	GroupSearch        = "search"
	GroupLocation      = "location"
	GroupContact       = "contact"
	GroupIndustry      = "industry"
	GroupFundType      = "fund_type"
	GroupStages        = "stages"
	GroupRanges        = "investment_ranges"
	GroupJobTitle      = "job_title"
	GroupGender        = "gender"
	GroupInvestorCount = "investor_count"
)

func (l *LocationFilter) empty() bool {
	return l == nil || (len(l.City) == 0 && len(l.State) == 0 && len(l.Country) == 0 && len(l.LocationPreferences) == 0)
}

func (c *ContactInfoFilter) empty() bool {
	return c == nil || (c.HasEmail == nil && c.HasPhone == nil && c.HasAddress == nil)
}

func (r *InvestmentRangesFilter) empty() bool {
	return r == nil || (len(r.AssetsUnderManagement) == 0 && len(r.MinInvestment) == 0 && len(r.MaxInvestment) == 0)
}
