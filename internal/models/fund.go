package models

import (
	"strings"

	"github.com/MacJediWizard/dealbook/internal/directory"
)

// InvestmentFund is a firm-level record with a primary contact.
type InvestmentFund struct {
	ID                    int64    `json:"id"`
	FullName              *string  `json:"full_name"`
	Title                 *string  `json:"title"`
	ContactEmail          *string  `json:"contact_email"`
	ContactPhone          *string  `json:"contact_phone"`
	FirmName              *string  `json:"firm_name"`
	FirmEmail             *string  `json:"firm_email"`
	FirmPhone             *string  `json:"firm_phone"`
	FirmWebsite           *string  `json:"firm_website"`
	FirmAddress           *string  `json:"firm_address"`
	FirmCity              *string  `json:"firm_city"`
	FirmState             *string  `json:"firm_state"`
	FirmZip               *string  `json:"firm_zip"`
	FirmCountry           *string  `json:"firm_country"`
	OfficeType            *string  `json:"office_type"`
	FinancingType         []string `json:"financing_type"`
	IndustryPreferences   []string `json:"industry_preferences"`
	GeographicPreferences []string `json:"geographic_preferences"`
	StagePreferences      []string `json:"stage_preferences"`
	CapitalManaged        *float64 `json:"capital_managed"`
	MinInvestment         *float64 `json:"min_investment"`
	MaxInvestment         *float64 `json:"max_investment"`
	FirmType              *string  `json:"firm_type"`
	Description           *string  `json:"description"`
	NumberOfInvestors     *float64 `json:"number_of_investors"`
	GenderRatio           *string  `json:"gender_ratio"`
}

// Sanitize makes the record safe to encode.
func (f *InvestmentFund) Sanitize() {
	f.CapitalManaged = directory.ScrubFloat(f.CapitalManaged)
	f.MinInvestment = directory.ScrubFloat(f.MinInvestment)
	f.MaxInvestment = directory.ScrubFloat(f.MaxInvestment)
	f.NumberOfInvestors = directory.ScrubFloat(f.NumberOfInvestors)
	f.FinancingType = directory.NormalizeArray(f.FinancingType)
	f.IndustryPreferences = directory.NormalizeArray(f.IndustryPreferences)
	f.GeographicPreferences = directory.NormalizeArray(f.GeographicPreferences)
	f.StagePreferences = directory.NormalizeArray(f.StagePreferences)
}

// RedactContact clears fields hidden from tiers without contact access.
func (f *InvestmentFund) RedactContact() {
	f.ContactEmail = nil
	f.ContactPhone = nil
	f.FirmEmail = nil
	f.FirmPhone = nil
	f.FirmAddress = nil
}

// Normalize prepares client input for storage.
func (f *InvestmentFund) Normalize() {
	f.Sanitize()
	f.FinancingType = directory.CleanList(f.FinancingType)
	f.IndustryPreferences = directory.CleanList(f.IndustryPreferences)
	f.GeographicPreferences = directory.CleanList(f.GeographicPreferences)
	f.StagePreferences = directory.CleanList(f.StagePreferences)
	f.FirmEmail = trimEmpty(f.FirmEmail)
}

func trimEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
