package models

import (
	"github.com/MacJediWizard/dealbook/internal/directory"
)

// Investor is an individual contact at an investing firm.
type Investor struct {
	ID                    int64    `json:"id"`
	Prefix                *string  `json:"prefix"`
	FirstName             *string  `json:"first_name"`
	LastName              *string  `json:"last_name"`
	Gender                *string  `json:"gender"`
	ContactTitle          *string  `json:"contact_title"`
	Email                 *string  `json:"email"`
	Phone                 *string  `json:"phone"`
	Address               *string  `json:"address"`
	OfficeWebsite         *string  `json:"office_website"`
	FirmName              *string  `json:"firm_name"`
	City                  *string  `json:"city"`
	State                 *string  `json:"state"`
	Country               *string  `json:"country"`
	TypeOfFirm            *string  `json:"type_of_firm"`
	TypeOfFinancing       []string `json:"type_of_financing"`
	IndustryPreferences   []string `json:"industry_preferences"`
	GeographicPreferences []string `json:"geographic_preferences"`
	StagePreferences      []string `json:"stage_preferences"`
	CapitalManaged        *float64 `json:"capital_managed"`
	MinInvestment         *float64 `json:"min_investment"`
	MaxInvestment         *float64 `json:"max_investment"`
	NumberOfInvestors     *float64 `json:"number_of_investors"`
}

// Sanitize makes the record safe to encode: non-finite numbers become null
// and array columns are flattened and trimmed.
func (i *Investor) Sanitize() {
	i.CapitalManaged = directory.ScrubFloat(i.CapitalManaged)
	i.MinInvestment = directory.ScrubFloat(i.MinInvestment)
	i.MaxInvestment = directory.ScrubFloat(i.MaxInvestment)
	i.NumberOfInvestors = directory.ScrubFloat(i.NumberOfInvestors)
	i.TypeOfFinancing = directory.NormalizeArray(i.TypeOfFinancing)
	i.IndustryPreferences = directory.NormalizeArray(i.IndustryPreferences)
	i.GeographicPreferences = directory.NormalizeArray(i.GeographicPreferences)
	i.StagePreferences = directory.NormalizeArray(i.StagePreferences)
}

// RedactContact clears fields hidden from tiers without contact access.
func (i *Investor) RedactContact() {
	i.Email = nil
	i.Phone = nil
	i.Address = nil
}

// Normalize prepares client input for storage.
func (i *Investor) Normalize() {
	i.Sanitize()
	i.TypeOfFinancing = directory.CleanList(i.TypeOfFinancing)
	i.IndustryPreferences = directory.CleanList(i.IndustryPreferences)
	i.GeographicPreferences = directory.CleanList(i.GeographicPreferences)
	i.StagePreferences = directory.CleanList(i.StagePreferences)
	i.Email = trimEmpty(i.Email)
}

// DisplayName joins the available name parts.
func (i *Investor) DisplayName() string {
	name := deref(i.FirstName)
	if last := deref(i.LastName); last != "" {
		if name != "" {
			name += " "
		}
		name += last
	}
	return name
}
