package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ListType declares what a saved list is meant to hold.
type ListType string

const (
	ListTypeInvestor ListType = "investor"
	ListTypeFund     ListType = "fund"
	ListTypeMixed    ListType = "mixed"
)

// ParseListType validates a list type. An empty value is mixed.
func ParseListType(s string) (ListType, error) {
	switch ListType(s) {
	case "":
		return ListTypeMixed, nil
	case ListTypeInvestor, ListTypeFund, ListTypeMixed:
		return ListType(s), nil
	}
	return "", fmt.Errorf("invalid list type %q", s)
}

// SavedList is a user-owned collection of investors and funds.
type SavedList struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	ListType      ListType  `json:"list_type"`
	InvestorCount int       `json:"investor_count"`
	FundCount     int       `json:"fund_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewSavedList creates a list owned by userID.
func NewSavedList(userID uuid.UUID, name string, description *string, listType ListType) *SavedList {
	now := time.Now()
	return &SavedList{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Description: description,
		ListType:    listType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ListItems is the content of a saved list split by entity.
type ListItems struct {
	Investors     []Investor       `json:"investors"`
	Funds         []InvestmentFund `json:"funds"`
	InvestorCount int              `json:"investor_count"`
	FundCount     int              `json:"fund_count"`
}
