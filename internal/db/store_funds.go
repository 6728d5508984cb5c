package db

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/dealbook/internal/directory"
	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/jackc/pgx/v5"
)

const fundColumns = `id, full_name, title, contact_email, contact_phone, firm_name, firm_email, firm_phone,
	firm_website, firm_address, firm_city, firm_state, firm_zip, firm_country, office_type, financing_type,
	industry_preferences, geographic_preferences, stage_preferences,
	capital_managed, min_investment, max_investment, firm_type, description, number_of_investors, gender_ratio`

func scanFund(row pgx.Row) (models.InvestmentFund, error) {
	var f models.InvestmentFund
	err := row.Scan(
		&f.ID, &f.FullName, &f.Title, &f.ContactEmail, &f.ContactPhone, &f.FirmName, &f.FirmEmail, &f.FirmPhone,
		&f.FirmWebsite, &f.FirmAddress, &f.FirmCity, &f.FirmState, &f.FirmZip, &f.FirmCountry, &f.OfficeType, &f.FinancingType,
		&f.IndustryPreferences, &f.GeographicPreferences, &f.StagePreferences,
		&f.CapitalManaged, &f.MinInvestment, &f.MaxInvestment, &f.FirmType, &f.Description, &f.NumberOfInvestors, &f.GenderRatio,
	)
	if err != nil {
		return f, err
	}
	f.Sanitize()
	return f, nil
}

func fundValues(f *models.InvestmentFund) []any {
	return []any{
		f.FullName, f.Title, f.ContactEmail, f.ContactPhone, f.FirmName, f.FirmEmail, f.FirmPhone,
		f.FirmWebsite, f.FirmAddress, f.FirmCity, f.FirmState, f.FirmZip, f.FirmCountry, f.OfficeType, f.FinancingType,
		f.IndustryPreferences, f.GeographicPreferences, f.StagePreferences,
		f.CapitalManaged, f.MinInvestment, f.MaxInvestment, f.FirmType, f.Description, f.NumberOfInvestors, f.GenderRatio,
	}
}

// CreateFund inserts an investment fund and sets its ID.
func (db *DB) CreateFund(ctx context.Context, f *models.InvestmentFund) error {
	f.Normalize()
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO investment_funds (full_name, title, contact_email, contact_phone, firm_name, firm_email, firm_phone,
			firm_website, firm_address, firm_city, firm_state, firm_zip, firm_country, office_type, financing_type,
			industry_preferences, geographic_preferences, stage_preferences,
			capital_managed, min_investment, max_investment, firm_type, description, number_of_investors, gender_ratio)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25)
		RETURNING id
	`, fundValues(f)...).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("create fund: %w", mapError(err))
	}
	return nil
}

// GetFund returns one investment fund.
func (db *DB) GetFund(ctx context.Context, id int64) (*models.InvestmentFund, error) {
	f, err := scanFund(db.Pool.QueryRow(ctx, "SELECT "+fundColumns+" FROM investment_funds WHERE id = $1", id))
	if err != nil {
		return nil, fmt.Errorf("get fund %d: %w", id, mapError(err))
	}
	return &f, nil
}

// UpdateFund replaces every mutable column of a fund.
func (db *DB) UpdateFund(ctx context.Context, f *models.InvestmentFund) error {
	f.Normalize()
	args := append(fundValues(f), f.ID)
	tag, err := db.Pool.Exec(ctx, `
		UPDATE investment_funds SET full_name = $1, title = $2, contact_email = $3, contact_phone = $4,
			firm_name = $5, firm_email = $6, firm_phone = $7, firm_website = $8, firm_address = $9,
			firm_city = $10, firm_state = $11, firm_zip = $12, firm_country = $13, office_type = $14,
			financing_type = $15, industry_preferences = $16, geographic_preferences = $17,
			stage_preferences = $18, capital_managed = $19, min_investment = $20, max_investment = $21,
			firm_type = $22, description = $23, number_of_investors = $24, gender_ratio = $25
		WHERE id = $26
	`, args...)
	if err != nil {
		return fmt.Errorf("update fund %d: %w", f.ID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update fund %d: %w", f.ID, ErrNotFound)
	}
	return nil
}

// DeleteFund removes a fund and its list memberships.
func (db *DB) DeleteFund(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, "DELETE FROM investment_funds WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete fund %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete fund %d: %w", id, ErrNotFound)
	}
	return nil
}

// SearchFunds returns one page of funds matching f.
func (db *DB) SearchFunds(ctx context.Context, f *directory.Filter, req directory.PageRequest) (directory.Page[models.InvestmentFund], error) {
	return searchPage(ctx, db, &directory.FundSchema, fundColumns, f, req, scanFund)
}

// ListFunds returns one unfiltered page of funds.
func (db *DB) ListFunds(ctx context.Context, req directory.PageRequest) (directory.Page[models.InvestmentFund], error) {
	return db.SearchFunds(ctx, nil, req)
}

// FundsByIDs returns the funds with the given IDs ordered by ID.
func (db *DB) FundsByIDs(ctx context.Context, ids []int64) ([]models.InvestmentFund, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out, err := listRows(ctx, db, "SELECT "+fundColumns+" FROM investment_funds WHERE id = ANY($1) ORDER BY id", []any{ids}, scanFund)
	if err != nil {
		return nil, fmt.Errorf("funds by ids: %w", err)
	}
	return out, nil
}

// ExportFunds returns up to limit funds matching f, ordered by ID.
func (db *DB) ExportFunds(ctx context.Context, f *directory.Filter, limit int) ([]models.InvestmentFund, error) {
	q, err := directory.Compose(&directory.FundSchema, f)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM investment_funds%s ORDER BY id LIMIT $%d", fundColumns, q.SQL(), q.NextArg())
	out, err := listRows(ctx, db, query, append(q.Args, limit), scanFund)
	if err != nil {
		return nil, fmt.Errorf("export funds: %w", err)
	}
	return out, nil
}
