package db

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/dealbook/internal/directory"
	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/jackc/pgx/v5"
)

const investorColumns = `id, prefix, first_name, last_name, gender, contact_title, email, phone, address,
	office_website, firm_name, city, state, country, type_of_firm, type_of_financing,
	industry_preferences, geographic_preferences, stage_preferences,
	capital_managed, min_investment, max_investment, number_of_investors`

func scanInvestor(row pgx.Row) (models.Investor, error) {
	var i models.Investor
	err := row.Scan(
		&i.ID, &i.Prefix, &i.FirstName, &i.LastName, &i.Gender, &i.ContactTitle, &i.Email, &i.Phone, &i.Address,
		&i.OfficeWebsite, &i.FirmName, &i.City, &i.State, &i.Country, &i.TypeOfFirm, &i.TypeOfFinancing,
		&i.IndustryPreferences, &i.GeographicPreferences, &i.StagePreferences,
		&i.CapitalManaged, &i.MinInvestment, &i.MaxInvestment, &i.NumberOfInvestors,
	)
	if err != nil {
		return i, err
	}
	i.Sanitize()
	return i, nil
}

func investorValues(i *models.Investor) []any {
	return []any{
		i.Prefix, i.FirstName, i.LastName, i.Gender, i.ContactTitle, i.Email, i.Phone, i.Address,
		i.OfficeWebsite, i.FirmName, i.City, i.State, i.Country, i.TypeOfFirm, i.TypeOfFinancing,
		i.IndustryPreferences, i.GeographicPreferences, i.StagePreferences,
		i.CapitalManaged, i.MinInvestment, i.MaxInvestment, i.NumberOfInvestors,
	}
}

// CreateInvestor inserts an investor and sets its ID.
func (db *DB) CreateInvestor(ctx context.Context, i *models.Investor) error {
	i.Normalize()
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO investors (prefix, first_name, last_name, gender, contact_title, email, phone, address,
			office_website, firm_name, city, state, country, type_of_firm, type_of_financing,
			industry_preferences, geographic_preferences, stage_preferences,
			capital_managed, min_investment, max_investment, number_of_investors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id
	`, investorValues(i)...).Scan(&i.ID)
	if err != nil {
		return fmt.Errorf("create investor: %w", mapError(err))
	}
	return nil
}

// GetInvestor returns one investor.
func (db *DB) GetInvestor(ctx context.Context, id int64) (*models.Investor, error) {
	i, err := scanInvestor(db.Pool.QueryRow(ctx, "SELECT "+investorColumns+" FROM investors WHERE id = $1", id))
	if err != nil {
		return nil, fmt.Errorf("get investor %d: %w", id, mapError(err))
	}
	return &i, nil
}

// UpdateInvestor replaces every mutable column of an investor.
func (db *DB) UpdateInvestor(ctx context.Context, i *models.Investor) error {
	i.Normalize()
	args := append(investorValues(i), i.ID)
	tag, err := db.Pool.Exec(ctx, `
		UPDATE investors SET prefix = $1, first_name = $2, last_name = $3, gender = $4, contact_title = $5,
			email = $6, phone = $7, address = $8, office_website = $9, firm_name = $10, city = $11,
			state = $12, country = $13, type_of_firm = $14, type_of_financing = $15,
			industry_preferences = $16, geographic_preferences = $17, stage_preferences = $18,
			capital_managed = $19, min_investment = $20, max_investment = $21, number_of_investors = $22
		WHERE id = $23
	`, args...)
	if err != nil {
		return fmt.Errorf("update investor %d: %w", i.ID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update investor %d: %w", i.ID, ErrNotFound)
	}
	return nil
}

// DeleteInvestor removes an investor and its list memberships.
func (db *DB) DeleteInvestor(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, "DELETE FROM investors WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete investor %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete investor %d: %w", id, ErrNotFound)
	}
	return nil
}

// SearchInvestors returns one page of investors matching f. A nil filter
// lists every investor.
func (db *DB) SearchInvestors(ctx context.Context, f *directory.Filter, req directory.PageRequest) (directory.Page[models.Investor], error) {
	return searchPage(ctx, db, &directory.InvestorSchema, investorColumns, f, req, scanInvestor)
}

// ListInvestors returns one unfiltered page of investors.
func (db *DB) ListInvestors(ctx context.Context, req directory.PageRequest) (directory.Page[models.Investor], error) {
	return db.SearchInvestors(ctx, nil, req)
}

// InvestorsByIDs returns the investors with the given IDs ordered by ID.
func (db *DB) InvestorsByIDs(ctx context.Context, ids []int64) ([]models.Investor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out, err := listRows(ctx, db, "SELECT "+investorColumns+" FROM investors WHERE id = ANY($1) ORDER BY id", []any{ids}, scanInvestor)
	if err != nil {
		return nil, fmt.Errorf("investors by ids: %w", err)
	}
	return out, nil
}

// ExportInvestors returns up to limit investors matching f, ordered by ID.
func (db *DB) ExportInvestors(ctx context.Context, f *directory.Filter, limit int) ([]models.Investor, error) {
	q, err := directory.Compose(&directory.InvestorSchema, f)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM investors%s ORDER BY id LIMIT $%d", investorColumns, q.SQL(), q.NextArg())
	out, err := listRows(ctx, db, query, append(q.Args, limit), scanInvestor)
	if err != nil {
		return nil, fmt.Errorf("export investors: %w", err)
	}
	return out, nil
}
