package db

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const savedListSelect = `
	SELECT l.id, l.user_id, l.name, l.description, l.list_type, l.created_at, l.updated_at,
		(SELECT COUNT(*) FROM saved_list_investors si WHERE si.list_id = l.id),
		(SELECT COUNT(*) FROM saved_list_funds sf WHERE sf.list_id = l.id)
	FROM saved_lists l`

func scanSavedList(row pgx.Row) (models.SavedList, error) {
	var l models.SavedList
	var listType string
	err := row.Scan(&l.ID, &l.UserID, &l.Name, &l.Description, &listType, &l.CreatedAt, &l.UpdatedAt,
		&l.InvestorCount, &l.FundCount)
	l.ListType = models.ListType(listType)
	return l, err
}

// CreateSavedList inserts a new list.
func (db *DB) CreateSavedList(ctx context.Context, l *models.SavedList) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO saved_lists (id, user_id, name, description, list_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, l.ID, l.UserID, l.Name, l.Description, string(l.ListType), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create saved list: %w", mapError(err))
	}
	return nil
}

// ListSavedLists returns a user's lists, newest first.
func (db *DB) ListSavedLists(ctx context.Context, userID uuid.UUID, skip, limit int) ([]models.SavedList, error) {
	out, err := listRows(ctx, db,
		savedListSelect+" WHERE l.user_id = $1 ORDER BY l.created_at DESC, l.id OFFSET $2 LIMIT $3",
		[]any{userID, skip, limit}, scanSavedList)
	if err != nil {
		return nil, fmt.Errorf("list saved lists: %w", err)
	}
	return out, nil
}

// GetSavedList returns a list owned by userID. Lists of other users are
// reported as not found.
func (db *DB) GetSavedList(ctx context.Context, userID, listID uuid.UUID) (*models.SavedList, error) {
	l, err := scanSavedList(db.Pool.QueryRow(ctx, savedListSelect+" WHERE l.id = $1 AND l.user_id = $2", listID, userID))
	if err != nil {
		return nil, fmt.Errorf("get saved list: %w", mapError(err))
	}
	return &l, nil
}

// UpdateSavedListType changes the declared type of a list.
func (db *DB) UpdateSavedListType(ctx context.Context, userID, listID uuid.UUID, t models.ListType) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE saved_lists SET list_type = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2
	`, listID, userID, string(t))
	if err != nil {
		return fmt.Errorf("update saved list type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update saved list type: %w", ErrNotFound)
	}
	return nil
}

// DeleteSavedList removes a list and its memberships.
func (db *DB) DeleteSavedList(ctx context.Context, userID, listID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, "DELETE FROM saved_lists WHERE id = $1 AND user_id = $2", listID, userID)
	if err != nil {
		return fmt.Errorf("delete saved list: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete saved list: %w", ErrNotFound)
	}
	return nil
}

// listMember names the join table and foreign key of one entity.
type listMember struct {
	table  string
	column string
	target string
}

var (
	investorMember = listMember{table: "saved_list_investors", column: "investor_id", target: "investors"}
	fundMember     = listMember{table: "saved_list_funds", column: "fund_id", target: "investment_funds"}
)

// addToList is idempotent. It fails with ErrNotFound when the list is not
// owned by userID or the entity does not exist.
func (db *DB) addToList(ctx context.Context, m listMember, userID, listID uuid.UUID, entityID int64) error {
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if err := touchOwnedList(ctx, tx, userID, listID); err != nil {
			return err
		}
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM "+m.target+" WHERE id = $1)", entityID).Scan(&exists); err != nil {
			return fmt.Errorf("check %s: %w", m.target, err)
		}
		if !exists {
			return fmt.Errorf("%s %d: %w", m.target, entityID, ErrNotFound)
		}
		_, err := tx.Exec(ctx,
			"INSERT INTO "+m.table+" (list_id, "+m.column+") VALUES ($1, $2) ON CONFLICT DO NOTHING",
			listID, entityID)
		if err != nil {
			return fmt.Errorf("add to list: %w", mapError(err))
		}
		return nil
	})
}

func (db *DB) removeFromList(ctx context.Context, m listMember, userID, listID uuid.UUID, entityID int64) error {
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if err := touchOwnedList(ctx, tx, userID, listID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, "DELETE FROM "+m.table+" WHERE list_id = $1 AND "+m.column+" = $2", listID, entityID)
		if err != nil {
			return fmt.Errorf("remove from list: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%s %d not in list: %w", m.target, entityID, ErrNotFound)
		}
		return nil
	})
}

func touchOwnedList(ctx context.Context, tx pgx.Tx, userID, listID uuid.UUID) error {
	tag, err := tx.Exec(ctx, "UPDATE saved_lists SET updated_at = NOW() WHERE id = $1 AND user_id = $2", listID, userID)
	if err != nil {
		return fmt.Errorf("lock saved list: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("saved list %s: %w", listID, ErrNotFound)
	}
	return nil
}

// AddInvestorToList adds an investor to a list.
func (db *DB) AddInvestorToList(ctx context.Context, userID, listID uuid.UUID, investorID int64) error {
	return db.addToList(ctx, investorMember, userID, listID, investorID)
}

// RemoveInvestorFromList removes an investor from a list.
func (db *DB) RemoveInvestorFromList(ctx context.Context, userID, listID uuid.UUID, investorID int64) error {
	return db.removeFromList(ctx, investorMember, userID, listID, investorID)
}

// AddFundToList adds a fund to a list.
func (db *DB) AddFundToList(ctx context.Context, userID, listID uuid.UUID, fundID int64) error {
	return db.addToList(ctx, fundMember, userID, listID, fundID)
}

// RemoveFundFromList removes a fund from a list.
func (db *DB) RemoveFundFromList(ctx context.Context, userID, listID uuid.UUID, fundID int64) error {
	return db.removeFromList(ctx, fundMember, userID, listID, fundID)
}

// GetListItems returns the investors and funds of a list owned by userID.
func (db *DB) GetListItems(ctx context.Context, userID, listID uuid.UUID) (*models.ListItems, error) {
	items := &models.ListItems{Investors: []models.Investor{}, Funds: []models.InvestmentFund{}}
	err := db.ReadTx(ctx, func(tx pgx.Tx) error {
		var owned bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM saved_lists WHERE id = $1 AND user_id = $2)", listID, userID).Scan(&owned); err != nil {
			return fmt.Errorf("check saved list: %w", err)
		}
		if !owned {
			return fmt.Errorf("saved list %s: %w", listID, ErrNotFound)
		}

		rows, err := tx.Query(ctx, `
			SELECT `+prefixed("i", investorColumns)+` FROM investors i
			JOIN saved_list_investors s ON s.investor_id = i.id
			WHERE s.list_id = $1 ORDER BY s.added_at, i.id
		`, listID)
		if err != nil {
			return fmt.Errorf("list investors: %w", err)
		}
		for rows.Next() {
			inv, err := scanInvestor(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scan investor: %w", err)
			}
			items.Investors = append(items.Investors, inv)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		rows, err = tx.Query(ctx, `
			SELECT `+prefixed("f", fundColumns)+` FROM investment_funds f
			JOIN saved_list_funds s ON s.fund_id = f.id
			WHERE s.list_id = $1 ORDER BY s.added_at, f.id
		`, listID)
		if err != nil {
			return fmt.Errorf("list funds: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			fund, err := scanFund(rows)
			if err != nil {
				return fmt.Errorf("scan fund: %w", err)
			}
			items.Funds = append(items.Funds, fund)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	items.InvestorCount = len(items.Investors)
	items.FundCount = len(items.Funds)
	return items, nil
}
