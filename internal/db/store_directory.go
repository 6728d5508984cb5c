package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/MacJediWizard/dealbook/internal/directory"
	"github.com/jackc/pgx/v5"
)

// scanFunc reads one row into a record.
type scanFunc[T any] func(row pgx.Row) (T, error)

// searchPage counts and fetches one page of matching rows. Both statements
// share the composed predicate and run in the same snapshot.
func searchPage[T any](ctx context.Context, db *DB, s *directory.Schema, columns string, f *directory.Filter, req directory.PageRequest, scan scanFunc[T]) (directory.Page[T], error) {
	req, err := req.Normalize()
	if err != nil {
		return directory.Page[T]{}, err
	}
	q, err := directory.Compose(s, f)
	if err != nil {
		return directory.Page[T]{}, err
	}

	var (
		total   int64
		results []T
	)
	err = db.ReadTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM "+s.Table+q.SQL(), q.Args...).Scan(&total); err != nil {
			return fmt.Errorf("count %s: %w", s.Entity, err)
		}
		if int64(req.Offset()) >= total {
			return nil
		}

		argIdx := q.NextArg()
		query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id LIMIT $%d OFFSET $%d",
			columns, s.Table, q.SQL(), argIdx, argIdx+1)
		args := append(append([]any{}, q.Args...), req.PerPage, req.Offset())

		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query %s: %w", s.Entity, err)
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := scan(rows)
			if err != nil {
				return fmt.Errorf("scan %s: %w", s.Entity, err)
			}
			results = append(results, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return directory.Page[T]{}, err
	}
	return directory.NewPage(req, total, results), nil
}

// prefixed qualifies a comma-separated column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// listRows runs a query and scans every row.
func listRows[T any](ctx context.Context, db *DB, query string, args []any, scan scanFunc[T]) ([]T, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FacetCounts returns value counts per facet for rows matching the filter.
// Facets whose group is listed in exclude are skipped.
func (db *DB) FacetCounts(ctx context.Context, s *directory.Schema, f *directory.Filter, exclude []string) (map[string]map[string]int64, error) {
	q, err := directory.Compose(s, f)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]map[string]int64)
	err = db.ReadTx(ctx, func(tx pgx.Tx) error {
		for _, facet := range directory.FacetsFor(s, exclude) {
			rows, err := tx.Query(ctx, directory.FacetSQL(s, facet, q), q.Args...)
			if err != nil {
				return fmt.Errorf("facet %s: %w", facet.Name, err)
			}
			bucket := make(map[string]int64)
			for rows.Next() {
				var value string
				var n int64
				if err := rows.Scan(&value, &n); err != nil {
					rows.Close()
					return fmt.Errorf("scan facet %s: %w", facet.Name, err)
				}
				bucket[value] = n
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return fmt.Errorf("facet %s: %w", facet.Name, err)
			}
			counts[facet.Name] = bucket
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// DirectoryStats holds table totals for the stats endpoint.
type DirectoryStats struct {
	TotalInvestors int64 `json:"total_investors"`
	TotalFunds     int64 `json:"total_funds"`
	TotalUsers     int64 `json:"total_users"`
	TotalLists     int64 `json:"total_lists"`
}

// Stats returns row counts for the main tables.
func (db *DB) Stats(ctx context.Context) (*DirectoryStats, error) {
	var st DirectoryStats
	err := db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM investors),
			(SELECT COUNT(*) FROM investment_funds),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM saved_lists)
	`).Scan(&st.TotalInvestors, &st.TotalFunds, &st.TotalUsers, &st.TotalLists)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &st, nil
}
