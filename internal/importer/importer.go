// Package importer bulk-loads investors and funds from CSV exports.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/MacJediWizard/dealbook/internal/db"
	"github.com/MacJediWizard/dealbook/internal/models"
)

// Entity selects which table an import writes to.
type Entity string

// Importable entities.
const (
	Investors Entity = "investors"
	Funds     Entity = "funds"
)

// ParseEntity validates an entity name.
func ParseEntity(s string) (Entity, error) {
	switch s {
	case "investors", "investor":
		return Investors, nil
	case "funds", "fund", "investment-funds", "investment_funds":
		return Funds, nil
	}
	return "", fmt.Errorf("unknown import entity %q", s)
}

// Store is the persistence the importer needs.
type Store interface {
	CreateInvestor(ctx context.Context, i *models.Investor) error
	CreateFund(ctx context.Context, f *models.InvestmentFund) error
}

// RowError records why one row was skipped.
type RowError struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

// Result summarizes an import run.
type Result struct {
	Processed int        `json:"processed"`
	Inserted  int        `json:"inserted"`
	Skipped   int        `json:"skipped"`
	Errors    []RowError `json:"errors,omitempty"`
}

// maxRecordedErrors caps Result.Errors; Skipped still counts every row.
const maxRecordedErrors = 100

func (r *Result) fail(line int, err error) {
	r.Skipped++
	if len(r.Errors) < maxRecordedErrors {
		r.Errors = append(r.Errors, RowError{Line: line, Err: err.Error()})
	}
}

// Importer reads CSV rows, cleans them and inserts them one at a time.
type Importer struct {
	store  Store
	logger zerolog.Logger
}

// New creates an Importer.
func New(store Store, logger zerolog.Logger) *Importer {
	return &Importer{
		store:  store,
		logger: logger.With().Str("component", "importer").Logger(),
	}
}

// Import loads every row of r into the entity's table. Rows that fail to
// parse or insert are counted and skipped.
func (im *Importer) Import(ctx context.Context, entity Entity, r io.Reader) (*Result, error) {
	switch entity {
	case Investors:
		return run(ctx, im, r, investorMapping, func(ctx context.Context, rec *models.Investor) error {
			rec.Normalize()
			return im.store.CreateInvestor(ctx, rec)
		})
	case Funds:
		return run(ctx, im, r, fundMapping, func(ctx context.Context, rec *models.InvestmentFund) error {
			rec.Normalize()
			return im.store.CreateFund(ctx, rec)
		})
	}
	return nil, fmt.Errorf("unknown import entity %q", entity)
}

func run[T any](ctx context.Context, im *Importer, r io.Reader, mapping map[string]binding[T],
	insert func(context.Context, *T) error) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	header = append([]string(nil), header...)
	plan := planColumns(header, mapping)
	if len(plan.bindings) == 0 {
		return nil, fmt.Errorf("csv header matches no known columns")
	}
	if len(plan.unknown) > 0 {
		im.logger.Warn().Strs("columns", plan.unknown).Msg("ignoring unknown columns")
	}

	result := &Result{}
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		record, err := reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		result.Processed++
		if err != nil {
			im.logger.Error().Err(err).Int("line", line).Msg("malformed csv row")
			result.fail(line, err)
			continue
		}

		rec := plan.apply(record)
		if err := insert(ctx, &rec); err != nil {
			if errors.Is(err, db.ErrConflict) {
				err = fmt.Errorf("duplicate record: %w", err)
			}
			im.logger.Error().Err(err).Int("line", line).Msg("failed to insert row")
			result.fail(line, err)
			continue
		}
		result.Inserted++

		if result.Processed%100 == 0 {
			im.logger.Info().
				Int("processed", result.Processed).
				Int("skipped", result.Skipped).
				Msg("import progress")
		}
	}

	im.logger.Info().
		Int("processed", result.Processed).
		Int("inserted", result.Inserted).
		Int("skipped", result.Skipped).
		Msg("import completed")
	return result, nil
}
