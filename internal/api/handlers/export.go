package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MacJediWizard/dealbook/internal/api/middleware"
	"github.com/MacJediWizard/dealbook/internal/directory"
	"github.com/MacJediWizard/dealbook/internal/export"
	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Export row limits.
const (
	defaultExportLimit = 1000
	maxExportLimit     = 5000
)

// ExportStore defines the bulk read queries used by downloads.
type ExportStore interface {
	ExportInvestors(ctx context.Context, f *directory.Filter, limit int) ([]models.Investor, error)
	ExportFunds(ctx context.Context, f *directory.Filter, limit int) ([]models.InvestmentFund, error)
}

// ExportHandler streams filtered directory tables as CSV or XLSX.
type ExportHandler struct {
	store   ExportStore
	metrics ExportRecorder
	logger  zerolog.Logger
}

// NewExportHandler creates a new ExportHandler. metrics may be nil.
func NewExportHandler(store ExportStore, metrics ExportRecorder, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		store:   store,
		metrics: metrics,
		logger:  logger.With().Str("component", "export_handler").Logger(),
	}
}

// RegisterRoutes registers export routes behind the export feature gate.
func (h *ExportHandler) RegisterRoutes(r *gin.RouterGroup) {
	exports := r.Group("/export", middleware.FeatureGateMiddleware(middleware.FeatureExport, h.logger))
	{
		exports.GET("/investors/csv", h.Investors)
		exports.GET("/funds/csv", h.Funds)
	}
}

// exportParams are the query parameters shared by both downloads.
type exportParams struct {
	filter  *directory.Filter
	limit   int
	format  export.Format
	contact bool
}

func (h *ExportHandler) parseParams(c *gin.Context, schema *directory.Schema) (exportParams, bool) {
	p := exportParams{limit: defaultExportLimit}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxExportLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", maxExportLimit)})
			return p, false
		}
		p.limit = n
	}

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return p, false
	}
	p.format = format

	if raw := c.Query("filter"); raw != "" {
		var f directory.Filter
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter: " + err.Error()})
			return p, false
		}
		if _, err := directory.Compose(schema, &f); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return p, false
		}
		p.filter = &f
	}

	p.contact = middleware.GetFeatures(c).CanSeeContactInfo
	if p.filter != nil {
		p.filter.HideContact = !p.contact
	}
	return p, true
}

// Investors downloads investors matching the optional filter.
//
//	@Summary		Export investors
//	@Description	Downloads up to limit investors as CSV or XLSX. Requires an export-enabled tier.
//	@Tags			Export
//	@Produce		text/csv
//	@Param			limit	query	int		false	"Row limit (1-5000, default 1000)"
//	@Param			format	query	string	false	"csv or xlsx"
//	@Param			filter	query	string	false	"JSON-encoded filter"
//	@Success		200
//	@Failure		400	{object}	map[string]string
//	@Failure		403	{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/export/investors/csv [get]
func (h *ExportHandler) Investors(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}
	p, ok := h.parseParams(c, &directory.InvestorSchema)
	if !ok {
		return
	}

	rows, err := h.store.ExportInvestors(c.Request.Context(), p.filter, p.limit)
	if err != nil {
		h.fail(c, err, "investors")
		return
	}
	writeExport(h, c, "investors", "Investors", export.Select(export.InvestorColumns, p.contact), rows, p.format)
}

// Funds downloads funds matching the optional filter.
// GET /api/v1/export/funds/csv?limit=&format=&filter=
func (h *ExportHandler) Funds(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}
	p, ok := h.parseParams(c, &directory.FundSchema)
	if !ok {
		return
	}

	rows, err := h.store.ExportFunds(c.Request.Context(), p.filter, p.limit)
	if err != nil {
		h.fail(c, err, "funds")
		return
	}
	writeExport(h, c, "funds", "Investment Funds", export.Select(export.FundColumns, p.contact), rows, p.format)
}

func (h *ExportHandler) fail(c *gin.Context, err error, entity string) {
	if isClientFilterError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error().Err(err).Str("entity", entity).Msg("failed to export")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export " + entity})
}

func writeExport[T any](h *ExportHandler, c *gin.Context, entity, sheet string, cols []export.Column[T], rows []T, format export.Format) {
	var buf bytes.Buffer
	var err error
	if format == export.FormatXLSX {
		err = export.WriteXLSX(&buf, export.BuildTable(sheet, cols, rows))
	} else {
		err = export.WriteCSV(&buf, cols, rows)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("entity", entity).Msg("failed to render export")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export " + entity})
		return
	}

	if h.metrics != nil {
		h.metrics.RecordExport(entity, string(format))
	}
	h.logger.Info().
		Str("user_id", middleware.GetUser(c).ID.String()).
		Str("entity", entity).
		Str("format", string(format)).
		Int("rows", len(rows)).
		Msg("export generated")

	filename := fmt.Sprintf("%s_export_%s.%s", entity, time.Now().UTC().Format("20060102_150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
