package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/MacJediWizard/dealbook/internal/api/middleware"
	"github.com/MacJediWizard/dealbook/internal/db"
	"github.com/MacJediWizard/dealbook/internal/directory"
	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/MacJediWizard/dealbook/internal/plans"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// InvestorStore defines the interface for investor persistence operations.
type InvestorStore interface {
	CreateInvestor(ctx context.Context, i *models.Investor) error
	GetInvestor(ctx context.Context, id int64) (*models.Investor, error)
	UpdateInvestor(ctx context.Context, i *models.Investor) error
	DeleteInvestor(ctx context.Context, id int64) error
	ListInvestors(ctx context.Context, req directory.PageRequest) (directory.Page[models.Investor], error)
	SearchInvestors(ctx context.Context, f *directory.Filter, req directory.PageRequest) (directory.Page[models.Investor], error)
}

// FundStore defines the interface for investment fund persistence operations.
type FundStore interface {
	CreateFund(ctx context.Context, f *models.InvestmentFund) error
	GetFund(ctx context.Context, id int64) (*models.InvestmentFund, error)
	UpdateFund(ctx context.Context, f *models.InvestmentFund) error
	DeleteFund(ctx context.Context, id int64) error
	ListFunds(ctx context.Context, req directory.PageRequest) (directory.Page[models.InvestmentFund], error)
	SearchFunds(ctx context.Context, f *directory.Filter, req directory.PageRequest) (directory.Page[models.InvestmentFund], error)
}

// UsageStore consumes monthly search quota. limit is the effective monthly
// limit of the caller's tier, negative for unlimited.
type UsageStore interface {
	RecordSearch(ctx context.Context, id uuid.UUID, limit int) (used int, allowed bool, err error)
	RefundSearch(ctx context.Context, id uuid.UUID) error
}

// SearchRecorder observes completed searches. *metrics.Metrics satisfies it.
type SearchRecorder interface {
	RecordSearch(entity string, total int64)
}

// recordOps binds the generic handler to one entity table.
type recordOps[T any] struct {
	label  string
	schema *directory.Schema
	create func(context.Context, *T) error
	get    func(context.Context, int64) (*T, error)
	update func(context.Context, *T) error
	delete func(context.Context, int64) error
	list   func(context.Context, directory.PageRequest) (directory.Page[T], error)
	search func(context.Context, *directory.Filter, directory.PageRequest) (directory.Page[T], error)
	setID  func(*T, int64)
	redact func(*T)
}

// RecordsHandler serves CRUD and search for one directory entity.
type RecordsHandler[T any] struct {
	ops     recordOps[T]
	usage   UsageStore
	metrics SearchRecorder
	logger  zerolog.Logger
}

// NewInvestorsHandler creates a handler for /investors.
func NewInvestorsHandler(store InvestorStore, usage UsageStore, metrics SearchRecorder, logger zerolog.Logger) *RecordsHandler[models.Investor] {
	return &RecordsHandler[models.Investor]{
		ops: recordOps[models.Investor]{
			label:  "investor",
			schema: &directory.InvestorSchema,
			create: store.CreateInvestor,
			get:    store.GetInvestor,
			update: store.UpdateInvestor,
			delete: store.DeleteInvestor,
			list:   store.ListInvestors,
			search: store.SearchInvestors,
			setID:  func(i *models.Investor, id int64) { i.ID = id },
			redact: (*models.Investor).RedactContact,
		},
		usage:   usage,
		metrics: metrics,
		logger:  logger.With().Str("component", "investors_handler").Logger(),
	}
}

// NewFundsHandler creates a handler for /funds.
func NewFundsHandler(store FundStore, usage UsageStore, metrics SearchRecorder, logger zerolog.Logger) *RecordsHandler[models.InvestmentFund] {
	return &RecordsHandler[models.InvestmentFund]{
		ops: recordOps[models.InvestmentFund]{
			label:  "fund",
			schema: &directory.FundSchema,
			create: store.CreateFund,
			get:    store.GetFund,
			update: store.UpdateFund,
			delete: store.DeleteFund,
			list:   store.ListFunds,
			search: store.SearchFunds,
			setID:  func(f *models.InvestmentFund, id int64) { f.ID = id },
			redact: (*models.InvestmentFund).RedactContact,
		},
		usage:   usage,
		metrics: metrics,
		logger:  logger.With().Str("component", "funds_handler").Logger(),
	}
}

// RegisterRoutes registers the entity routes under path.
func (h *RecordsHandler[T]) RegisterRoutes(r *gin.RouterGroup, path string) {
	g := r.Group(path)
	{
		g.POST("", h.Create)
		g.GET("", h.List)
		g.POST("/search", h.Search)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
	}
}

// Create adds a record.
// POST /api/v1/{investors,funds}
func (h *RecordsHandler[T]) Create(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	var rec T
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	h.ops.setID(&rec, 0)

	if err := h.ops.create(c.Request.Context(), &rec); err != nil {
		if errors.Is(err, db.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": h.ops.label + " already exists"})
			return
		}
		h.logger.Error().Err(err).Msg("failed to create " + h.ops.label)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create " + h.ops.label})
		return
	}

	h.logger.Info().Str("user_id", middleware.GetUser(c).ID.String()).Msg(h.ops.label + " created")
	c.JSON(http.StatusCreated, rec)
}

// List returns one page of records without a filter. Listing does not
// consume search quota.
// GET /api/v1/{investors,funds}?page=&per_page=
func (h *RecordsHandler[T]) List(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}
	req, ok := parsePage(c)
	if !ok {
		return
	}

	page, err := h.ops.list(c.Request.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list " + h.ops.label + "s")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list " + h.ops.label + "s"})
		return
	}
	c.JSON(http.StatusOK, h.present(c, page))
}

// Search applies a filter and consumes one search from the monthly quota.
//
//	@Summary		Search the directory
//	@Description	Filters records and returns one page. Consumes one monthly search.
//	@Tags			Directory
//	@Accept			json
//	@Produce		json
//	@Param			page		query		int					false	"Page number"
//	@Param			per_page	query		int					false	"Page size (max 100)"
//	@Param			filter		body		directory.Filter	false	"Filter"
//	@Success		200			{object}	map[string]any
//	@Failure		400			{object}	map[string]string
//	@Failure		402			{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/investors/search [post]
func (h *RecordsHandler[T]) Search(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	req, ok := parsePage(c)
	if !ok {
		return
	}
	filter, ok := bindFilter(c)
	if !ok {
		return
	}
	if _, err := directory.Compose(h.ops.schema, filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit := middleware.GetFeatures(c).MonthlySearches
	used, allowed, err := h.usage.RecordSearch(c.Request.Context(), user.ID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to record search")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record search"})
		return
	}
	if !allowed {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":                "monthly search limit reached",
			"tier":                 string(middleware.GetTier(c)),
			"monthly_search_limit": limit,
			"monthly_searches":     used,
			"searches_remaining":   0,
		})
		return
	}

	page, err := h.ops.search(c.Request.Context(), filter, req)
	if err != nil {
		// A failed query does not count against the quota.
		if rerr := h.usage.RefundSearch(c.Request.Context(), user.ID); rerr != nil {
			h.logger.Warn().Err(rerr).Str("user_id", user.ID.String()).Msg("failed to refund search")
		}
		if isClientFilterError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error().Err(err).Msg("failed to search " + h.ops.label + "s")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search " + h.ops.label + "s"})
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSearch(h.ops.schema.Entity, page.Total)
	}
	c.JSON(http.StatusOK, h.present(c, page))
}

// Get returns one record. Requires full profile access.
// GET /api/v1/{investors,funds}/:id
func (h *RecordsHandler[T]) Get(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}
	if !middleware.RequireFeature(c, middleware.FeatureFullProfiles) {
		return
	}
	id, ok := parseRecordID(c, "id", h.ops.label)
	if !ok {
		return
	}

	rec, err := h.ops.get(c.Request.Context(), id)
	if err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": h.ops.label + " not found"})
			return
		}
		h.logger.Error().Err(err).Int64("id", id).Msg("failed to get " + h.ops.label)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get " + h.ops.label})
		return
	}

	if !middleware.GetFeatures(c).CanSeeContactInfo {
		h.ops.redact(rec)
	}
	c.JSON(http.StatusOK, rec)
}

// Update replaces a record.
// PUT /api/v1/{investors,funds}/:id
func (h *RecordsHandler[T]) Update(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}
	id, ok := parseRecordID(c, "id", h.ops.label)
	if !ok {
		return
	}

	var rec T
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	h.ops.setID(&rec, id)

	if err := h.ops.update(c.Request.Context(), &rec); err != nil {
		switch {
		case notFound(err):
			c.JSON(http.StatusNotFound, gin.H{"error": h.ops.label + " not found"})
		case errors.Is(err, db.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": h.ops.label + " conflicts with an existing record"})
		default:
			h.logger.Error().Err(err).Int64("id", id).Msg("failed to update " + h.ops.label)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update " + h.ops.label})
		}
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Delete removes a record.
// DELETE /api/v1/{investors,funds}/:id
func (h *RecordsHandler[T]) Delete(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}
	id, ok := parseRecordID(c, "id", h.ops.label)
	if !ok {
		return
	}

	if err := h.ops.delete(c.Request.Context(), id); err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": h.ops.label + " not found"})
			return
		}
		h.logger.Error().Err(err).Int64("id", id).Msg("failed to delete " + h.ops.label)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete " + h.ops.label})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": h.ops.label + " deleted"})
}

// present applies contact redaction for tiers without contact access.
func (h *RecordsHandler[T]) present(c *gin.Context, page directory.Page[T]) directory.Page[T] {
	if middleware.GetFeatures(c).CanSeeContactInfo {
		return page
	}
	for i := range page.Results {
		h.ops.redact(&page.Results[i])
	}
	return page
}

// searchesRemaining is exposed on the profile endpoints.
func searchesRemaining(u *models.User, tier plans.Tier) *int {
	if tier == plans.TierAdmin {
		return nil
	}
	return plans.SearchesRemaining(u.MonthlySearchLimit, u.MonthlySearches)
}
