package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MacJediWizard/dealbook/internal/api/middleware"
	"github.com/MacJediWizard/dealbook/internal/export"
	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Saved list paging bounds.
const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// ListStore defines the interface for saved list persistence operations.
// Every method is scoped to the owning user.
type ListStore interface {
	CreateSavedList(ctx context.Context, l *models.SavedList) error
	ListSavedLists(ctx context.Context, userID uuid.UUID, skip, limit int) ([]models.SavedList, error)
	GetSavedList(ctx context.Context, userID, listID uuid.UUID) (*models.SavedList, error)
	UpdateSavedListType(ctx context.Context, userID, listID uuid.UUID, t models.ListType) error
	DeleteSavedList(ctx context.Context, userID, listID uuid.UUID) error
	AddInvestorToList(ctx context.Context, userID, listID uuid.UUID, investorID int64) error
	RemoveInvestorFromList(ctx context.Context, userID, listID uuid.UUID, investorID int64) error
	AddFundToList(ctx context.Context, userID, listID uuid.UUID, fundID int64) error
	RemoveFundFromList(ctx context.Context, userID, listID uuid.UUID, fundID int64) error
	GetListItems(ctx context.Context, userID, listID uuid.UUID) (*models.ListItems, error)
}

// ExportRecorder observes completed downloads. *metrics.Metrics satisfies it.
type ExportRecorder interface {
	RecordExport(entity, format string)
}

// ListsHandler handles saved list HTTP endpoints.
type ListsHandler struct {
	store   ListStore
	metrics ExportRecorder
	logger  zerolog.Logger
}

// NewListsHandler creates a new ListsHandler. metrics may be nil.
func NewListsHandler(store ListStore, metrics ExportRecorder, logger zerolog.Logger) *ListsHandler {
	return &ListsHandler{
		store:   store,
		metrics: metrics,
		logger:  logger.With().Str("component", "lists_handler").Logger(),
	}
}

// RegisterRoutes registers saved list routes on the given router group.
func (h *ListsHandler) RegisterRoutes(r *gin.RouterGroup) {
	lists := r.Group("/lists")
	{
		lists.POST("", h.Create)
		lists.GET("", h.List)
		lists.POST("/export/:id", h.Export)
		lists.GET("/:id/items", h.Items)
		lists.PUT("/:id/type", h.UpdateType)
		lists.DELETE("/:id", h.Delete)
		lists.POST("/:id/investors/:investor_id", h.AddInvestor)
		lists.DELETE("/:id/investors/:investor_id", h.RemoveInvestor)
		lists.POST("/:id/funds/:fund_id", h.AddFund)
		lists.DELETE("/:id/funds/:fund_id", h.RemoveFund)
	}
}

// CreateListRequest is the request body for creating a saved list.
type CreateListRequest struct {
	Name        string  `json:"name" binding:"required,max=255"`
	Description *string `json:"description,omitempty"`
	ListType    string  `json:"list_type,omitempty"`
}

// Create creates a saved list for the current user.
// POST /api/v1/lists
func (h *ListsHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	listType, err := models.ParseListType(req.ListType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	list := models.NewSavedList(user.ID, name, req.Description, listType)
	if err := h.store.CreateSavedList(c.Request.Context(), list); err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to create saved list")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create list"})
		return
	}

	h.logger.Info().Str("user_id", user.ID.String()).Str("list_id", list.ID.String()).Msg("saved list created")
	c.JSON(http.StatusCreated, list)
}

// List returns the current user's lists, newest first.
// GET /api/v1/lists?skip=&limit=
func (h *ListsHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	skip, err := queryInt(c, "skip", 0)
	if err != nil || skip < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "skip must be a non-negative integer"})
		return
	}
	limit, err := queryInt(c, "limit", defaultListLimit)
	if err != nil || limit < 1 || limit > maxListLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", maxListLimit)})
		return
	}

	lists, err := h.store.ListSavedLists(c.Request.Context(), user.ID, skip, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to list saved lists")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list lists"})
		return
	}
	if lists == nil {
		lists = []models.SavedList{}
	}
	c.JSON(http.StatusOK, gin.H{"lists": lists, "skip": skip, "limit": limit})
}

// Items returns the investors and funds of a list.
// GET /api/v1/lists/:id/items
func (h *ListsHandler) Items(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	listID, ok := parseUUIDParam(c, "id", "list")
	if !ok {
		return
	}

	items, err := h.store.GetListItems(c.Request.Context(), user.ID, listID)
	if err != nil {
		h.listError(c, err, listID, "failed to get list items")
		return
	}

	if !middleware.GetFeatures(c).CanSeeContactInfo {
		for i := range items.Investors {
			items.Investors[i].RedactContact()
		}
		for i := range items.Funds {
			items.Funds[i].RedactContact()
		}
	}
	c.JSON(http.StatusOK, items)
}

// UpdateListTypeRequest is the request body for changing a list's type.
type UpdateListTypeRequest struct {
	ListType string `json:"list_type"`
}

// UpdateType changes the declared type of a list. The type is read from the
// list_type query parameter or the JSON body.
// PUT /api/v1/lists/:id/type
func (h *ListsHandler) UpdateType(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	listID, ok := parseUUIDParam(c, "id", "list")
	if !ok {
		return
	}

	raw, present := c.GetQuery("list_type")
	if !present {
		var req UpdateListTypeRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.ListType == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "list_type is required"})
			return
		}
		raw = req.ListType
	}
	listType, err := models.ParseListType(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.UpdateSavedListType(c.Request.Context(), user.ID, listID, listType); err != nil {
		h.listError(c, err, listID, "failed to update list type")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "list type updated", "list_type": listType})
}

// Delete removes a list.
// DELETE /api/v1/lists/:id
func (h *ListsHandler) Delete(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	listID, ok := parseUUIDParam(c, "id", "list")
	if !ok {
		return
	}

	if err := h.store.DeleteSavedList(c.Request.Context(), user.ID, listID); err != nil {
		h.listError(c, err, listID, "failed to delete list")
		return
	}
	h.logger.Info().Str("user_id", user.ID.String()).Str("list_id", listID.String()).Msg("saved list deleted")
	c.JSON(http.StatusOK, gin.H{"message": "list deleted"})
}

// AddInvestor adds an investor to a list.
// POST /api/v1/lists/:id/investors/:investor_id
func (h *ListsHandler) AddInvestor(c *gin.Context) {
	h.member(c, "investor_id", "investor", h.store.AddInvestorToList, "investor added to list")
}

// RemoveInvestor removes an investor from a list.
// DELETE /api/v1/lists/:id/investors/:investor_id
func (h *ListsHandler) RemoveInvestor(c *gin.Context) {
	h.member(c, "investor_id", "investor", h.store.RemoveInvestorFromList, "investor removed from list")
}

// AddFund adds a fund to a list.
// POST /api/v1/lists/:id/funds/:fund_id
func (h *ListsHandler) AddFund(c *gin.Context) {
	h.member(c, "fund_id", "fund", h.store.AddFundToList, "fund added to list")
}

// RemoveFund removes a fund from a list.
// DELETE /api/v1/lists/:id/funds/:fund_id
func (h *ListsHandler) RemoveFund(c *gin.Context) {
	h.member(c, "fund_id", "fund", h.store.RemoveFundFromList, "fund removed from list")
}

type memberFunc func(ctx context.Context, userID, listID uuid.UUID, entityID int64) error

func (h *ListsHandler) member(c *gin.Context, param, label string, fn memberFunc, message string) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	listID, ok := parseUUIDParam(c, "id", "list")
	if !ok {
		return
	}
	entityID, ok := parseRecordID(c, param, label)
	if !ok {
		return
	}

	if err := fn(c.Request.Context(), user.ID, listID, entityID); err != nil {
		if notFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "list or " + label + " not found"})
			return
		}
		h.logger.Error().Err(err).Str("list_id", listID.String()).Int64(param, entityID).Msg("failed to update list membership")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update list"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// Export downloads a list as a two-section CSV, or as a two-sheet workbook
// with format=xlsx. Contact columns are kept only for tiers with contact
// access.
// POST /api/v1/lists/export/:id
func (h *ListsHandler) Export(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	if !middleware.RequireFeature(c, middleware.FeatureExport) {
		return
	}
	listID, ok := parseUUIDParam(c, "id", "list")
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := h.store.GetListItems(c.Request.Context(), user.ID, listID)
	if err != nil {
		h.listError(c, err, listID, "failed to export list")
		return
	}

	contact := middleware.GetFeatures(c).CanSeeContactInfo
	invCols := export.Select(export.ListInvestorColumns, contact)
	fundCols := export.Select(export.ListFundColumns, contact)

	var buf bytes.Buffer
	if format == export.FormatXLSX {
		err = export.WriteXLSX(&buf,
			export.BuildTable("Investors", invCols, items.Investors),
			export.BuildTable("Investment Funds", fundCols, items.Funds))
	} else {
		err = export.WriteListCSV(&buf, invCols, items.Investors, fundCols, items.Funds)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("list_id", listID.String()).Msg("failed to render list export")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export list"})
		return
	}

	if h.metrics != nil {
		h.metrics.RecordExport("lists", string(format))
	}
	h.logger.Info().
		Str("user_id", user.ID.String()).
		Str("list_id", listID.String()).
		Int("investors", len(items.Investors)).
		Int("funds", len(items.Funds)).
		Msg("list exported")

	filename := fmt.Sprintf("list_%s_export.%s", listID, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (h *ListsHandler) listError(c *gin.Context, err error, listID uuid.UUID, msg string) {
	if notFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "list not found"})
		return
	}
	h.logger.Error().Err(err).Str("list_id", listID.String()).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// queryInt reads an integer query parameter with a default.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
