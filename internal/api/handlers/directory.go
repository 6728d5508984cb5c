package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/MacJediWizard/dealbook/internal/api/middleware"
	"github.com/MacJediWizard/dealbook/internal/db"
	"github.com/MacJediWizard/dealbook/internal/directory"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// DirectoryStore defines the aggregate queries over both entity tables.
type DirectoryStore interface {
	FacetCounts(ctx context.Context, s *directory.Schema, f *directory.Filter, exclude []string) (map[string]map[string]int64, error)
	Stats(ctx context.Context) (*db.DirectoryStats, error)
}

// DirectoryHandler serves facet counts and table totals.
type DirectoryHandler struct {
	store  DirectoryStore
	logger zerolog.Logger
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(store DirectoryStore, logger zerolog.Logger) *DirectoryHandler {
	return &DirectoryHandler{
		store:  store,
		logger: logger.With().Str("component", "directory_handler").Logger(),
	}
}

// RegisterRoutes registers the aggregate routes.
func (h *DirectoryHandler) RegisterRoutes(r *gin.RouterGroup) {
	counts := r.Group("/counts")
	{
		counts.POST("/:entity", h.Counts)
	}
	r.GET("/stats", h.Stats)
}

// Counts returns per-value counts of every facet for rows matching the
// filter. Facet groups named in exclude_fields are left out of the response.
//
//	@Summary		Facet counts
//	@Description	Counts records per facet value for the given filter.
//	@Tags			Directory
//	@Accept			json
//	@Produce		json
//	@Param			entity			path		string				true	"investors or funds"
//	@Param			exclude_fields	query		[]string			false	"Facet groups to skip"
//	@Param			filter			body		directory.Filter	false	"Filter"
//	@Success		200				{object}	map[string]map[string]int64
//	@Failure		400				{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/counts/{entity} [post]
func (h *DirectoryHandler) Counts(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	schema, ok := directory.SchemaFor(c.Param("entity"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown entity"})
		return
	}
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	counts, err := h.store.FacetCounts(c.Request.Context(), schema, filter, excludeFields(c))
	if err != nil {
		if isClientFilterError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error().Err(err).Str("entity", schema.Entity).Msg("failed to count facets")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count facets"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

// Stats returns table totals.
// GET /api/v1/stats
func (h *DirectoryHandler) Stats(c *gin.Context) {
	if middleware.RequireUser(c) == nil {
		return
	}

	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// excludeFields accepts repeated and comma-separated exclude_fields values.
func excludeFields(c *gin.Context) []string {
	var out []string
	for _, raw := range c.QueryArray("exclude_fields") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
