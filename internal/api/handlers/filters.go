package handlers

import (
	"net/http"

	"github.com/MacJediWizard/dealbook/internal/catalog"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// FiltersHandler serves the option values of the filter fields. The routes
// are public so sign-up pages can render the search form.
type FiltersHandler struct {
	catalog *catalog.Catalog
	logger  zerolog.Logger
}

// NewFiltersHandler creates a new FiltersHandler.
func NewFiltersHandler(c *catalog.Catalog, logger zerolog.Logger) *FiltersHandler {
	return &FiltersHandler{
		catalog: c,
		logger:  logger.With().Str("component", "filters_handler").Logger(),
	}
}

// RegisterRoutes registers the filter option routes.
func (h *FiltersHandler) RegisterRoutes(r *gin.RouterGroup) {
	filters := r.Group("/filters")
	{
		filters.GET("/:entity", h.Fields)
		filters.GET("/:entity/:field", h.Options)
	}
}

type filterFieldResponse struct {
	Name    string           `json:"name"`
	Range   bool             `json:"range,omitempty"`
	Options []catalog.Option `json:"options"`
}

// Fields returns every filter field of an entity with its options.
// GET /api/v1/filters/:entity
func (h *FiltersHandler) Fields(c *gin.Context) {
	entity := c.Param("entity")
	fields, ok := h.catalog.Fields(entity)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown entity"})
		return
	}

	out := make([]filterFieldResponse, len(fields))
	for i, f := range fields {
		out[i] = filterFieldResponse{Name: f.Name, Range: f.Range, Options: f.Options()}
	}
	c.JSON(http.StatusOK, gin.H{"entity": entity, "fields": out})
}

// Options returns the options of one field.
// GET /api/v1/filters/:entity/:field
func (h *FiltersHandler) Options(c *gin.Context) {
	f, ok := h.catalog.Field(c.Param("entity"), c.Param("field"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown filter field"})
		return
	}
	c.JSON(http.StatusOK, filterFieldResponse{Name: f.Name, Range: f.Range, Options: f.Options()})
}
