// Package handlers implements the HTTP handlers of the Dealbook API.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/MacJediWizard/dealbook/internal/api/middleware"
	"github.com/MacJediWizard/dealbook/internal/db"
	"github.com/MacJediWizard/dealbook/internal/directory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// parseRecordID reads a positive int64 path parameter. It writes a 400 and
// returns false when the value is malformed.
func parseRecordID(c *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + label + " ID"})
		return 0, false
	}
	return id, true
}

// parseUUIDParam reads a UUID path parameter.
func parseUUIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + label + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

// bindFilter decodes an optional filter body. An empty body is no filter.
func bindFilter(c *gin.Context) (*directory.Filter, bool) {
	if c.Request.Body == nil || c.Request.Body == http.NoBody || c.Request.ContentLength == 0 {
		return nil, true
	}
	var f directory.Filter
	if err := c.ShouldBindJSON(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, true
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter: " + err.Error()})
		return nil, false
	}
	f.HideContact = !middleware.GetFeatures(c).CanSeeContactInfo
	return &f, true
}

// isClientFilterError reports whether err was caused by the request's
// filter or paging parameters rather than the store.
func isClientFilterError(err error) bool {
	return errors.Is(err, directory.ErrInvalidRange) ||
		errors.Is(err, directory.ErrUnsupportedFilter) ||
		errors.Is(err, directory.ErrInvalidPage)
}

// parsePage reads page and per_page query parameters.
func parsePage(c *gin.Context) (directory.PageRequest, bool) {
	req, err := directory.ParsePageRequest(c.Query("page"), c.Query("per_page"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return directory.PageRequest{}, false
	}
	return req, true
}

// notFound reports whether err is a missing-row error from the store.
func notFound(err error) bool {
	return errors.Is(err, db.ErrNotFound)
}
