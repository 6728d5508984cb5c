package directory

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Pagination defaults.
const (
	DefaultPerPage = 50
	MaxPerPage     = 100
)

// ErrInvalidPage is returned for out-of-range page parameters.
var ErrInvalidPage = errors.New("invalid pagination parameters")

// PageRequest carries the requested page. Zero values select the defaults.
type PageRequest struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// ParsePageRequest reads page and per_page query values. Empty strings select
// the defaults.
func ParsePageRequest(page, perPage string) (PageRequest, error) {
	var req PageRequest
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil {
			return PageRequest{}, fmt.Errorf("%w: page must be an integer", ErrInvalidPage)
		}
		req.Page = n
		if n == 0 {
			req.Page = -1
		}
	}
	if perPage != "" {
		n, err := strconv.Atoi(perPage)
		if err != nil {
			return PageRequest{}, fmt.Errorf("%w: per_page must be an integer", ErrInvalidPage)
		}
		req.PerPage = n
		if n == 0 {
			req.PerPage = -1
		}
	}
	return req.Normalize()
}

// Normalize applies defaults and validates bounds.
func (r PageRequest) Normalize() (PageRequest, error) {
	if r.Page == 0 {
		r.Page = 1
	}
	if r.PerPage == 0 {
		r.PerPage = DefaultPerPage
	}
	if r.Page < 1 {
		return PageRequest{}, fmt.Errorf("%w: page must be >= 1", ErrInvalidPage)
	}
	if r.PerPage < 1 || r.PerPage > MaxPerPage {
		return PageRequest{}, fmt.Errorf("%w: per_page must be between 1 and %d", ErrInvalidPage, MaxPerPage)
	}
	return r, nil
}

// Offset is the number of rows to skip. It saturates at math.MaxInt so a
// huge page number lands past the end instead of wrapping negative.
func (r PageRequest) Offset() int {
	if r.Page < 1 || r.PerPage < 1 {
		return 0
	}
	if r.Page-1 > math.MaxInt/r.PerPage {
		return math.MaxInt
	}
	return (r.Page - 1) * r.PerPage
}

// TotalPages returns ceil(total/perPage).
func (r PageRequest) TotalPages(total int64) int {
	if total <= 0 || r.PerPage <= 0 {
		return 0
	}
	return int((total + int64(r.PerPage) - 1) / int64(r.PerPage))
}

// Page is the envelope returned by every paginated listing.
type Page[T any] struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
	Results    []T   `json:"results"`
}

// NewPage wraps results. A nil slice is replaced by an empty one so the
// envelope always encodes an array.
func NewPage[T any](req PageRequest, total int64, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	return Page[T]{
		Total:      total,
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalPages: req.TotalPages(total),
		Results:    results,
	}
}

// Map converts the results of a page, keeping the counters.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Results))
	for i, r := range p.Results {
		out[i] = fn(r)
	}
	return Page[U]{Total: p.Total, Page: p.Page, PerPage: p.PerPage, TotalPages: p.TotalPages, Results: out}
}
