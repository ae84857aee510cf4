package pagination

import (
	"math"
)

// =============================================================================
// Page-Based Pagination (Offset Pagination)
// =============================================================================

// Pagination represents pagination parameters
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

// PaginationParams represents input parameters for pagination
type PaginationParams struct {
	Page    int `form:"page" json:"page"`
	PerPage int `form:"per_page" json:"per_page"`
}

// DefaultPagination returns default pagination values
func DefaultPagination() *PaginationParams {
	return &PaginationParams{
		Page:    1,
		PerPage: DefaultLimit,
	}
}

// Validate ensures pagination parameters are within valid ranges
func (p *PaginationParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultLimit
	}
	if p.PerPage > MaxLimit {
		p.PerPage = MaxLimit
	}
}

// Offset calculates the offset for SQL queries
func (p *PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// NewPagination creates a new Pagination response
func NewPagination(page, perPage int, total int64) *Pagination {
	totalPages := 0
	if perPage > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(perPage)))
	}

	return &Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// PaginatedResult represents a paginated result with items and pagination info
type PaginatedResult[T any] struct {
	Items      []T         `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// NewPaginatedResult creates a new paginated result
func NewPaginatedResult[T any](items []T, pagination *Pagination) *PaginatedResult[T] {
	return &PaginatedResult[T]{
		Items:      items,
		Pagination: pagination,
	}
}

// =============================================================================
// Browsing Cursor (client side page state for catalog browsing)
// =============================================================================

const (
	DefaultLimit = 15
	MaxLimit     = 100
)

// AllowedLimits are the page sizes a browsing cursor accepts
var AllowedLimits = []int{10, 15, 25, 50, 100}

// IsAllowedLimit reports whether limit is one of AllowedLimits
func IsAllowedLimit(limit int) bool {
	for _, l := range AllowedLimits {
		if l == limit {
			return true
		}
	}
	return false
}

// Cursor tracks the page a user is browsing and the metadata of the last
// page response. While a search term is set, pagination is suspended.
type Cursor struct {
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalItems int64  `json:"total_items"`
	TotalPages int    `json:"total_pages"`
	HasNext    bool   `json:"has_next"`
	HasPrev    bool   `json:"has_prev"`
	Search     string `json:"search,omitempty"`
}

// NewCursor creates a cursor on page 1. A limit outside AllowedLimits falls
// back to DefaultLimit.
func NewCursor(limit int) *Cursor {
	if !IsAllowedLimit(limit) {
		limit = DefaultLimit
	}
	return &Cursor{Page: 1, Limit: limit}
}

// GoToPage moves to page n and reports whether the cursor moved. Out of
// range or unavailable directions are ignored without error.
func (c *Cursor) GoToPage(n int) bool {
	if c.SearchActive() {
		return false
	}
	if n < 1 || n > c.TotalPages || n == c.Page {
		return false
	}
	if n > c.Page && !c.HasNext {
		return false
	}
	if n < c.Page && !c.HasPrev {
		return false
	}
	c.Page = n
	return true
}

// SetLimit changes the page size and resets to page 1. Limits outside
// AllowedLimits are ignored.
func (c *Cursor) SetLimit(limit int) bool {
	if !IsAllowedLimit(limit) {
		return false
	}
	c.Limit = limit
	c.Page = 1
	return true
}

// Update stores the metadata returned with a page
func (c *Cursor) Update(meta *Pagination) {
	if meta == nil {
		return
	}
	if meta.CurrentPage >= 1 {
		c.Page = meta.CurrentPage
	}
	c.TotalItems = meta.Total
	c.TotalPages = meta.TotalPages
	c.HasNext = meta.HasNext
	c.HasPrev = meta.HasPrev
}

// Reset returns to page 1 and forgets the last page metadata. Limit and the
// search term are kept.
func (c *Cursor) Reset() {
	c.Page = 1
	c.TotalItems = 0
	c.TotalPages = 0
	c.HasNext = false
	c.HasPrev = false
}

// SetSearch sets or clears the free-text search term. Leaving search mode
// resets to page 1.
func (c *Cursor) SetSearch(term string) {
	if c.Search != "" && term == "" {
		c.Reset()
	}
	c.Search = term
}

// SearchActive reports whether a search term substitutes the paged set
func (c *Cursor) SearchActive() bool {
	return c.Search != ""
}

// ControlsVisible reports whether pagination controls should be shown.
// They are hidden, not disabled, during search.
func (c *Cursor) ControlsVisible() bool {
	return !c.SearchActive()
}

// Window returns the [start, end) item boundaries of the current page
func (c *Cursor) Window() (start, end int) {
	start = (c.Page - 1) * c.Limit
	end = start + c.Limit
	if c.TotalItems >= 0 && int64(end) > c.TotalItems {
		end = int(c.TotalItems)
	}
	if end < start {
		end = start
	}
	return start, end
}

// Params converts the cursor into query parameters for a page fetch
func (c *Cursor) Params() *PaginationParams {
	p := &PaginationParams{Page: c.Page, PerPage: c.Limit}
	p.Validate()
	return p
}
