package common

import (
	"net/http"
	"strconv"
)

// MaxPerPage caps list page sizes.
const MaxPerPage = 100

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewPagination fills TotalPages from total.
func NewPagination(page, perPage int, total int64) Pagination {
	p := Pagination{Page: page, PerPage: perPage, TotalItems: int(total)}
	if perPage > 0 {
		p.TotalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return p
}

// ParsePagination reads page and per_page (or limit) from the query string. per_page is
// clamped to MaxPerPage.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	q := r.URL.Query()
	page, perPage = 1, defaultPerPage
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	raw := q.Get("per_page")
	if raw == "" {
		raw = q.Get("limit")
	}
	if l, err := strconv.Atoi(raw); err == nil && l > 0 {
		perPage = l
	}
	return page, min(perPage, MaxPerPage)
}
