package shared

import "math"

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	page, perPage = normalizePage(page, perPage)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// PageWindow converts a page request into limit/offset.
func PageWindow(page, perPage int) (limit, offset int) {
	page, perPage = normalizePage(page, perPage)
	return perPage, (page - 1) * perPage
}

func normalizePage(page, perPage int) (int, int) {
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 200 {
		perPage = 200
	}
	if page <= 0 {
		page = 1
	}
	return page, perPage
}
