package core

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Pagination describes one page of a result set. Pages are 1-indexed.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination normalizes page/limit and computes the page count for total.
func NewPagination(page, limit, total int) Pagination {
	page, limit = CleanPageLimit(page, limit)
	totalPages := total / limit
	if total%limit > 0 {
		totalPages++
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// CleanPageLimit replaces out-of-range page/limit values with the defaults.
func CleanPageLimit(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}
	return page, limit
}

// Offset returns the DB offset for the (1-indexed) page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}
