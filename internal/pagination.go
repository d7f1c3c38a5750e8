package internal

import "math"

// Pagination is the page descriptor returned by every list endpoint.
// Pages are 1-indexed.
type Pagination struct {
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{Current: page, Pages: pages, Total: total, Limit: limit}
}
