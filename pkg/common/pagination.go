package common

import (
	"net/http"
	"strconv"
)

// Page size limits for list endpoints
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// PageRequest selects one page of a sorted listing
type PageRequest struct {
	Page int
	Size int
}

// PageFromQuery reads ?page= and ?page_size=. Values that are not positive
// integers fall back to the defaults; sizes are capped at MaxPageSize.
func PageFromQuery(r *http.Request) PageRequest {
	q := r.URL.Query()
	req := PageRequest{Page: 1, Size: DefaultPageSize}
	if n := positiveInt(q.Get("page")); n > 0 {
		req.Page = n
	}
	if n := positiveInt(q.Get("page_size")); n > 0 {
		req.Size = min(n, MaxPageSize)
	}
	return req
}

func positiveInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// PageInfo describes where a page sits in the full listing
type PageInfo struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Paginate cuts the requested page out of items
func Paginate[T any](items []T, req PageRequest) ([]T, *PageInfo) {
	info := &PageInfo{Page: req.Page, PageSize: req.Size, Total: len(items)}
	if req.Size > 0 {
		info.TotalPages = (len(items) + req.Size - 1) / req.Size
	}
	info.HasNext = req.Page < info.TotalPages
	info.HasPrev = req.Page > 1

	start := (req.Page - 1) * req.Size
	if start < 0 || start >= len(items) {
		return []T{}, info
	}
	return items[start:min(start+req.Size, len(items))], info
}
