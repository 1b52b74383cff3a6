package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Page slices items according to page and size. Non-positive values disable paging.
func Page[T any](items []T, page, size int) ([]T, *Pagination) {
	if page <= 0 || size <= 0 {
		return items, nil
	}
	meta := &Pagination{Page: page, PageSize: size, TotalCount: len(items)}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}, meta
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], meta
}
