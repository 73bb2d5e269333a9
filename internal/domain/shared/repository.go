package shared

import "maps"

// Filter narrows and pages a list query. Filters holds equality matches
// keyed by a name each repository understands, such as "status" or "city".
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]any
}

// With returns a copy of f that also matches key against value.
func (f Filter) With(key string, value any) Filter {
	filters := make(map[string]any, len(f.Filters)+1)
	maps.Copy(filters, f.Filters)
	filters[key] = value
	f.Filters = filters
	return f
}

// Offset counts the rows before Page. Pages start at 1.
func (f Filter) Offset() int {
	return max(f.Page-1, 0) * f.PageSize
}
