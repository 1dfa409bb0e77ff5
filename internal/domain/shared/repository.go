package shared

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Paging is the page window of a list query. Zero values select the first
// page of DefaultPageSize rows; oversized pages are clamped to MaxPageSize.
type Paging struct {
	Page     int
	PageSize int
}

func FirstPage() Paging { return Paging{Page: 1, PageSize: DefaultPageSize} }

func (p Paging) Limit() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	}
	return p.PageSize
}

func (p Paging) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Sorting names a sort column and direction. Repositories whitelist the
// column and treat anything but "asc" as descending.
type Sorting struct {
	SortBy    string
	SortOrder string
}

// NewestFirst sorts by creation time, latest first
func NewestFirst() Sorting { return Sorting{SortBy: "created_at", SortOrder: "desc"} }

// Paginated represents a paginated result
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	if items == nil {
		items = []T{}
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// MapPaginated converts the items of a paginated result
func MapPaginated[T, R any](p Paginated[T], fn func(T) R) Paginated[R] {
	items := make([]R, len(p.Items))
	for i, item := range p.Items {
		items[i] = fn(item)
	}
	return Paginated[R]{
		Items:      items,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
}
