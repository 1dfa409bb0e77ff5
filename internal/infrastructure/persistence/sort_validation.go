package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortable whitelists the columns a listing may be ordered by. Unknown keys
// fall back to the default column.
type sortable struct {
	columns  map[string]string
	fallback string
}

var (
	userSort = sortable{
		columns: map[string]string{
			"created_at":    "created_at",
			"email":         "email",
			"full_name":     "full_name",
			"status":        "status",
			"last_login_at": "last_login_at",
		},
		fallback: "created_at",
	}
	productSort = sortable{
		columns: map[string]string{
			"created_at": "created_at",
			"name":       "name",
			"price":      "price",
			"stock":      "stock",
		},
		fallback: "created_at",
	}
	orderSort = sortable{
		columns: map[string]string{
			"created_at":   "created_at",
			"total":        "total",
			"order_number": "order_number",
			"status":       "status",
		},
		fallback: "created_at",
	}
)

// column resolves an API sort key. Keys are case sensitive.
func (s sortable) column(key string) string {
	if col, ok := s.columns[strings.TrimSpace(key)]; ok {
		return col
	}
	return s.fallback
}

// by builds the ORDER BY term. Anything but "asc" sorts descending.
func (s sortable) by(key, direction string) clause.OrderByColumn {
	return clause.OrderByColumn{
		Column: clause.Column{Name: s.column(key)},
		Desc:   !strings.EqualFold(strings.TrimSpace(direction), "asc"),
	}
}
