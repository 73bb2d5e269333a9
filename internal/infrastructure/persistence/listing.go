package persistence

import (
	"strings"

	"github.com/grocery/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultSortColumn = "created_at"

// sortColumns is the set of columns a list query may be ordered by.
// Client input only ever selects from it, so it never reaches the SQL.
type sortColumns map[string]struct{}

func newSortColumns(names ...string) sortColumns {
	cols := sortColumns{"id": {}, "created_at": {}, "updated_at": {}}
	for _, name := range names {
		cols[name] = struct{}{}
	}
	return cols
}

var (
	productSort  = newSortColumns("name", "price", "brand", "category", "nutrition_score", "barcode", "quantity")
	customerSort = newSortColumns("first_name", "last_name", "email", "city", "country")
	invoiceSort  = newSortColumns("total", "status", "customer_id")
)

// orderBy resolves a requested sort. Without a field the newest rows come
// first. An unknown field sorts by created_at, and only "asc" ascends.
func (s sortColumns) orderBy(field, dir string) clause.OrderByColumn {
	field = strings.TrimSpace(field)
	if field == "" {
		return clause.OrderByColumn{Column: clause.Column{Name: defaultSortColumn}, Desc: true}
	}
	if _, ok := s[field]; !ok {
		field = defaultSortColumn
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: field},
		Desc:   !strings.EqualFold(strings.TrimSpace(dir), "asc"),
	}
}

func paginate(query *gorm.DB, filter shared.Filter, cols sortColumns) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query.Order(cols.orderBy(filter.OrderBy, filter.OrderDir))
}

// containsPattern is a LOWER(col) LIKE operand. Wildcards in search are kept.
func containsPattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}
