package option

import (
	"time"

	"github.com/smallbiznis/workrate/pkg/db/pagination"
	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryOptionFunc func(*gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// ApplyPagination decodes the cursor token and constrains the query to rows
// older than the cursor, fetching one extra row so callers can detect more.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		limit := page.PageSize
		if limit <= 0 {
			limit = 10
		}

		if page.PageToken != "" {
			cursor, err := pagination.DecodeCursor(page.PageToken)
			if err == nil && cursor != nil && cursor.CreatedAt != "" {
				if createdAt, perr := time.Parse(time.RFC3339, cursor.CreatedAt); perr == nil {
					db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, cursor.ID)
				}
			}
		}

		return db.Limit(limit + 1)
	})
}
