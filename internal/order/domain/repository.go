package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/workrate/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertOrder(ctx context.Context, db *gorm.DB, order *Order) error
	FindOrderByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	ListOrders(ctx context.Context, db *gorm.DB, filter ListOrderFilter, page pagination.Pagination) ([]*Order, error)

	InsertLine(ctx context.Context, db *gorm.DB, line *OrderActivity) error
	UpdateLine(ctx context.Context, db *gorm.DB, line *OrderActivity) error
	FindLineByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*OrderActivity, error)
	ListLines(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]OrderActivity, error)
	ListCatalogLines(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]OrderActivity, error)
}
