package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/workrate/internal/order/domain"
	"github.com/smallbiznis/workrate/pkg/db/option"
	"github.com/smallbiznis/workrate/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertOrder(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (id, customer_id, scheduled_at, reference, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.CustomerID,
		order.ScheduledAt,
		order.Reference,
		order.Metadata,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) FindOrderByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, scheduled_at, reference, metadata, created_at, updated_at
		 FROM orders WHERE id = ?`,
		id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) ListOrders(ctx context.Context, db *gorm.DB, filter domain.ListOrderFilter, page pagination.Pagination) ([]*domain.Order, error) {
	var orders []*domain.Order
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.ScheduledFrom != nil {
		stmt = stmt.Where("scheduled_at >= ?", *filter.ScheduledFrom)
	}
	if filter.ScheduledTo != nil {
		stmt = stmt.Where("scheduled_at <= ?", *filter.ScheduledTo)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) InsertLine(ctx context.Context, db *gorm.DB, line *domain.OrderActivity) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO order_activities (
			id, order_id, customer_id, activity_id, quantity, unit_price, line_total,
			currency, unit, source, tier_id, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		line.ID,
		line.OrderID,
		line.CustomerID,
		line.ActivityID,
		line.Quantity,
		line.UnitPrice,
		line.LineTotal,
		line.Currency,
		line.Unit,
		line.Source,
		line.TierID,
		line.Active,
		line.CreatedAt,
		line.UpdatedAt,
	).Error
}

// UpdateLine only ever toggles the active flag; price snapshots stay frozen.
func (r *repo) UpdateLine(ctx context.Context, db *gorm.DB, line *domain.OrderActivity) error {
	return db.WithContext(ctx).Exec(
		`UPDATE order_activities SET active = ?, updated_at = ? WHERE id = ?`,
		line.Active,
		line.UpdatedAt,
		line.ID,
	).Error
}

func (r *repo) FindLineByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.OrderActivity, error) {
	var line domain.OrderActivity
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, customer_id, activity_id, quantity, unit_price, line_total,
		 currency, unit, source, tier_id, active, created_at, updated_at
		 FROM order_activities WHERE id = ?`,
		id,
	).Scan(&line).Error
	if err != nil {
		return nil, err
	}
	if line.ID == 0 {
		return nil, nil
	}
	return &line, nil
}

func (r *repo) ListLines(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.OrderActivity, error) {
	var lines []domain.OrderActivity
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, customer_id, activity_id, quantity, unit_price, line_total,
		 currency, unit, source, tier_id, active, created_at, updated_at
		 FROM order_activities WHERE order_id = ? ORDER BY created_at ASC, id ASC`,
		orderID,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) ListCatalogLines(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]domain.OrderActivity, error) {
	var lines []domain.OrderActivity
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, customer_id, activity_id, quantity, unit_price, line_total,
		 currency, unit, source, tier_id, active, created_at, updated_at
		 FROM order_activities WHERE customer_id = ? AND order_id IS NULL
		 ORDER BY created_at ASC, id ASC`,
		customerID,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}
