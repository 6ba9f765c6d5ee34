package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/workrate/internal/customerprice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tier *domain.CustomerPrice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customer_prices (
			id, customer_id, activity_id, min_quantity, max_quantity, price, currency,
			effective_from, effective_to, active, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tier.ID,
		tier.CustomerID,
		tier.ActivityID,
		tier.MinQuantity,
		tier.MaxQuantity,
		tier.Price,
		tier.Currency,
		tier.EffectiveFrom,
		tier.EffectiveTo,
		tier.Active,
		tier.Metadata,
		tier.CreatedAt,
		tier.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, tier *domain.CustomerPrice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customer_prices SET
			min_quantity = ?, max_quantity = ?, price = ?, currency = ?,
			effective_from = ?, effective_to = ?, active = ?, updated_at = ?
		 WHERE customer_id = ? AND id = ?`,
		tier.MinQuantity,
		tier.MaxQuantity,
		tier.Price,
		tier.Currency,
		tier.EffectiveFrom,
		tier.EffectiveTo,
		tier.Active,
		tier.UpdatedAt,
		tier.CustomerID,
		tier.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, customerID, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM customer_prices WHERE customer_id = ? AND id = ?`,
		customerID,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, customerID, id snowflake.ID) (*domain.CustomerPrice, error) {
	var tier domain.CustomerPrice
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, activity_id, min_quantity, max_quantity, price, currency,
		 effective_from, effective_to, active, metadata, created_at, updated_at
		 FROM customer_prices WHERE customer_id = ? AND id = ?`,
		customerID,
		id,
	).Scan(&tier).Error
	if err != nil {
		return nil, err
	}
	if tier.ID == 0 {
		return nil, nil
	}
	return &tier, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.CustomerPrice, error) {
	query := `SELECT id, customer_id, activity_id, min_quantity, max_quantity, price, currency,
	 effective_from, effective_to, active, metadata, created_at, updated_at
	 FROM customer_prices WHERE customer_id = ?`
	args := []any{filter.CustomerID}
	if filter.ActivityID != 0 {
		query += ` AND activity_id = ?`
		args = append(args, filter.ActivityID)
	}
	query += ` ORDER BY effective_from DESC, created_at DESC, id DESC`

	var items []domain.CustomerPrice
	err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindApplicable picks the single tier covering a resolution. Overlap
// validation keeps active tiers disjoint, so at most one row should match;
// the secondary created_at and id sorts make the winner deterministic if
// equally dated rows ever coexist.
func (r *repo) FindApplicable(ctx context.Context, db *gorm.DB, filter domain.ApplicableFilter) (*domain.CustomerPrice, error) {
	var tier domain.CustomerPrice
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, activity_id, min_quantity, max_quantity, price, currency,
		 effective_from, effective_to, active, metadata, created_at, updated_at
		 FROM customer_prices
		 WHERE customer_id = ? AND activity_id = ? AND active = ?
		 AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)
		 AND min_quantity <= ? AND max_quantity >= ?
		 ORDER BY effective_from DESC, created_at DESC, id DESC
		 LIMIT 1`,
		filter.CustomerID,
		filter.ActivityID,
		true,
		filter.ReferenceDate,
		filter.ReferenceDate,
		filter.Quantity,
		filter.Quantity,
	).Scan(&tier).Error
	if err != nil {
		return nil, err
	}
	if tier.ID == 0 {
		return nil, nil
	}
	return &tier, nil
}

// FindOverlapping returns active tiers of the same (customer, activity) whose
// closed quantity range and closed validity window both intersect the
// candidate's. An open-ended window (effective_to IS NULL) intersects every
// later window, so the upper-bound comparison drops out when the candidate
// has no end date.
func (r *repo) FindOverlapping(ctx context.Context, db *gorm.DB, filter domain.OverlapFilter) ([]domain.CustomerPrice, error) {
	query := `SELECT id, customer_id, activity_id, min_quantity, max_quantity, price, currency,
	 effective_from, effective_to, active, metadata, created_at, updated_at
	 FROM customer_prices
	 WHERE customer_id = ? AND activity_id = ? AND active = ?
	 AND min_quantity <= ? AND max_quantity >= ?
	 AND (effective_to IS NULL OR effective_to >= ?)`
	args := []any{
		filter.CustomerID,
		filter.ActivityID,
		true,
		filter.MaxQuantity,
		filter.MinQuantity,
		filter.EffectiveFrom,
	}
	if filter.EffectiveTo != nil {
		query += ` AND effective_from <= ?`
		args = append(args, *filter.EffectiveTo)
	}
	if filter.ExcludeID != 0 {
		query += ` AND id <> ?`
		args = append(args, filter.ExcludeID)
	}

	var items []domain.CustomerPrice
	err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
