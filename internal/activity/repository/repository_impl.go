package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/workrate/internal/activity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, activity *domain.Activity) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO activities (id, name, code, unit, default_price, currency, active, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		activity.ID,
		activity.Name,
		activity.Code,
		activity.Unit,
		activity.DefaultPrice,
		activity.Currency,
		activity.Active,
		activity.Metadata,
		activity.CreatedAt,
		activity.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, activity *domain.Activity) error {
	return db.WithContext(ctx).Exec(
		`UPDATE activities
		 SET name = ?, unit = ?, default_price = ?, currency = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		activity.Name,
		activity.Unit,
		activity.DefaultPrice,
		activity.Currency,
		activity.Active,
		activity.UpdatedAt,
		activity.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Activity, error) {
	var activity domain.Activity
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, code, unit, default_price, currency, active, metadata, created_at, updated_at
		 FROM activities WHERE id = ?`,
		id,
	).Scan(&activity).Error
	if err != nil {
		return nil, err
	}
	if activity.ID == 0 {
		return nil, nil
	}
	return &activity, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Activity, error) {
	var activity domain.Activity
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, code, unit, default_price, currency, active, metadata, created_at, updated_at
		 FROM activities WHERE code = ?`,
		code,
	).Scan(&activity).Error
	if err != nil {
		return nil, err
	}
	if activity.ID == 0 {
		return nil, nil
	}
	return &activity, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.Activity, error) {
	stmt := db.WithContext(ctx).Model(&domain.Activity{})
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	var items []domain.Activity
	err := stmt.Order("name asc, id asc").Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
