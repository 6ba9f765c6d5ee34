package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type OverlapFilter struct {
	CustomerID    snowflake.ID
	ActivityID    snowflake.ID
	MinQuantity   int64
	MaxQuantity   int64
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	ExcludeID     snowflake.ID
}

type ListFilter struct {
	CustomerID snowflake.ID
	ActivityID snowflake.ID
}

// ApplicableFilter selects the tier covering one resolution: active, window
// containing ReferenceDate, quantity range containing Quantity.
type ApplicableFilter struct {
	CustomerID    snowflake.ID
	ActivityID    snowflake.ID
	Quantity      int64
	ReferenceDate time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tier *CustomerPrice) error
	Update(ctx context.Context, db *gorm.DB, tier *CustomerPrice) error
	Delete(ctx context.Context, db *gorm.DB, customerID, id snowflake.ID) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, customerID, id snowflake.ID) (*CustomerPrice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]CustomerPrice, error)
	FindOverlapping(ctx context.Context, db *gorm.DB, filter OverlapFilter) ([]CustomerPrice, error)
	FindApplicable(ctx context.Context, db *gorm.DB, filter ApplicableFilter) (*CustomerPrice, error)
}
