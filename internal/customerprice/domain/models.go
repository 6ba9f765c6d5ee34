package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CustomerPrice is a tier: a unit price for one (customer, activity) pair,
// scoped to a closed quantity range and a validity window. EffectiveTo is
// nullable, meaning open-ended. Among active tiers of the same pair no two
// may overlap in both the quantity range and the validity window.
type CustomerPrice struct {
	ID            snowflake.ID      `json:"id" gorm:"primaryKey"`
	CustomerID    snowflake.ID      `json:"customer_id" gorm:"column:customer_id;not null;index:idx_customer_prices_pair"`
	ActivityID    snowflake.ID      `json:"activity_id" gorm:"column:activity_id;not null;index:idx_customer_prices_pair"`
	MinQuantity   int64             `json:"min_quantity" gorm:"not null"`
	MaxQuantity   int64             `json:"max_quantity" gorm:"not null"`
	Price         decimal.Decimal   `json:"price" gorm:"type:numeric(12,4);not null"`
	Currency      string            `json:"currency" gorm:"type:text;not null"`
	EffectiveFrom time.Time         `json:"effective_from" gorm:"not null"`
	EffectiveTo   *time.Time        `json:"effective_to,omitempty"`
	Active        bool              `json:"active" gorm:"not null;default:true"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CustomerPrice) TableName() string { return "customer_prices" }
