package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Activity is a billable unit of work (loading, transport, picking, ...).
// DefaultPrice is the fallback unit price when a customer has no tier; it is
// nullable because some activities are only ever sold through customer tiers.
type Activity struct {
	ID           snowflake.ID      `json:"id" gorm:"primaryKey"`
	Name         string            `json:"name" gorm:"type:text;not null"`
	Code         *string           `json:"code,omitempty" gorm:"type:text;uniqueIndex"`
	Unit         string            `json:"unit" gorm:"type:text;not null"`
	DefaultPrice *decimal.Decimal  `json:"default_price,omitempty" gorm:"type:numeric(12,4)"`
	Currency     string            `json:"currency" gorm:"type:text;not null"`
	Active       bool              `json:"active" gorm:"not null;default:true"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt    time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Activity) TableName() string { return "activities" }
