package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Order struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey"`
	CustomerID  snowflake.ID      `json:"customer_id" gorm:"column:customer_id;not null;index"`
	ScheduledAt time.Time         `json:"scheduled_at" gorm:"not null"`
	Reference   *string           `json:"reference,omitempty" gorm:"type:text"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Order) TableName() string { return "orders" }

// OrderActivity is a costed line. UnitPrice and LineTotal are snapshots of
// the resolution at creation time; later tier changes never recompute them.
// A NULL OrderID attaches the line to the customer's standing catalog
// instead of a specific order.
type OrderActivity struct {
	ID         snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrderID    *snowflake.ID   `json:"order_id,omitempty" gorm:"column:order_id;index"`
	CustomerID snowflake.ID    `json:"customer_id" gorm:"column:customer_id;not null;index"`
	ActivityID snowflake.ID    `json:"activity_id" gorm:"column:activity_id;not null"`
	Quantity   int64           `json:"quantity" gorm:"not null"`
	UnitPrice  decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,4);not null"`
	LineTotal  decimal.Decimal `json:"line_total" gorm:"type:numeric(14,4);not null"`
	Currency   string          `json:"currency" gorm:"type:text;not null"`
	Unit       string          `json:"unit" gorm:"type:text;not null"`
	Source     string          `json:"source" gorm:"type:text;not null"`
	TierID     *snowflake.ID   `json:"tier_id,omitempty" gorm:"column:tier_id"`
	Active     bool            `json:"active" gorm:"not null;default:true"`
	CreatedAt  time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (OrderActivity) TableName() string { return "order_activities" }
