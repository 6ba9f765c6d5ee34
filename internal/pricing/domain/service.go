package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SourceCustomer = "customer"
	SourceDefault  = "default"
)

// PriceResult is the resolver's output. It is transient and never cached:
// the applicable price depends on the reference date and quantity of each
// call.
type PriceResult struct {
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	Source     string          `json:"source"`
	ActivityID snowflake.ID    `json:"activity_id"`
	Unit       string          `json:"unit"`
	TierID     *snowflake.ID   `json:"tier_id,omitempty"`
}

type ResolveRequest struct {
	CustomerID    string
	ActivityID    string
	Quantity      int64
	ReferenceDate *time.Time
}

type QuoteRequest struct {
	CustomerID  string     `json:"customer_id"`
	ActivityID  string     `json:"activity_id"`
	Quantity    int64      `json:"quantity"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// Quote is an ad-hoc price calculation, served without persisting anything.
type Quote struct {
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Currency      string          `json:"currency"`
	Quantity      int64           `json:"quantity"`
	LineTotal     decimal.Decimal `json:"line_total"`
	Unit          string          `json:"unit"`
	Source        string          `json:"source"`
	TierID        *snowflake.ID   `json:"tier_id,omitempty"`
	ReferenceDate time.Time       `json:"reference_date"`
}

type Service interface {
	Resolve(ctx context.Context, req ResolveRequest) (PriceResult, error)
	Quote(ctx context.Context, req QuoteRequest) (Quote, error)

	// ResolveWithin resolves against the caller's transaction so order
	// costing snapshots read the same consistent state it commits.
	ResolveWithin(ctx context.Context, tx *gorm.DB, customerID, activityID snowflake.ID, quantity int64, refDate time.Time) (PriceResult, error)
}

var (
	ErrInvalidCustomer  = errors.New("invalid_customer")
	ErrInvalidActivity  = errors.New("invalid_activity")
	ErrInvalidQuantity  = errors.New("invalid_quantity")
	ErrActivityNotFound = errors.New("activity_not_found")
	ErrNoPriceAvailable = errors.New("no_price_available")
)
