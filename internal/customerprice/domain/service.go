package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	CustomerID    string           `json:"customer_id"`
	ActivityID    string           `json:"activity_id"`
	MinQuantity   int64            `json:"min_quantity"`
	MaxQuantity   int64            `json:"max_quantity"`
	Price         decimal.Decimal  `json:"price"`
	Currency      string           `json:"currency"`
	EffectiveFrom time.Time        `json:"effective_from"`
	EffectiveTo   *time.Time       `json:"effective_to"`
	Active        *bool            `json:"active"`
	Metadata      map[string]any   `json:"metadata"`
}

// UpdateRequest carries partial fields; nil pointers leave the stored value
// untouched. Overlap validation reruns whenever any range or window field is
// present, excluding the updated row itself.
type UpdateRequest struct {
	CustomerID    string           `json:"-"`
	ID            string           `json:"-"`
	MinQuantity   *int64           `json:"min_quantity"`
	MaxQuantity   *int64           `json:"max_quantity"`
	Price         *decimal.Decimal `json:"price"`
	Currency      *string          `json:"currency"`
	EffectiveFrom *time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time       `json:"effective_to"`
	ClearTo       bool             `json:"clear_effective_to"`
	Active        *bool            `json:"active"`
}

type ListRequest struct {
	CustomerID string
	ActivityID string
}

type GetRequest struct {
	CustomerID string
	ID         string
}

type DeleteRequest struct {
	CustomerID string
	ID         string
}

type ValidateOverlapRequest struct {
	CustomerID    string
	ActivityID    string
	MinQuantity   int64
	MaxQuantity   int64
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	ExcludeID     string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (CustomerPrice, error)
	Update(ctx context.Context, req UpdateRequest) (CustomerPrice, error)
	Delete(ctx context.Context, req DeleteRequest) error
	Get(ctx context.Context, req GetRequest) (CustomerPrice, error)
	List(ctx context.Context, req ListRequest) ([]CustomerPrice, error)
	ValidateOverlap(ctx context.Context, req ValidateOverlapRequest) (bool, error)
}

var (
	ErrInvalidCustomer      = errors.New("invalid_customer")
	ErrInvalidActivity      = errors.New("invalid_activity")
	ErrInvalidQuantityRange = errors.New("invalid_quantity_range")
	ErrInvalidPrice         = errors.New("invalid_price")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidEffectiveFrom = errors.New("invalid_effective_from")
	ErrInvalidEffectiveTo   = errors.New("invalid_effective_to")
	ErrInvalidID            = errors.New("invalid_id")
	ErrNotFound             = errors.New("not_found")
	ErrTierOverlap          = errors.New("tier_overlap")

	// ErrTierConflict is the persistence-level counterpart of
	// ErrTierOverlap: two writers passed validation concurrently and the
	// database exclusion constraint rejected the loser.
	ErrTierConflict = errors.New("tier_conflict")
)
