package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Activity, error)
	List(ctx context.Context, req ListRequest) ([]Activity, error)
	Get(ctx context.Context, id string) (*Activity, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Activity, error)
	Archive(ctx context.Context, id string) (*Activity, error)
}

type CreateRequest struct {
	Name         string           `json:"name"`
	Code         *string          `json:"code"`
	Unit         string           `json:"unit"`
	DefaultPrice *decimal.Decimal `json:"default_price"`
	Currency     string           `json:"currency"`
	Metadata     map[string]any   `json:"metadata"`
}

type UpdateRequest struct {
	Name         *string          `json:"name"`
	Unit         *string          `json:"unit"`
	DefaultPrice *decimal.Decimal `json:"default_price"`
	Currency     *string          `json:"currency"`
	Active       *bool            `json:"active"`
}

type ListRequest struct {
	Active *bool
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidUnit         = errors.New("invalid_unit")
	ErrInvalidDefaultPrice = errors.New("invalid_default_price")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrCodeTaken           = errors.New("code_taken")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
