package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/workrate/pkg/db/pagination"
)

type LineRequest struct {
	ActivityID string `json:"activity_id"`
	Quantity   int64  `json:"quantity"`
}

type CreateOrderRequest struct {
	CustomerID  string         `json:"customer_id"`
	ScheduledAt *time.Time     `json:"scheduled_at"`
	Reference   *string        `json:"reference"`
	Metadata    map[string]any `json:"metadata"`
	Lines       []LineRequest  `json:"activities"`
}

type AddActivityRequest struct {
	OrderID    string `json:"-"`
	ActivityID string `json:"activity_id"`
	Quantity   int64  `json:"quantity"`
}

// AttachCatalogActivityRequest prices an activity into a customer's standing
// catalog, outside any order.
type AttachCatalogActivityRequest struct {
	CustomerID string `json:"-"`
	ActivityID string `json:"activity_id"`
	Quantity   int64  `json:"quantity"`
}

type GetOrderRequest struct {
	ID string
}

type ListOrderRequest struct {
	PageToken     string
	PageSize      int32
	CustomerID    string
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
}

type ListOrderFilter struct {
	CustomerID    int64
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
}

type DeactivateLineRequest struct {
	OrderID string
	LineID  string
}

type OrderResponse struct {
	Order
	Lines []OrderActivity `json:"activities"`
}

type ListOrderResponse struct {
	pagination.PageInfo
	Orders []Order `json:"orders"`
}

type Service interface {
	Create(ctx context.Context, req CreateOrderRequest) (OrderResponse, error)
	AddActivity(ctx context.Context, req AddActivityRequest) (OrderActivity, error)
	AttachCatalogActivity(ctx context.Context, req AttachCatalogActivityRequest) (OrderActivity, error)
	ListCatalogActivities(ctx context.Context, customerID string) ([]OrderActivity, error)
	Get(ctx context.Context, req GetOrderRequest) (OrderResponse, error)
	List(ctx context.Context, req ListOrderRequest) (ListOrderResponse, error)
	DeactivateLine(ctx context.Context, req DeactivateLineRequest) (OrderActivity, error)
}

var (
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidActivity = errors.New("invalid_activity")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrNoLines         = errors.New("no_lines")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
	ErrLineNotFound    = errors.New("line_not_found")
)
