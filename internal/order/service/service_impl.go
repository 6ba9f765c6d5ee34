package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/workrate/internal/clock"
	"github.com/smallbiznis/workrate/internal/config"
	customerdomain "github.com/smallbiznis/workrate/internal/customer/domain"
	"github.com/smallbiznis/workrate/internal/observability/metrics"
	"github.com/smallbiznis/workrate/internal/order/domain"
	pricingdomain "github.com/smallbiznis/workrate/internal/pricing/domain"
	"github.com/smallbiznis/workrate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	Pricing      pricingdomain.Service
	PricingCfg   *config.PricingConfigHolder
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	pricing      pricingdomain.Service
	pricingCfg   *config.PricingConfigHolder
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("order.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		pricing:      p.Pricing,
		pricingCfg:   p.PricingCfg,
		metrics:      p.Metrics,
	}
}

// Create persists the order and one costed line per requested activity in a
// single transaction. A resolution failure on any line rolls back the whole
// order; a partially priced order is never visible.
func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.OrderResponse, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.OrderResponse{}, domain.ErrInvalidCustomer
	}
	if len(req.Lines) == 0 {
		return domain.OrderResponse{}, domain.ErrNoLines
	}

	type parsedLine struct {
		activityID snowflake.ID
		quantity   int64
	}
	parsed := make([]parsedLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		activityID, err := parseID(line.ActivityID)
		if err != nil {
			return domain.OrderResponse{}, domain.ErrInvalidActivity
		}
		if line.Quantity < 1 || line.Quantity > s.pricingCfg.Get().MaxLineQuantity {
			return domain.OrderResponse{}, domain.ErrInvalidQuantity
		}
		parsed = append(parsed, parsedLine{activityID: activityID, quantity: line.Quantity})
	}

	scheduledAt := s.clock.Now()
	if req.ScheduledAt != nil {
		scheduledAt = req.ScheduledAt.UTC()
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:          s.genID.Generate(),
		CustomerID:  customerID,
		ScheduledAt: scheduledAt,
		Reference:   req.Reference,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Metadata != nil {
		order.Metadata = datatypes.JSONMap(req.Metadata)
	}

	var lines []domain.OrderActivity
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByID(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrInvalidCustomer
		}

		if err := s.repo.InsertOrder(ctx, tx, &order); err != nil {
			return err
		}

		orderID := order.ID
		for _, p := range parsed {
			line, err := s.costLine(ctx, tx, &orderID, customerID, p.activityID, p.quantity, scheduledAt)
			if err != nil {
				return err
			}
			lines = append(lines, line)
		}
		return nil
	})
	if err != nil {
		return domain.OrderResponse{}, err
	}

	s.metrics.RecordOrderPriced(ctx, len(lines))
	return domain.OrderResponse{Order: order, Lines: lines}, nil
}

// AddActivity prices one extra line against the order's scheduled date.
func (s *Service) AddActivity(ctx context.Context, req domain.AddActivityRequest) (domain.OrderActivity, error) {
	orderID, err := parseID(req.OrderID)
	if err != nil {
		return domain.OrderActivity{}, domain.ErrInvalidID
	}
	activityID, err := parseID(req.ActivityID)
	if err != nil {
		return domain.OrderActivity{}, domain.ErrInvalidActivity
	}
	if req.Quantity < 1 || req.Quantity > s.pricingCfg.Get().MaxLineQuantity {
		return domain.OrderActivity{}, domain.ErrInvalidQuantity
	}

	var line domain.OrderActivity
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindOrderByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}

		id := order.ID
		line, err = s.costLine(ctx, tx, &id, order.CustomerID, activityID, req.Quantity, order.ScheduledAt)
		return err
	})
	if err != nil {
		return domain.OrderActivity{}, err
	}
	return line, nil
}

// AttachCatalogActivity prices a line into the customer's standing catalog;
// the reference date is now because no order carries a schedule.
func (s *Service) AttachCatalogActivity(ctx context.Context, req domain.AttachCatalogActivityRequest) (domain.OrderActivity, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.OrderActivity{}, domain.ErrInvalidCustomer
	}
	activityID, err := parseID(req.ActivityID)
	if err != nil {
		return domain.OrderActivity{}, domain.ErrInvalidActivity
	}
	if req.Quantity < 1 || req.Quantity > s.pricingCfg.Get().MaxLineQuantity {
		return domain.OrderActivity{}, domain.ErrInvalidQuantity
	}

	var line domain.OrderActivity
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByID(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrInvalidCustomer
		}

		line, err = s.costLine(ctx, tx, nil, customerID, activityID, req.Quantity, s.clock.Now())
		return err
	})
	if err != nil {
		return domain.OrderActivity{}, err
	}
	return line, nil
}

func (s *Service) ListCatalogActivities(ctx context.Context, customerID string) ([]domain.OrderActivity, error) {
	id, err := parseID(customerID)
	if err != nil {
		return nil, domain.ErrInvalidCustomer
	}
	return s.repo.ListCatalogLines(ctx, s.db, id)
}

func (s *Service) Get(ctx context.Context, req domain.GetOrderRequest) (domain.OrderResponse, error) {
	orderID, err := parseID(req.ID)
	if err != nil {
		return domain.OrderResponse{}, domain.ErrInvalidID
	}

	order, err := s.repo.FindOrderByID(ctx, s.db, orderID)
	if err != nil {
		return domain.OrderResponse{}, err
	}
	if order == nil {
		return domain.OrderResponse{}, domain.ErrNotFound
	}

	lines, err := s.repo.ListLines(ctx, s.db, orderID)
	if err != nil {
		return domain.OrderResponse{}, err
	}

	return domain.OrderResponse{Order: *order, Lines: lines}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrderRequest) (domain.ListOrderResponse, error) {
	filter := domain.ListOrderFilter{
		ScheduledFrom: req.ScheduledFrom,
		ScheduledTo:   req.ScheduledTo,
	}
	if strings.TrimSpace(req.CustomerID) != "" {
		customerID, err := parseID(req.CustomerID)
		if err != nil {
			return domain.ListOrderResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = int64(customerID)
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.ListOrders(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListOrderResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(order *domain.Order) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        order.ID.String(),
			CreatedAt: order.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		orders = append(orders, *item)
	}

	resp := domain.ListOrderResponse{Orders: orders}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) DeactivateLine(ctx context.Context, req domain.DeactivateLineRequest) (domain.OrderActivity, error) {
	orderID, err := parseID(req.OrderID)
	if err != nil {
		return domain.OrderActivity{}, domain.ErrInvalidID
	}
	lineID, err := parseID(req.LineID)
	if err != nil {
		return domain.OrderActivity{}, domain.ErrInvalidID
	}

	line, err := s.repo.FindLineByID(ctx, s.db, lineID)
	if err != nil {
		return domain.OrderActivity{}, err
	}
	if line == nil || line.OrderID == nil || *line.OrderID != orderID {
		return domain.OrderActivity{}, domain.ErrLineNotFound
	}

	line.Active = false
	line.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateLine(ctx, s.db, line); err != nil {
		return domain.OrderActivity{}, err
	}
	return *line, nil
}

func (s *Service) costLine(ctx context.Context, tx *gorm.DB, orderID *snowflake.ID, customerID, activityID snowflake.ID, quantity int64, refDate time.Time) (domain.OrderActivity, error) {
	result, err := s.pricing.ResolveWithin(ctx, tx, customerID, activityID, quantity, refDate)
	if err != nil {
		return domain.OrderActivity{}, err
	}

	scale := s.pricingCfg.Get().RoundingScale
	now := s.clock.Now()
	line := domain.OrderActivity{
		ID:         s.genID.Generate(),
		OrderID:    orderID,
		CustomerID: customerID,
		ActivityID: activityID,
		Quantity:   quantity,
		UnitPrice:  result.Price,
		LineTotal:  result.Price.Mul(decimal.NewFromInt(quantity)).Round(scale),
		Currency:   result.Currency,
		Unit:       result.Unit,
		Source:     result.Source,
		TierID:     result.TierID,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.InsertLine(ctx, tx, &line); err != nil {
		return domain.OrderActivity{}, err
	}
	return line, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
