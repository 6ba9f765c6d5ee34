package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	activitydomain "github.com/smallbiznis/workrate/internal/activity/domain"
	"github.com/smallbiznis/workrate/internal/clock"
	"github.com/smallbiznis/workrate/internal/config"
	tierdomain "github.com/smallbiznis/workrate/internal/customerprice/domain"
	"github.com/smallbiznis/workrate/internal/observability/metrics"
	"github.com/smallbiznis/workrate/internal/pricing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	TierRepo     tierdomain.Repository
	ActivityRepo activitydomain.Repository
	PricingCfg   *config.PricingConfigHolder
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	tierRepo     tierdomain.Repository
	activityRepo activitydomain.Repository
	pricingCfg   *config.PricingConfigHolder
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("pricing.service"),
		clock:        p.Clock,
		tierRepo:     p.TierRepo,
		activityRepo: p.ActivityRepo,
		pricingCfg:   p.PricingCfg,
		metrics:      p.Metrics,
	}
}

func (s *Service) Resolve(ctx context.Context, req domain.ResolveRequest) (domain.PriceResult, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.PriceResult{}, domain.ErrInvalidCustomer
	}
	activityID, err := parseID(req.ActivityID)
	if err != nil {
		return domain.PriceResult{}, domain.ErrInvalidActivity
	}
	if req.Quantity < 1 {
		return domain.PriceResult{}, domain.ErrInvalidQuantity
	}

	refDate := s.clock.Now()
	if req.ReferenceDate != nil {
		refDate = req.ReferenceDate.UTC()
	}

	return s.ResolveWithin(ctx, s.db, customerID, activityID, req.Quantity, refDate)
}

// ResolveWithin walks the resolution chain: the single active tier of
// (customer, activity) whose window contains refDate and whose range
// contains quantity wins; otherwise the activity's default price applies.
func (s *Service) ResolveWithin(ctx context.Context, tx *gorm.DB, customerID, activityID snowflake.ID, quantity int64, refDate time.Time) (domain.PriceResult, error) {
	activity, err := s.activityRepo.FindByID(ctx, tx, activityID)
	if err != nil {
		return domain.PriceResult{}, err
	}
	if activity == nil {
		return domain.PriceResult{}, domain.ErrActivityNotFound
	}

	tier, err := s.tierRepo.FindApplicable(ctx, tx, tierdomain.ApplicableFilter{
		CustomerID:    customerID,
		ActivityID:    activityID,
		Quantity:      quantity,
		ReferenceDate: refDate.UTC(),
	})
	if err != nil {
		return domain.PriceResult{}, err
	}

	if tier != nil {
		tierID := tier.ID
		s.metrics.RecordPriceResolution(ctx, domain.SourceCustomer)
		return domain.PriceResult{
			Price:      tier.Price,
			Currency:   tier.Currency,
			Source:     domain.SourceCustomer,
			ActivityID: activityID,
			Unit:       activity.Unit,
			TierID:     &tierID,
		}, nil
	}

	if activity.DefaultPrice == nil {
		return domain.PriceResult{}, domain.ErrNoPriceAvailable
	}

	currency := activity.Currency
	if currency == "" {
		currency = s.pricingCfg.Get().DefaultCurrency
	}

	s.metrics.RecordPriceResolution(ctx, domain.SourceDefault)
	return domain.PriceResult{
		Price:      *activity.DefaultPrice,
		Currency:   currency,
		Source:     domain.SourceDefault,
		ActivityID: activityID,
		Unit:       activity.Unit,
	}, nil
}

func (s *Service) Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	refDate := s.clock.Now()
	if req.ScheduledAt != nil {
		refDate = req.ScheduledAt.UTC()
	}

	result, err := s.Resolve(ctx, domain.ResolveRequest{
		CustomerID:    req.CustomerID,
		ActivityID:    req.ActivityID,
		Quantity:      req.Quantity,
		ReferenceDate: &refDate,
	})
	if err != nil {
		return domain.Quote{}, err
	}

	scale := s.pricingCfg.Get().RoundingScale
	lineTotal := result.Price.Mul(decimal.NewFromInt(req.Quantity)).Round(scale)

	s.metrics.RecordQuote(ctx, result.Source)
	return domain.Quote{
		UnitPrice:     result.Price,
		Currency:      result.Currency,
		Quantity:      req.Quantity,
		LineTotal:     lineTotal,
		Unit:          result.Unit,
		Source:        result.Source,
		TierID:        result.TierID,
		ReferenceDate: refDate,
	}, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidActivity
	}
	return id, nil
}
