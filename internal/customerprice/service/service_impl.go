package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	activitydomain "github.com/smallbiznis/workrate/internal/activity/domain"
	"github.com/smallbiznis/workrate/internal/config"
	customerdomain "github.com/smallbiznis/workrate/internal/customer/domain"
	"github.com/smallbiznis/workrate/internal/customerprice/domain"
	"github.com/smallbiznis/workrate/internal/observability/metrics"
	"github.com/smallbiznis/workrate/pkg/db"
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
	Repo         domain.Repository
	ActivityRepo activitydomain.Repository
	CustomerRepo customerdomain.Repository
	PricingCfg   *config.PricingConfigHolder
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	activityRepo activitydomain.Repository
	customerRepo customerdomain.Repository
	pricingCfg   *config.PricingConfigHolder
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("customerprice.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		activityRepo: p.ActivityRepo,
		customerRepo: p.CustomerRepo,
		pricingCfg:   p.PricingCfg,
		metrics:      p.Metrics,
	}
}

// txOptions wraps validate-then-write sequences in a serializable
// transaction. SQLite transactions are serializable already and its driver
// rejects explicit isolation levels. On PostgreSQL the customer_prices
// exclusion constraint backstops the same invariant, so a race that slips
// past validation still surfaces as a conflict, never as a stored overlap.
func (s *Service) txOptions() *sql.TxOptions {
	if s.db.Dialector.Name() == "sqlite" {
		return &sql.TxOptions{}
	}
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.CustomerPrice, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.CustomerPrice{}, domain.ErrInvalidCustomer
	}
	activityID, err := parseID(req.ActivityID)
	if err != nil {
		return domain.CustomerPrice{}, domain.ErrInvalidActivity
	}

	if req.MinQuantity < 1 || req.MaxQuantity < req.MinQuantity {
		return domain.CustomerPrice{}, domain.ErrInvalidQuantityRange
	}
	if req.MaxQuantity > s.pricingCfg.Get().MaxLineQuantity {
		return domain.CustomerPrice{}, domain.ErrInvalidQuantityRange
	}
	if req.Price.LessThanOrEqual(decimal.Zero) {
		return domain.CustomerPrice{}, domain.ErrInvalidPrice
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.pricingCfg.Get().DefaultCurrency
	}
	if len(currency) != 3 {
		return domain.CustomerPrice{}, domain.ErrInvalidCurrency
	}

	if req.EffectiveFrom.IsZero() {
		return domain.CustomerPrice{}, domain.ErrInvalidEffectiveFrom
	}
	if req.EffectiveTo != nil && req.EffectiveTo.Before(req.EffectiveFrom) {
		return domain.CustomerPrice{}, domain.ErrInvalidEffectiveTo
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().UTC()
	entity := domain.CustomerPrice{
		ID:            s.genID.Generate(),
		CustomerID:    customerID,
		ActivityID:    activityID,
		MinQuantity:   req.MinQuantity,
		MaxQuantity:   req.MaxQuantity,
		Price:         req.Price,
		Currency:      currency,
		EffectiveFrom: req.EffectiveFrom.UTC(),
		EffectiveTo:   normalizeTo(req.EffectiveTo),
		Active:        active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Metadata != nil {
		entity.Metadata = datatypes.JSONMap(req.Metadata)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByID(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrInvalidCustomer
		}

		activity, err := s.activityRepo.FindByID(ctx, tx, activityID)
		if err != nil {
			return err
		}
		if activity == nil {
			return domain.ErrInvalidActivity
		}

		if entity.Active {
			conflicts, err := s.repo.FindOverlapping(ctx, tx, domain.OverlapFilter{
				CustomerID:    customerID,
				ActivityID:    activityID,
				MinQuantity:   entity.MinQuantity,
				MaxQuantity:   entity.MaxQuantity,
				EffectiveFrom: entity.EffectiveFrom,
				EffectiveTo:   entity.EffectiveTo,
			})
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return domain.ErrTierOverlap
			}
		}

		return s.repo.Insert(ctx, tx, &entity)
	}, s.txOptions())
	if err != nil {
		return domain.CustomerPrice{}, s.mapWriteErr(ctx, err)
	}

	return entity, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.CustomerPrice, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.CustomerPrice{}, domain.ErrInvalidCustomer
	}
	tierID, err := parseID(req.ID)
	if err != nil {
		return domain.CustomerPrice{}, domain.ErrInvalidID
	}

	var entity domain.CustomerPrice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, customerID, tierID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		entity = *existing

		if req.MinQuantity != nil {
			entity.MinQuantity = *req.MinQuantity
		}
		if req.MaxQuantity != nil {
			entity.MaxQuantity = *req.MaxQuantity
		}
		if req.Price != nil {
			entity.Price = *req.Price
		}
		if req.Currency != nil {
			entity.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
		}
		if req.EffectiveFrom != nil {
			entity.EffectiveFrom = req.EffectiveFrom.UTC()
		}
		if req.ClearTo {
			entity.EffectiveTo = nil
		} else if req.EffectiveTo != nil {
			entity.EffectiveTo = normalizeTo(req.EffectiveTo)
		}
		if req.Active != nil {
			entity.Active = *req.Active
		}

		if entity.MinQuantity < 1 || entity.MaxQuantity < entity.MinQuantity {
			return domain.ErrInvalidQuantityRange
		}
		if entity.MaxQuantity > s.pricingCfg.Get().MaxLineQuantity {
			return domain.ErrInvalidQuantityRange
		}
		if entity.Price.LessThanOrEqual(decimal.Zero) {
			return domain.ErrInvalidPrice
		}
		if len(entity.Currency) != 3 {
			return domain.ErrInvalidCurrency
		}
		if entity.EffectiveFrom.IsZero() {
			return domain.ErrInvalidEffectiveFrom
		}
		if entity.EffectiveTo != nil && entity.EffectiveTo.Before(entity.EffectiveFrom) {
			return domain.ErrInvalidEffectiveTo
		}

		if entity.Active {
			conflicts, err := s.repo.FindOverlapping(ctx, tx, domain.OverlapFilter{
				CustomerID:    entity.CustomerID,
				ActivityID:    entity.ActivityID,
				MinQuantity:   entity.MinQuantity,
				MaxQuantity:   entity.MaxQuantity,
				EffectiveFrom: entity.EffectiveFrom,
				EffectiveTo:   entity.EffectiveTo,
				ExcludeID:     entity.ID,
			})
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return domain.ErrTierOverlap
			}
		}

		entity.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, tx, &entity)
	}, s.txOptions())
	if err != nil {
		return domain.CustomerPrice{}, s.mapWriteErr(ctx, err)
	}

	return entity, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteRequest) error {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.ErrInvalidCustomer
	}
	tierID, err := parseID(req.ID)
	if err != nil {
		return domain.ErrInvalidID
	}

	deleted, err := s.repo.Delete(ctx, s.db, customerID, tierID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) Get(ctx context.Context, req domain.GetRequest) (domain.CustomerPrice, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.CustomerPrice{}, domain.ErrInvalidCustomer
	}
	tierID, err := parseID(req.ID)
	if err != nil {
		return domain.CustomerPrice{}, domain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, customerID, tierID)
	if err != nil {
		return domain.CustomerPrice{}, err
	}
	if entity == nil {
		return domain.CustomerPrice{}, domain.ErrNotFound
	}
	return *entity, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.CustomerPrice, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return nil, domain.ErrInvalidCustomer
	}

	filter := domain.ListFilter{CustomerID: customerID}
	if strings.TrimSpace(req.ActivityID) != "" {
		activityID, err := parseID(req.ActivityID)
		if err != nil {
			return nil, domain.ErrInvalidActivity
		}
		filter.ActivityID = activityID
	}

	return s.repo.List(ctx, s.db, filter)
}

// ValidateOverlap reports whether the candidate range/window is free of
// conflicts. It reads committed state only; writers revalidate inside their
// own transaction.
func (s *Service) ValidateOverlap(ctx context.Context, req domain.ValidateOverlapRequest) (bool, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return false, domain.ErrInvalidCustomer
	}
	activityID, err := parseID(req.ActivityID)
	if err != nil {
		return false, domain.ErrInvalidActivity
	}
	if req.MinQuantity < 1 || req.MaxQuantity < req.MinQuantity {
		return false, domain.ErrInvalidQuantityRange
	}
	if req.EffectiveFrom.IsZero() {
		return false, domain.ErrInvalidEffectiveFrom
	}

	filter := domain.OverlapFilter{
		CustomerID:    customerID,
		ActivityID:    activityID,
		MinQuantity:   req.MinQuantity,
		MaxQuantity:   req.MaxQuantity,
		EffectiveFrom: req.EffectiveFrom.UTC(),
		EffectiveTo:   normalizeTo(req.EffectiveTo),
	}
	if strings.TrimSpace(req.ExcludeID) != "" {
		excludeID, err := parseID(req.ExcludeID)
		if err != nil {
			return false, domain.ErrInvalidID
		}
		filter.ExcludeID = excludeID
	}

	conflicts, err := s.repo.FindOverlapping(ctx, s.db, filter)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

func (s *Service) mapWriteErr(ctx context.Context, err error) error {
	switch {
	case err == domain.ErrTierOverlap:
		s.metrics.RecordTierConflict(ctx, "validation")
		return err
	case db.IsExclusionErr(err):
		s.metrics.RecordTierConflict(ctx, "exclusion_constraint")
		s.log.Warn("tier write rejected by exclusion constraint", zap.Error(err))
		return domain.ErrTierConflict
	default:
		return err
	}
}

func normalizeTo(to *time.Time) *time.Time {
	if to == nil {
		return nil
	}
	utc := to.UTC()
	return &utc
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
