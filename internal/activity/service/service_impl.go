package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/workrate/internal/activity/domain"
	"github.com/smallbiznis/workrate/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	PricingCfg *config.PricingConfigHolder
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	pricingCfg *config.PricingConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("activity.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		pricingCfg: p.PricingCfg,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Activity, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		return nil, domain.ErrInvalidUnit
	}

	if req.DefaultPrice != nil && req.DefaultPrice.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidDefaultPrice
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.pricingCfg.Get().DefaultCurrency
	}
	if len(currency) != 3 {
		return nil, domain.ErrInvalidCurrency
	}

	var code *string
	if req.Code != nil {
		trimmed := strings.TrimSpace(*req.Code)
		if trimmed != "" {
			existing, err := s.repo.FindByCode(ctx, s.db, trimmed)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, domain.ErrCodeTaken
			}
			code = &trimmed
		}
	}

	now := time.Now().UTC()
	entity := &domain.Activity{
		ID:           s.genID.Generate(),
		Name:         name,
		Code:         code,
		Unit:         unit,
		DefaultPrice: req.DefaultPrice,
		Currency:     currency,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Metadata != nil {
		entity.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		return nil, err
	}

	return entity, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Activity, error) {
	return s.repo.List(ctx, s.db, req)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Activity, error) {
	activityID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, activityID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, domain.ErrNotFound
	}

	return entity, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Activity, error) {
	activityID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, activityID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		entity.Name = name
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		if unit == "" {
			return nil, domain.ErrInvalidUnit
		}
		entity.Unit = unit
	}
	if req.DefaultPrice != nil {
		if req.DefaultPrice.LessThanOrEqual(decimal.Zero) {
			return nil, domain.ErrInvalidDefaultPrice
		}
		entity.DefaultPrice = req.DefaultPrice
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if len(currency) != 3 {
			return nil, domain.ErrInvalidCurrency
		}
		entity.Currency = currency
	}
	if req.Active != nil {
		entity.Active = *req.Active
	}

	entity.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, entity); err != nil {
		return nil, err
	}

	return entity, nil
}

func (s *Service) Archive(ctx context.Context, id string) (*domain.Activity, error) {
	active := false
	return s.Update(ctx, id, domain.UpdateRequest{Active: &active})
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
