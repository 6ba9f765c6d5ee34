package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	activitydomain "github.com/smallbiznis/workrate/internal/activity/domain"
	activityrepo "github.com/smallbiznis/workrate/internal/activity/repository"
	"github.com/smallbiznis/workrate/internal/clock"
	"github.com/smallbiznis/workrate/internal/config"
	customerdomain "github.com/smallbiznis/workrate/internal/customer/domain"
	tierdomain "github.com/smallbiznis/workrate/internal/customerprice/domain"
	tierrepo "github.com/smallbiznis/workrate/internal/customerprice/repository"
	"github.com/smallbiznis/workrate/internal/pricing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	svc      domain.Service
	customer customerdomain.Customer
	activity activitydomain.Activity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&customerdomain.Customer{},
		&activitydomain.Activity{},
		&tierdomain.CustomerPrice{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		Clock:        fake,
		TierRepo:     tierrepo.Provide(),
		ActivityRepo: activityrepo.Provide(),
		PricingCfg:   config.NewStaticPricingConfigHolder(config.DefaultPricingConfig()),
	})

	now := fake.Now()
	customer := customerdomain.Customer{
		ID:        node.Generate(),
		Name:      "Acme",
		Email:     "billing@acme.test",
		Currency:  "EUR",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(&customer).Error)

	defaultPrice := decimal.RequireFromString("10.00")
	activity := activitydomain.Activity{
		ID:           node.Generate(),
		Name:         "Loading",
		Unit:         "hour",
		DefaultPrice: &defaultPrice,
		Currency:     "EUR",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, db.Create(&activity).Error)

	return &fixture{db: db, node: node, clock: fake, svc: svc, customer: customer, activity: activity}
}

type tierSpec struct {
	minQty    int64
	maxQty    int64
	price     string
	from      time.Time
	to        *time.Time
	active    bool
	createdAt time.Time
}

func (f *fixture) seedTier(t *testing.T, spec tierSpec) tierdomain.CustomerPrice {
	t.Helper()
	createdAt := spec.createdAt
	if createdAt.IsZero() {
		createdAt = f.clock.Now()
	}
	tier := tierdomain.CustomerPrice{
		ID:            f.node.Generate(),
		CustomerID:    f.customer.ID,
		ActivityID:    f.activity.ID,
		MinQuantity:   spec.minQty,
		MaxQuantity:   spec.maxQty,
		Price:         decimal.RequireFromString(spec.price),
		Currency:      "EUR",
		EffectiveFrom: spec.from,
		EffectiveTo:   spec.to,
		Active:        spec.active,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	require.NoError(t, f.db.Create(&tier).Error)
	// gorm omits zero-value fields that carry a default tag on insert, so
	// Active=false would be stored as the column default (true) without this.
	require.NoError(t, f.db.Model(&tier).UpdateColumn("active", spec.active).Error)
	return tier
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func (f *fixture) resolve(t *testing.T, quantity int64, ref *time.Time) domain.PriceResult {
	t.Helper()
	result, err := f.svc.Resolve(context.Background(), domain.ResolveRequest{
		CustomerID:    f.customer.ID.String(),
		ActivityID:    f.activity.ID.String(),
		Quantity:      quantity,
		ReferenceDate: ref,
	})
	require.NoError(t, err)
	return result
}

func TestResolveFallsBackToDefault(t *testing.T) {
	f := newFixture(t)

	result := f.resolve(t, 5, nil)

	assert.Equal(t, domain.SourceDefault, result.Source)
	assert.True(t, result.Price.Equal(decimal.RequireFromString("10.00")))
	assert.Equal(t, "EUR", result.Currency)
	assert.Equal(t, "hour", result.Unit)
	assert.Nil(t, result.TierID)
}

func TestResolveTierWins(t *testing.T) {
	f := newFixture(t)

	tier := f.seedTier(t, tierSpec{
		minQty: 1, maxQty: 10, price: "8.00",
		from: date(2024, time.January, 1), active: true,
	})

	result := f.resolve(t, 5, nil)

	assert.Equal(t, domain.SourceCustomer, result.Source)
	assert.True(t, result.Price.Equal(decimal.RequireFromString("8.00")))
	require.NotNil(t, result.TierID)
	assert.Equal(t, tier.ID, *result.TierID)
}

func TestResolveQuantityOutsideRange(t *testing.T) {
	f := newFixture(t)

	f.seedTier(t, tierSpec{
		minQty: 1, maxQty: 10, price: "8.00",
		from: date(2024, time.January, 1), active: true,
	})

	result := f.resolve(t, 11, nil)
	assert.Equal(t, domain.SourceDefault, result.Source)
}

func TestResolveWindowBoundsInclusive(t *testing.T) {
	f := newFixture(t)

	f.seedTier(t, tierSpec{
		minQty: 1, maxQty: 10, price: "8.00",
		from: date(2024, time.March, 1), to: datePtr(2024, time.September, 30),
		active: true,
	})

	first := date(2024, time.March, 1)
	result := f.resolve(t, 5, &first)
	assert.Equal(t, domain.SourceCustomer, result.Source)

	last := date(2024, time.September, 30)
	result = f.resolve(t, 5, &last)
	assert.Equal(t, domain.SourceCustomer, result.Source)

	after := date(2024, time.October, 1)
	result = f.resolve(t, 5, &after)
	assert.Equal(t, domain.SourceDefault, result.Source)

	before := date(2024, time.February, 29)
	result = f.resolve(t, 5, &before)
	assert.Equal(t, domain.SourceDefault, result.Source)
}

func TestResolveQuantityBoundsInclusive(t *testing.T) {
	f := newFixture(t)

	f.seedTier(t, tierSpec{
		minQty: 3, maxQty: 7, price: "8.00",
		from: date(2024, time.January, 1), active: true,
	})

	assert.Equal(t, domain.SourceCustomer, f.resolve(t, 3, nil).Source)
	assert.Equal(t, domain.SourceCustomer, f.resolve(t, 7, nil).Source)
	assert.Equal(t, domain.SourceDefault, f.resolve(t, 2, nil).Source)
	assert.Equal(t, domain.SourceDefault, f.resolve(t, 8, nil).Source)
}

func TestResolveIgnoresInactiveTier(t *testing.T) {
	f := newFixture(t)

	f.seedTier(t, tierSpec{
		minQty: 1, maxQty: 10, price: "8.00",
		from: date(2024, time.January, 1), active: false,
	})

	result := f.resolve(t, 5, nil)
	assert.Equal(t, domain.SourceDefault, result.Source)
}

func TestResolveMostRecentlyEffectiveWins(t *testing.T) {
	f := newFixture(t)

	f.seedTier(t, tierSpec{
		minQty: 1, maxQty: 10, price: "8.00",
		from: date(2024, time.January, 1), to: datePtr(2024, time.December, 31),
		active: false,
	})
	f.seedTier(t, tierSpec{
		minQty: 1, maxQty: 10, price: "9.00",
		from: date(2024, time.April, 1), active: true,
	})
	older := f.seedTier(t, tierSpec{
		minQty: 11, maxQty: 20, price: "7.00",
		from: date(2024, time.January, 1), active: true,
	})
	_ = older

	result := f.resolve(t, 5, nil)
	assert.True(t, result.Price.Equal(decimal.RequireFromString("9.00")))
}

func TestResolveTiebreakByCreation(t *testing.T) {
	f := newFixture(t)

	// Two equally dated tiers should not pass validation, but resolution
	// must still be deterministic if they exist: latest created wins.
	f.seedTier(t, tierSpec{
		minQty: 1, maxQty: 10, price: "8.00",
		from: date(2024, time.January, 1), active: true,
		createdAt: date(2024, time.January, 1),
	})
	f.seedTier(t, tierSpec{
		minQty: 1, maxQty: 10, price: "8.50",
		from: date(2024, time.January, 1), active: true,
		createdAt: date(2024, time.February, 1),
	})

	result := f.resolve(t, 5, nil)
	assert.True(t, result.Price.Equal(decimal.RequireFromString("8.50")))
}

func TestResolveIdempotent(t *testing.T) {
	f := newFixture(t)

	f.seedTier(t, tierSpec{
		minQty: 1, maxQty: 10, price: "8.00",
		from: date(2024, time.January, 1), active: true,
	})

	ref := date(2024, time.June, 1)
	first := f.resolve(t, 5, &ref)
	second := f.resolve(t, 5, &ref)
	assert.Equal(t, first, second)
}

func TestResolveUnknownActivity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Resolve(context.Background(), domain.ResolveRequest{
		CustomerID: f.customer.ID.String(),
		ActivityID: f.node.Generate().String(),
		Quantity:   1,
	})
	assert.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestResolveNoPriceAvailable(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.db.Model(&activitydomain.Activity{}).
		Where("id = ?", f.activity.ID).
		Update("default_price", nil).Error)

	_, err := f.svc.Resolve(context.Background(), domain.ResolveRequest{
		CustomerID: f.customer.ID.String(),
		ActivityID: f.activity.ID.String(),
		Quantity:   1,
	})
	assert.ErrorIs(t, err, domain.ErrNoPriceAvailable)
}

func TestResolveInvalidQuantity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Resolve(context.Background(), domain.ResolveRequest{
		CustomerID: f.customer.ID.String(),
		ActivityID: f.activity.ID.String(),
		Quantity:   0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestQuoteComputesExactLineTotal(t *testing.T) {
	f := newFixture(t)

	f.seedTier(t, tierSpec{
		minQty: 1, maxQty: 10, price: "8.00",
		from: date(2024, time.January, 1), active: true,
	})

	quote, err := f.svc.Quote(context.Background(), domain.QuoteRequest{
		CustomerID: f.customer.ID.String(),
		ActivityID: f.activity.ID.String(),
		Quantity:   3,
	})
	require.NoError(t, err)

	assert.True(t, quote.UnitPrice.Equal(decimal.RequireFromString("8.00")))
	assert.True(t, quote.LineTotal.Equal(decimal.RequireFromString("24.00")))
	assert.Equal(t, domain.SourceCustomer, quote.Source)
	assert.Equal(t, "hour", quote.Unit)
	assert.Equal(t, f.clock.Now(), quote.ReferenceDate)
}

func TestQuoteUsesScheduledDate(t *testing.T) {
	f := newFixture(t)

	f.seedTier(t, tierSpec{
		minQty: 1, maxQty: 10, price: "8.00",
		from: date(2024, time.January, 1), to: datePtr(2024, time.March, 31),
		active: true,
	})

	// Clock sits in June; the tier only applies when the caller schedules
	// inside its window.
	quote, err := f.svc.Quote(context.Background(), domain.QuoteRequest{
		CustomerID: f.customer.ID.String(),
		ActivityID: f.activity.ID.String(),
		Quantity:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceDefault, quote.Source)

	scheduled := date(2024, time.February, 15)
	quote, err = f.svc.Quote(context.Background(), domain.QuoteRequest{
		CustomerID:  f.customer.ID.String(),
		ActivityID:  f.activity.ID.String(),
		Quantity:    2,
		ScheduledAt: &scheduled,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCustomer, quote.Source)
	assert.True(t, quote.LineTotal.Equal(decimal.RequireFromString("16.00")))
}
