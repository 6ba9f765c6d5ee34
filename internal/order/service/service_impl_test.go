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
	customerrepo "github.com/smallbiznis/workrate/internal/customer/repository"
	tierdomain "github.com/smallbiznis/workrate/internal/customerprice/domain"
	tierrepo "github.com/smallbiznis/workrate/internal/customerprice/repository"
	"github.com/smallbiznis/workrate/internal/order/domain"
	"github.com/smallbiznis/workrate/internal/order/repository"
	pricingdomain "github.com/smallbiznis/workrate/internal/pricing/domain"
	pricingservice "github.com/smallbiznis/workrate/internal/pricing/service"
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
	pricing  pricingdomain.Service
	customer customerdomain.Customer
	loading  activitydomain.Activity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&customerdomain.Customer{},
		&activitydomain.Activity{},
		&tierdomain.CustomerPrice{},
		&domain.Order{},
		&domain.OrderActivity{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC))
	holder := config.NewStaticPricingConfigHolder(config.DefaultPricingConfig())

	pricing := pricingservice.New(pricingservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		Clock:        fake,
		TierRepo:     tierrepo.Provide(),
		ActivityRepo: activityrepo.Provide(),
		PricingCfg:   holder,
	})

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        fake,
		Repo:         repository.Provide(),
		CustomerRepo: customerrepo.Provide(),
		Pricing:      pricing,
		PricingCfg:   holder,
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
	loading := activitydomain.Activity{
		ID:           node.Generate(),
		Name:         "Loading",
		Unit:         "hour",
		DefaultPrice: &defaultPrice,
		Currency:     "EUR",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, db.Create(&loading).Error)

	return &fixture{
		db: db, node: node, clock: fake, svc: svc, pricing: pricing,
		customer: customer, loading: loading,
	}
}

func (f *fixture) seedTier(t *testing.T, price string, from time.Time, to *time.Time) tierdomain.CustomerPrice {
	t.Helper()
	now := f.clock.Now()
	tier := tierdomain.CustomerPrice{
		ID:            f.node.Generate(),
		CustomerID:    f.customer.ID,
		ActivityID:    f.loading.ID,
		MinQuantity:   1,
		MaxQuantity:   100,
		Price:         decimal.RequireFromString(price),
		Currency:      "EUR",
		EffectiveFrom: from,
		EffectiveTo:   to,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.db.Create(&tier).Error)
	return tier
}

func (f *fixture) seedActivity(t *testing.T, name, unit string, defaultPrice *string) activitydomain.Activity {
	t.Helper()
	now := f.clock.Now()
	activity := activitydomain.Activity{
		ID:        f.node.Generate(),
		Name:      name,
		Unit:      unit,
		Currency:  "EUR",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if defaultPrice != nil {
		d := decimal.RequireFromString(*defaultPrice)
		activity.DefaultPrice = &d
	}
	require.NoError(t, f.db.Create(&activity).Error)
	return activity
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateOrderSnapshotsLines(t *testing.T) {
	f := newFixture(t)
	f.seedTier(t, "8.00", date(2024, time.January, 1), nil)

	resp, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: f.customer.ID.String(),
		Lines: []domain.LineRequest{
			{ActivityID: f.loading.ID.String(), Quantity: 3},
		},
	})
	require.NoError(t, err)

	require.Len(t, resp.Lines, 1)
	line := resp.Lines[0]
	assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("8.00")))
	assert.True(t, line.LineTotal.Equal(decimal.RequireFromString("24.00")))
	assert.Equal(t, pricingdomain.SourceCustomer, line.Source)
	assert.Equal(t, "hour", line.Unit)
	require.NotNil(t, line.OrderID)
	assert.Equal(t, resp.Order.ID, *line.OrderID)
}

func TestCreateOrderSnapshotIsFrozen(t *testing.T) {
	f := newFixture(t)
	tier := f.seedTier(t, "8.00", date(2024, time.January, 1), nil)

	resp, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: f.customer.ID.String(),
		Lines: []domain.LineRequest{
			{ActivityID: f.loading.ID.String(), Quantity: 3},
		},
	})
	require.NoError(t, err)

	// Reprice the tier after order creation.
	require.NoError(t, f.db.Model(&tierdomain.CustomerPrice{}).
		Where("id = ?", tier.ID).
		Update("price", decimal.RequireFromString("9.00")).Error)

	stored, err := f.svc.Get(context.Background(), domain.GetOrderRequest{ID: resp.Order.ID.String()})
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.True(t, stored.Lines[0].UnitPrice.Equal(decimal.RequireFromString("8.00")))
	assert.True(t, stored.Lines[0].LineTotal.Equal(decimal.RequireFromString("24.00")))
}

func TestCreateOrderAtomicRollback(t *testing.T) {
	f := newFixture(t)
	unpriced := f.seedActivity(t, "Special handling", "piece", nil)

	_, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: f.customer.ID.String(),
		Lines: []domain.LineRequest{
			{ActivityID: f.loading.ID.String(), Quantity: 2},
			{ActivityID: unpriced.ID.String(), Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, pricingdomain.ErrNoPriceAvailable)

	var orderCount, lineCount int64
	require.NoError(t, f.db.Model(&domain.Order{}).Count(&orderCount).Error)
	require.NoError(t, f.db.Model(&domain.OrderActivity{}).Count(&lineCount).Error)
	assert.Zero(t, orderCount)
	assert.Zero(t, lineCount)
}

func TestCreateOrderUsesScheduledDate(t *testing.T) {
	f := newFixture(t)
	to := date(2024, time.March, 31)
	f.seedTier(t, "8.00", date(2024, time.January, 1), &to)

	// Clock sits in June; scheduling inside the tier window picks it up.
	scheduled := date(2024, time.February, 15)
	resp, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID:  f.customer.ID.String(),
		ScheduledAt: &scheduled,
		Lines: []domain.LineRequest{
			{ActivityID: f.loading.ID.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, pricingdomain.SourceCustomer, resp.Lines[0].Source)
	assert.True(t, resp.Lines[0].LineTotal.Equal(decimal.RequireFromString("16.00")))

	// Without a schedule the clock's June date applies, past the window.
	resp, err = f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: f.customer.ID.String(),
		Lines: []domain.LineRequest{
			{ActivityID: f.loading.ID.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, pricingdomain.SourceDefault, resp.Lines[0].Source)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: f.customer.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrNoLines)

	_, err = f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: f.customer.ID.String(),
		Lines: []domain.LineRequest{
			{ActivityID: f.loading.ID.String(), Quantity: 0},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: f.node.Generate().String(),
		Lines: []domain.LineRequest{
			{ActivityID: f.loading.ID.String(), Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)
}

func TestAddActivityPricesAtOrderSchedule(t *testing.T) {
	f := newFixture(t)
	to := date(2024, time.March, 31)
	f.seedTier(t, "8.00", date(2024, time.January, 1), &to)

	scheduled := date(2024, time.February, 15)
	resp, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID:  f.customer.ID.String(),
		ScheduledAt: &scheduled,
		Lines: []domain.LineRequest{
			{ActivityID: f.loading.ID.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)

	line, err := f.svc.AddActivity(context.Background(), domain.AddActivityRequest{
		OrderID:    resp.Order.ID.String(),
		ActivityID: f.loading.ID.String(),
		Quantity:   4,
	})
	require.NoError(t, err)
	assert.Equal(t, pricingdomain.SourceCustomer, line.Source)
	assert.True(t, line.LineTotal.Equal(decimal.RequireFromString("32.00")))

	stored, err := f.svc.Get(context.Background(), domain.GetOrderRequest{ID: resp.Order.ID.String()})
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 2)
}

func TestAttachCatalogActivity(t *testing.T) {
	f := newFixture(t)

	line, err := f.svc.AttachCatalogActivity(context.Background(), domain.AttachCatalogActivityRequest{
		CustomerID: f.customer.ID.String(),
		ActivityID: f.loading.ID.String(),
		Quantity:   2,
	})
	require.NoError(t, err)
	assert.Nil(t, line.OrderID)
	assert.Equal(t, pricingdomain.SourceDefault, line.Source)
	assert.True(t, line.LineTotal.Equal(decimal.RequireFromString("20.00")))
}

func TestDeactivateLine(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID: f.customer.ID.String(),
		Lines: []domain.LineRequest{
			{ActivityID: f.loading.ID.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)

	line, err := f.svc.DeactivateLine(context.Background(), domain.DeactivateLineRequest{
		OrderID: resp.Order.ID.String(),
		LineID:  resp.Lines[0].ID.String(),
	})
	require.NoError(t, err)
	assert.False(t, line.Active)

	// Deactivation never touches the snapshot.
	assert.True(t, line.UnitPrice.Equal(resp.Lines[0].UnitPrice))
	assert.True(t, line.LineTotal.Equal(resp.Lines[0].LineTotal))

	_, err = f.svc.DeactivateLine(context.Background(), domain.DeactivateLineRequest{
		OrderID: f.node.Generate().String(),
		LineID:  resp.Lines[0].ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrLineNotFound)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	f.seedTier(t, "8.00", date(2024, time.January, 1), nil)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
			CustomerID: f.customer.ID.String(),
			Lines: []domain.LineRequest{
				{ActivityID: f.loading.ID.String(), Quantity: 1},
			},
		})
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}

	resp, err := f.svc.List(context.Background(), domain.ListOrderRequest{
		CustomerID: f.customer.ID.String(),
	})
	require.NoError(t, err)
	assert.Len(t, resp.Orders, 3)

	paged, err := f.svc.List(context.Background(), domain.ListOrderRequest{
		CustomerID: f.customer.ID.String(),
		PageSize:   2,
	})
	require.NoError(t, err)
	assert.Len(t, paged.Orders, 2)
	assert.True(t, paged.HasMore)
}
