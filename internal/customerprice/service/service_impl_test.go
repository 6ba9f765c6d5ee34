package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	activitydomain "github.com/smallbiznis/workrate/internal/activity/domain"
	activityrepo "github.com/smallbiznis/workrate/internal/activity/repository"
	"github.com/smallbiznis/workrate/internal/config"
	customerdomain "github.com/smallbiznis/workrate/internal/customer/domain"
	customerrepo "github.com/smallbiznis/workrate/internal/customer/repository"
	"github.com/smallbiznis/workrate/internal/customerprice/domain"
	"github.com/smallbiznis/workrate/internal/customerprice/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
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
		&domain.CustomerPrice{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Repo:         repository.Provide(),
		ActivityRepo: activityrepo.Provide(),
		CustomerRepo: customerrepo.Provide(),
		PricingCfg:   config.NewStaticPricingConfigHolder(config.DefaultPricingConfig()),
	})

	now := time.Now().UTC()
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

	return &fixture{db: db, node: node, svc: svc, customer: customer, activity: activity}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func (f *fixture) createTier(t *testing.T, req domain.CreateRequest) domain.CustomerPrice {
	t.Helper()
	if req.CustomerID == "" {
		req.CustomerID = f.customer.ID.String()
	}
	if req.ActivityID == "" {
		req.ActivityID = f.activity.ID.String()
	}
	tier, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	return tier
}

func TestCreateTier(t *testing.T) {
	f := newFixture(t)

	tier := f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("8.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})

	assert.True(t, tier.Active)
	assert.Equal(t, "EUR", tier.Currency) // defaulted from config
	assert.Nil(t, tier.EffectiveTo)

	stored, err := f.svc.Get(context.Background(), domain.GetRequest{
		CustomerID: f.customer.ID.String(),
		ID:         tier.ID.String(),
	})
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("8.00")))
	assert.Equal(t, int64(1), stored.MinQuantity)
	assert.Equal(t, int64(10), stored.MaxQuantity)
}

func TestCreateTierValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{
			name: "min below one",
			req: domain.CreateRequest{
				MinQuantity: 0, MaxQuantity: 10,
				Price:         decimal.RequireFromString("8.00"),
				EffectiveFrom: date(2024, time.January, 1),
			},
			want: domain.ErrInvalidQuantityRange,
		},
		{
			name: "min above max",
			req: domain.CreateRequest{
				MinQuantity: 10, MaxQuantity: 5,
				Price:         decimal.RequireFromString("8.00"),
				EffectiveFrom: date(2024, time.January, 1),
			},
			want: domain.ErrInvalidQuantityRange,
		},
		{
			name: "zero price",
			req: domain.CreateRequest{
				MinQuantity: 1, MaxQuantity: 10,
				Price:         decimal.Zero,
				EffectiveFrom: date(2024, time.January, 1),
			},
			want: domain.ErrInvalidPrice,
		},
		{
			name: "missing effective from",
			req: domain.CreateRequest{
				MinQuantity: 1, MaxQuantity: 10,
				Price: decimal.RequireFromString("8.00"),
			},
			want: domain.ErrInvalidEffectiveFrom,
		},
		{
			name: "to before from",
			req: domain.CreateRequest{
				MinQuantity: 1, MaxQuantity: 10,
				Price:         decimal.RequireFromString("8.00"),
				EffectiveFrom: date(2024, time.June, 1),
				EffectiveTo:   datePtr(2024, time.January, 1),
			},
			want: domain.ErrInvalidEffectiveTo,
		},
		{
			name: "bad currency",
			req: domain.CreateRequest{
				MinQuantity: 1, MaxQuantity: 10,
				Price:         decimal.RequireFromString("8.00"),
				Currency:      "EURO",
				EffectiveFrom: date(2024, time.January, 1),
			},
			want: domain.ErrInvalidCurrency,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.CustomerID = f.customer.ID.String()
			tc.req.ActivityID = f.activity.ID.String()
			_, err := f.svc.Create(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateTierUnknownActivity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		CustomerID:    f.customer.ID.String(),
		ActivityID:    f.node.Generate().String(),
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("8.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidActivity)
}

func TestCreateTierOverlapRejected(t *testing.T) {
	f := newFixture(t)

	f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("8.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})

	// Same window, intersecting quantity range.
	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		CustomerID:    f.customer.ID.String(),
		ActivityID:    f.activity.ID.String(),
		MinQuantity:   5,
		MaxQuantity:   15,
		Price:         decimal.RequireFromString("7.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})
	assert.ErrorIs(t, err, domain.ErrTierOverlap)
}

func TestCreateTierAdjacentRangesAllowed(t *testing.T) {
	f := newFixture(t)

	f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("8.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})

	// 11 starts past the closed upper bound 10.
	f.createTier(t, domain.CreateRequest{
		MinQuantity:   11,
		MaxQuantity:   20,
		Price:         decimal.RequireFromString("7.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})
}

func TestCreateTierDisjointWindowsAllowed(t *testing.T) {
	f := newFixture(t)

	f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("8.00"),
		EffectiveFrom: date(2024, time.January, 1),
		EffectiveTo:   datePtr(2024, time.June, 30),
	})

	// Same quantity range, window starts after the first one ends.
	f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("9.00"),
		EffectiveFrom: date(2024, time.July, 1),
	})
}

func TestCreateTierTouchingWindowsConflict(t *testing.T) {
	f := newFixture(t)

	f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("8.00"),
		EffectiveFrom: date(2024, time.January, 1),
		EffectiveTo:   datePtr(2024, time.June, 30),
	})

	// Both window bounds are inclusive, so starting on the other tier's
	// last valid day overlaps.
	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		CustomerID:    f.customer.ID.String(),
		ActivityID:    f.activity.ID.String(),
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("9.00"),
		EffectiveFrom: date(2024, time.June, 30),
	})
	assert.ErrorIs(t, err, domain.ErrTierOverlap)
}

func TestCreateTierInactiveExistingIgnored(t *testing.T) {
	f := newFixture(t)

	inactive := false
	f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("8.00"),
		EffectiveFrom: date(2024, time.January, 1),
		Active:        &inactive,
	})

	f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("7.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})
}

func TestUpdateTier(t *testing.T) {
	f := newFixture(t)

	tier := f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("8.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})

	// Changing only the price keeps the same range, which must not
	// conflict with the row itself.
	newPrice := decimal.RequireFromString("9.50")
	updated, err := f.svc.Update(context.Background(), domain.UpdateRequest{
		CustomerID: f.customer.ID.String(),
		ID:         tier.ID.String(),
		Price:      &newPrice,
	})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(newPrice))
	assert.Equal(t, tier.MinQuantity, updated.MinQuantity)
}

func TestUpdateTierIntoOverlapRejected(t *testing.T) {
	f := newFixture(t)

	f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("8.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})
	second := f.createTier(t, domain.CreateRequest{
		MinQuantity:   11,
		MaxQuantity:   20,
		Price:         decimal.RequireFromString("7.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})

	lower := int64(5)
	_, err := f.svc.Update(context.Background(), domain.UpdateRequest{
		CustomerID:  f.customer.ID.String(),
		ID:          second.ID.String(),
		MinQuantity: &lower,
	})
	assert.ErrorIs(t, err, domain.ErrTierOverlap)
}

func TestUpdateTierCustomerMismatch(t *testing.T) {
	f := newFixture(t)

	tier := f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("8.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})

	newPrice := decimal.RequireFromString("9.00")
	_, err := f.svc.Update(context.Background(), domain.UpdateRequest{
		CustomerID: f.node.Generate().String(),
		ID:         tier.ID.String(),
		Price:      &newPrice,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeactivateThenReuseRange(t *testing.T) {
	f := newFixture(t)

	tier := f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("8.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})

	inactive := false
	_, err := f.svc.Update(context.Background(), domain.UpdateRequest{
		CustomerID: f.customer.ID.String(),
		ID:         tier.ID.String(),
		Active:     &inactive,
	})
	require.NoError(t, err)

	f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("7.50"),
		EffectiveFrom: date(2024, time.January, 1),
	})
}

func TestDeleteTier(t *testing.T) {
	f := newFixture(t)

	tier := f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("8.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})

	err := f.svc.Delete(context.Background(), domain.DeleteRequest{
		CustomerID: f.customer.ID.String(),
		ID:         tier.ID.String(),
	})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), domain.GetRequest{
		CustomerID: f.customer.ID.String(),
		ID:         tier.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = f.svc.Delete(context.Background(), domain.DeleteRequest{
		CustomerID: f.customer.ID.String(),
		ID:         tier.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListTiersFiltersByActivity(t *testing.T) {
	f := newFixture(t)

	now := time.Now().UTC()
	other := activitydomain.Activity{
		ID:        f.node.Generate(),
		Name:      "Transport",
		Unit:      "km",
		Currency:  "EUR",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&other).Error)

	f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("8.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})
	f.createTier(t, domain.CreateRequest{
		ActivityID:    other.ID.String(),
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("1.20"),
		EffectiveFrom: date(2024, time.January, 1),
	})

	all, err := f.svc.List(context.Background(), domain.ListRequest{
		CustomerID: f.customer.ID.String(),
	})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := f.svc.List(context.Background(), domain.ListRequest{
		CustomerID: f.customer.ID.String(),
		ActivityID: other.ID.String(),
	})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, other.ID, filtered[0].ActivityID)
}

func TestValidateOverlap(t *testing.T) {
	f := newFixture(t)

	tier := f.createTier(t, domain.CreateRequest{
		MinQuantity:   1,
		MaxQuantity:   10,
		Price:         decimal.RequireFromString("8.00"),
		EffectiveFrom: date(2024, time.January, 1),
	})

	ok, err := f.svc.ValidateOverlap(context.Background(), domain.ValidateOverlapRequest{
		CustomerID:    f.customer.ID.String(),
		ActivityID:    f.activity.ID.String(),
		MinQuantity:   5,
		MaxQuantity:   15,
		EffectiveFrom: date(2024, time.March, 1),
	})
	require.NoError(t, err)
	assert.False(t, ok)

	// Excluding the conflicting row itself clears the conflict.
	ok, err = f.svc.ValidateOverlap(context.Background(), domain.ValidateOverlapRequest{
		CustomerID:    f.customer.ID.String(),
		ActivityID:    f.activity.ID.String(),
		MinQuantity:   5,
		MaxQuantity:   15,
		EffectiveFrom: date(2024, time.March, 1),
		ExcludeID:     tier.ID.String(),
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExclusionConstraintMapsToTierConflict(t *testing.T) {
	f := newFixture(t)
	s := f.svc.(*Service)
	ctx := context.Background()

	// The database backstop for the check-then-act race surfaces as a
	// distinct conflict sentinel; the validator's own finding stays a
	// validation error.
	err := s.mapWriteErr(ctx, &pgconn.PgError{Code: "23P01"})
	assert.ErrorIs(t, err, domain.ErrTierConflict)

	err = s.mapWriteErr(ctx, domain.ErrTierOverlap)
	assert.ErrorIs(t, err, domain.ErrTierOverlap)
}
