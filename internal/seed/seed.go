package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	activitydomain "github.com/smallbiznis/workrate/internal/activity/domain"
	"gorm.io/gorm"
)

type starterActivity struct {
	name         string
	code         string
	unit         string
	defaultPrice string
}

// A minimal billable catalog so a fresh install can quote and cost orders
// before an admin defines activities.
var starterCatalog = []starterActivity{
	{name: "Loading", code: "LOAD", unit: "hour", defaultPrice: "10.00"},
	{name: "Unloading", code: "UNLOAD", unit: "hour", defaultPrice: "10.00"},
	{name: "Transport", code: "TRANSPORT", unit: "km", defaultPrice: "1.20"},
	{name: "Picking", code: "PICK", unit: "piece", defaultPrice: "0.35"},
	{name: "Packaging", code: "PACK", unit: "piece", defaultPrice: "0.50"},
}

// EnsureStarterCatalog seeds the starter activities for startup bootstrap.
// Existing codes are left untouched so reruns are harmless.
func EnsureStarterCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range starterCatalog {
			if err := ensureActivityTx(ctx, tx, node, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureActivityTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, item starterActivity) error {
	var existing activitydomain.Activity
	err := tx.WithContext(ctx).
		Where("code = ?", item.code).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	price, err := decimal.NewFromString(item.defaultPrice)
	if err != nil {
		return err
	}

	code := item.code
	now := time.Now().UTC()
	activity := activitydomain.Activity{
		ID:           node.Generate(),
		Name:         item.name,
		Code:         &code,
		Unit:         item.unit,
		DefaultPrice: &price,
		Currency:     "EUR",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return tx.WithContext(ctx).Create(&activity).Error
}
