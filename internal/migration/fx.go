package migration

import (
	activitydomain "github.com/smallbiznis/workrate/internal/activity/domain"
	"github.com/smallbiznis/workrate/internal/config"
	customerdomain "github.com/smallbiznis/workrate/internal/customer/domain"
	customerpricedomain "github.com/smallbiznis/workrate/internal/customerprice/domain"
	orderdomain "github.com/smallbiznis/workrate/internal/order/domain"
	"github.com/smallbiznis/workrate/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// The embedded migrations are postgres SQL; dev databases
			// (sqlite, mysql) get the schema without the exclusion
			// constraint, leaving the serializable transaction as the
			// only overlap guard.
			if err := conn.AutoMigrate(
				&activitydomain.Activity{},
				&customerdomain.Customer{},
				&customerpricedomain.CustomerPrice{},
				&orderdomain.Order{},
				&orderdomain.OrderActivity{},
			); err != nil {
				return err
			}
		}

		if cfg.BootstrapStarterCatalog {
			return seed.EnsureStarterCatalog(conn)
		}
		return nil
	}),
)
