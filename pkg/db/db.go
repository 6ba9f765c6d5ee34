package db

import (
	"time"

	"github.com/smallbiznis/workrate/internal/config"
	obslogger "github.com/smallbiznis/workrate/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

// New opens the gorm connection, installs the tracing and metrics plugins and
// applies pool settings from configuration.
func New(p Params) (*gorm.DB, error) {
	dialect, err := Dialect(p.Cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialect, &gorm.Config{
		Logger:  obslogger.NewGormLogger(obslogger.DefaultGormLoggerConfig()),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(p.Cfg.DBName))); err != nil {
		return nil, err
	}

	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          p.Cfg.DBName,
		RefreshInterval: 15,
	})); err != nil {
		p.Log.Warn("gorm prometheus plugin not installed", zap.Error(err))
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}

	if p.Cfg.DBMaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(p.Cfg.DBMaxIdleConn)
	}
	if p.Cfg.DBMaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(p.Cfg.DBMaxOpenConn)
	}
	if p.Cfg.DBConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(p.Cfg.DBConnMaxLifetime) * time.Second)
	}
	if p.Cfg.DBConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(p.Cfg.DBConnMaxIdleTime) * time.Second)
	}

	return conn, nil
}
