package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/workrate/internal/activity"
	activitydomain "github.com/smallbiznis/workrate/internal/activity/domain"
	"github.com/smallbiznis/workrate/internal/clock"
	"github.com/smallbiznis/workrate/internal/config"
	"github.com/smallbiznis/workrate/internal/customer"
	customerdomain "github.com/smallbiznis/workrate/internal/customer/domain"
	"github.com/smallbiznis/workrate/internal/customerprice"
	customerpricedomain "github.com/smallbiznis/workrate/internal/customerprice/domain"
	"github.com/smallbiznis/workrate/internal/observability"
	obslogger "github.com/smallbiznis/workrate/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/workrate/internal/observability/metrics"
	obstracing "github.com/smallbiznis/workrate/internal/observability/tracing"
	"github.com/smallbiznis/workrate/internal/order"
	orderdomain "github.com/smallbiznis/workrate/internal/order/domain"
	"github.com/smallbiznis/workrate/internal/pricing"
	pricingdomain "github.com/smallbiznis/workrate/internal/pricing/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	fx.Provide(registerGin),
	activity.Module,
	customer.Module,
	customerprice.Module,
	pricing.Module,
	order.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine           *gin.Engine
	cfg              config.Config
	db               *gorm.DB
	genID            *snowflake.Node
	activitySvc      activitydomain.Service
	customerSvc      customerdomain.Service
	customerPriceSvc customerpricedomain.Service
	pricingSvc       pricingdomain.Service
	orderSvc         orderdomain.Service
}

type ServerParams struct {
	fx.In

	Gin              *gin.Engine
	Cfg              config.Config
	DB               *gorm.DB
	GenID            *snowflake.Node
	ActivitySvc      activitydomain.Service
	CustomerSvc      customerdomain.Service
	CustomerPriceSvc customerpricedomain.Service
	PricingSvc       pricingdomain.Service
	OrderSvc         orderdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:           p.Gin,
		cfg:              p.Cfg,
		db:               p.DB,
		genID:            p.GenID,
		activitySvc:      p.ActivitySvc,
		customerSvc:      p.CustomerSvc,
		customerPriceSvc: p.CustomerPriceSvc,
		pricingSvc:       p.PricingSvc,
		orderSvc:         p.OrderSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Activities --------
	api.GET("/activities", s.ListActivities)
	api.POST("/activities", s.CreateActivity)
	api.GET("/activities/:id", s.GetActivityByID)
	api.PATCH("/activities/:id", s.UpdateActivity)
	api.DELETE("/activities/:id", s.ArchiveActivity)

	// -------- Customers --------
	api.GET("/customers", s.ListCustomers)
	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers/:id", s.GetCustomerByID)

	// -------- Customer price tiers --------
	api.GET("/customers/:id/prices", s.ListCustomerPrices)
	api.POST("/customers/:id/prices", s.CreateCustomerPrice)
	api.PUT("/customers/:id/prices/:priceId", s.UpdateCustomerPrice)
	api.DELETE("/customers/:id/prices/:priceId", s.DeleteCustomerPrice)

	// -------- Catalog lines --------
	api.GET("/customers/:id/activities", s.ListCatalogActivities)
	api.POST("/customers/:id/activities", s.AttachCatalogActivity)

	// -------- Pricing --------
	api.POST("/pricing/calculate", s.CalculatePrice)

	// -------- Orders --------
	api.GET("/orders", s.ListOrders)
	api.POST("/orders", s.CreateOrder)
	api.GET("/orders/:id", s.GetOrderByID)
	api.POST("/orders/:id/activities", s.AddOrderActivity)
	api.DELETE("/orders/:id/activities/:lineId", s.DeactivateOrderActivity)
}
