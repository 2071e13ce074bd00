package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/opticore/opticore/internal/billing"
	billingdomain "github.com/opticore/opticore/internal/billing/domain"
	"github.com/opticore/opticore/internal/branch"
	branchdomain "github.com/opticore/opticore/internal/branch/domain"
	"github.com/opticore/opticore/internal/config"
	"github.com/opticore/opticore/internal/customer"
	customerdomain "github.com/opticore/opticore/internal/customer/domain"
	"github.com/opticore/opticore/internal/observability"
	obslogger "github.com/opticore/opticore/internal/observability/logger"
	obsmetrics "github.com/opticore/opticore/internal/observability/metrics"
	obstracing "github.com/opticore/opticore/internal/observability/tracing"
	"github.com/opticore/opticore/internal/order"
	orderdomain "github.com/opticore/opticore/internal/order/domain"
	"github.com/opticore/opticore/internal/product"
	productdomain "github.com/opticore/opticore/internal/product/domain"
	"github.com/opticore/opticore/internal/providers"
	"github.com/opticore/opticore/internal/quote"
	quotedomain "github.com/opticore/opticore/internal/quote/domain"
	"github.com/opticore/opticore/internal/ratelimit"
	"github.com/opticore/opticore/internal/workorder"
	workorderdomain "github.com/opticore/opticore/internal/workorder/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	branch.Module,
	customer.Module,
	product.Module,
	order.Module,
	quote.Module,
	workorder.Module,
	billing.Module,
	providers.Module,
	ratelimit.Module,
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

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
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
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	branchSvc    branchdomain.Service
	customerSvc  customerdomain.Service
	productSvc   productdomain.Service
	orderSvc     orderdomain.Service
	quoteSvc     quotedomain.Service
	workOrderSvc workorderdomain.Service
	billing      billingdomain.Adapter
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	BranchSvc    branchdomain.Service
	CustomerSvc  customerdomain.Service
	ProductSvc   productdomain.Service
	OrderSvc     orderdomain.Service
	QuoteSvc     quotedomain.Service
	WorkOrderSvc workorderdomain.Service
	Billing      billingdomain.Adapter
	Limiter      *ratelimit.Limiter  `optional:"true"`
	Tiers        *ratelimit.Tiers    `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		branchSvc:    p.BranchSvc,
		customerSvc:  p.CustomerSvc,
		productSvc:   p.ProductSvc,
		orderSvc:     p.OrderSvc,
		quoteSvc:     p.QuoteSvc,
		workOrderSvc: p.WorkOrderSvc,
		billing:      p.Billing,
		obsMetrics:   p.ObsMetrics,
	}

	if p.Cfg.RateLimit.Enabled && p.Limiter != nil && p.Tiers != nil {
		svc.engine.Use(ratelimit.Middleware(p.Limiter, p.Tiers, p.ObsMetrics))
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Branches --------
	// Branch management is tenant-global and skips branch resolution.
	api.GET("/branches", s.ListBranches)
	api.POST("/branches", s.CreateBranch)
	api.GET("/branches/:id", s.GetBranchByID)

	scoped := api.Group("", s.BranchContext())

	// -------- Customers --------
	scoped.GET("/customers", s.ListCustomers)
	scoped.POST("/customers", s.CreateCustomer)
	scoped.GET("/customers/:id", s.GetCustomerByID)

	// -------- Products --------
	scoped.GET("/products", s.ListProducts)
	scoped.POST("/products", s.CreateProduct)
	scoped.GET("/products/:id", s.GetProductByID)
	scoped.POST("/products/:id/archive", s.ArchiveProduct)

	// -------- Orders --------
	scoped.GET("/orders", s.ListOrders)
	scoped.POST("/orders", s.CreateOrder)
	scoped.GET("/orders/:id", s.GetOrderByID)
	scoped.POST("/orders/:id/complete", s.CompleteOrder)
	scoped.POST("/orders/:id/cancel", s.CancelOrder)

	// -------- Quotes --------
	scoped.GET("/quotes", s.ListQuotes)
	scoped.POST("/quotes", s.CreateQuote)
	scoped.GET("/quotes/:id", s.GetQuoteByID)
	scoped.POST("/quotes/:id/accept", s.AcceptQuote)

	// -------- Work orders --------
	scoped.GET("/work-orders", s.ListWorkOrders)
	scoped.POST("/work-orders", s.CreateWorkOrder)
	scoped.GET("/work-orders/:id", s.GetWorkOrderByID)
	scoped.POST("/work-orders/:id/advance", s.AdvanceWorkOrder)
	scoped.POST("/work-orders/:id/cancel", s.CancelWorkOrder)

	// -------- Billing documents --------
	scoped.GET("/billing/documents/:folio/status", s.GetBillingDocumentStatus)
	scoped.POST("/billing/documents/:folio/cancel", s.CancelBillingDocument)
}
