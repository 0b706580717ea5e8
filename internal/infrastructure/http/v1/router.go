// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"bottega/internal/domain/auth"
	"bottega/internal/domain/catalogs/product"
	"bottega/internal/domain/catalogs/supplier"
	"bottega/internal/domain/documents/invoice"
	"bottega/internal/domain/documents/sale"
	"bottega/internal/domain/finance"
	"bottega/internal/domain/ledger"
	"bottega/internal/infrastructure/http/v1/handlers"
	"bottega/internal/infrastructure/http/v1/middleware"
	"bottega/internal/infrastructure/vision"
	"bottega/pkg/logger"
)

// RouterConfig holds everything the router wires together.
type RouterConfig struct {
	Logger *logger.Logger

	// Storage is pinged by the readiness probe; nil in memory mode.
	Storage handlers.Pinger

	JWTValidator middleware.JWTValidator

	AuthService     *auth.Service
	ProductService  *product.Service
	SupplierService *supplier.Service
	SaleProcessor   *sale.Processor
	SaleRepo        sale.Repository
	InvoiceService  *invoice.Service
	FinanceService  *finance.Service
	LedgerService   *ledger.Service

	// VisionClient is optional; the vision endpoints are not registered
	// when it is nil.
	VisionClient *vision.Client
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Storage)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	base := handlers.NewBaseHandler()

	v1 := router.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(base, cfg.AuthService)

		v1.POST("/auth/login", authHandler.Login)

		authed := v1.Group("/auth")
		authed.Use(middleware.Auth(cfg.JWTValidator))
		authed.GET("/me", authHandler.Me)
		authed.POST("/register", middleware.RequireRole(string(auth.RoleOwner)), authHandler.Register)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		handlers.NewProductHandler(base, cfg.ProductService).
			RegisterRoutes(protected.Group("/catalog/products"))
		handlers.NewSupplierHandler(base, cfg.SupplierService).
			RegisterRoutes(protected.Group("/catalog/suppliers"))
		handlers.NewCheckoutHandler(base, cfg.ProductService, cfg.SaleProcessor, cfg.SaleRepo).
			RegisterRoutes(protected.Group(""))
		handlers.NewInvoiceHandler(base, cfg.InvoiceService).
			RegisterRoutes(protected.Group("/invoices"))
		handlers.NewRecordHandler(base, cfg.FinanceService).
			RegisterRoutes(protected.Group("/records"))

		// The ledger exposes the whole financial picture, owner only.
		ledgerGroup := protected.Group("/ledger")
		ledgerGroup.Use(middleware.RequireRole(string(auth.RoleOwner)))
		handlers.NewLedgerHandler(base, cfg.LedgerService).
			RegisterRoutes(ledgerGroup)

		if cfg.VisionClient != nil {
			handlers.NewVisionHandler(base, cfg.VisionClient).
				RegisterRoutes(protected.Group("/vision"))
		}
	}

	return router
}
