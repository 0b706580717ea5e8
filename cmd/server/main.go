// Package main is the entry point for the bottega API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bottega/internal/core/numerator"
	"bottega/internal/core/tx"
	"bottega/internal/core/types"
	"bottega/internal/domain"
	"bottega/internal/domain/auth"
	"bottega/internal/domain/catalogs/product"
	"bottega/internal/domain/catalogs/supplier"
	"bottega/internal/domain/documents/invoice"
	"bottega/internal/domain/documents/sale"
	"bottega/internal/domain/finance"
	"bottega/internal/domain/ledger"
	"bottega/internal/domain/payment"
	"bottega/internal/infrastructure/hardware"
	v1 "bottega/internal/infrastructure/http/v1"
	"bottega/internal/infrastructure/http/v1/handlers"
	"bottega/internal/infrastructure/storage/memory"
	"bottega/internal/infrastructure/storage/postgres"
	"bottega/internal/infrastructure/vision"
	"bottega/pkg/logger"
)

// repositories groups the storage-backend-specific pieces. Both backends
// satisfy the same domain interfaces, so everything above this struct is
// wired identically.
type repositories struct {
	products  product.Repository
	suppliers supplier.Repository
	sales     sale.Repository
	invoices  invoice.Repository
	records   finance.Repository
	users     auth.UserRepository
	txManager tx.Manager
	numbers   numerator.Generator
	pinger    handlers.Pinger
	audit     *postgres.AuditTrail
	close     func()
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting bottega server")

	repos, err := setupStorage(ctx, log)
	if err != nil {
		log.Fatalw("failed to initialize storage", "error", err)
	}
	defer repos.close()

	// --- Auth ---
	jwtSecret := getEnv("JWT_SECRET", "change-me-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))
	authService := auth.NewService(repos.users, repos.txManager, jwtService, auth.DefaultServiceConfig())

	// --- Catalogs ---
	pricing := product.PricingParams{
		VATRatePercent:      getEnvMoney("VAT_RATE_PERCENT", "22"),
		OnlineMarkupPercent: getEnvMoney("ONLINE_MARKUP_PERCENT", "10"),
	}
	productService := product.NewService(repos.products, repos.txManager, pricing)
	supplierService := supplier.NewService(repos.suppliers, repos.txManager)

	if repos.audit != nil {
		registerAudit(productService, repos.audit)
	}

	// --- Payment channels and fiscal printer ---
	cardClient := hardware.NewSumUpClient(hardware.SumUpConfig{
		APIKey:     getEnv("SUMUP_API_KEY", ""),
		MerchantEmail: getEnv("SUMUP_PAY_TO_EMAIL", ""),
	})
	terminal := hardware.NewNetworkTerminal(hardware.TerminalConfig{
		Address: getEnv("TERMINAL_ADDR", "192.168.1.50"),
	})
	paymentAdapter := payment.NewAdapter(cardClient, terminal)

	printer := hardware.NewEpsonFiscalPrinter(hardware.FiscalPrinterConfig{
		Address: getEnv("FISCAL_PRINTER_ADDR", "192.168.1.10"),
		Brand:   getEnv("FISCAL_PRINTER_BRAND", "epson"),
	})

	// --- Documents ---
	saleProcessor := sale.NewProcessor(
		repos.products, repos.sales, paymentAdapter, printer, repos.numbers, repos.txManager)

	financeService := finance.NewService(repos.records, repos.txManager)
	invoiceService := invoice.NewService(repos.invoices, repos.products, repos.records, repos.txManager)
	financeService.SetInstallmentPayments(invoiceService)

	ledgerService := ledger.NewService(repos.sales, repos.invoices, repos.records)

	// --- Vision (optional) ---
	var visionClient *vision.Client
	if apiKey := getEnv("VISION_API_KEY", ""); apiKey != "" {
		visionClient = vision.NewClient(vision.Config{
			BaseURL: getEnv("VISION_BASE_URL", "https://generativelanguage.googleapis.com"),
			APIKey:  apiKey,
			Model:   getEnv("VISION_MODEL", "gemini-2.5-flash"),
		})
		log.Info("vision client enabled")
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:          log,
		Storage:         repos.pinger,
		JWTValidator:    jwtService,
		AuthService:     authService,
		ProductService:  productService,
		SupplierService: supplierService,
		SaleProcessor:   saleProcessor,
		SaleRepo:        repos.sales,
		InvoiceService:  invoiceService,
		FinanceService:  financeService,
		LedgerService:   ledgerService,
		VisionClient:    visionClient,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // terminal authorization can hold a request open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// setupStorage picks the backend: postgres when DATABASE_URL is set, the
// in-memory store otherwise.
func setupStorage(ctx context.Context, log *logger.Logger) (*repositories, error) {
	dsn := getEnv("DATABASE_URL", "")
	if dsn == "" {
		log.Info("no DATABASE_URL, using in-memory storage")

		store := memory.NewStore()
		return &repositories{
			products:  memory.NewProductRepo(store),
			suppliers: memory.NewSupplierRepo(store),
			sales:     memory.NewSaleRepo(store),
			invoices:  memory.NewInvoiceRepo(store),
			records:   memory.NewRecordRepo(store),
			users:     memory.NewUserRepo(store),
			txManager: memory.NewTxManager(store),
			numbers:   numerator.NewMemoryGenerator(),
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		return nil, err
	}
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)
	audit, err := postgres.NewAuditTrail(txManager)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &repositories{
		products:  postgres.NewProductRepo(txManager),
		suppliers: postgres.NewSupplierRepo(txManager),
		sales:     postgres.NewSaleRepo(txManager),
		invoices:  postgres.NewInvoiceRepo(txManager),
		records:   postgres.NewRecordRepo(txManager),
		users:     postgres.NewUserRepo(txManager),
		txManager: txManager,
		numbers:   postgres.NewNumeratorService(txManager),
		pinger:    pool,
		audit:     audit,
		close:     pool.Close,
	}, nil
}

// registerAudit attaches the audit trail to the product catalog hooks.
func registerAudit(products *product.Service, audit *postgres.AuditTrail) {
	products.Hooks().On(domain.AfterCreate, func(ctx context.Context, p *product.Product) error {
		return audit.Record(ctx, "product", p.ID, postgres.AuditActionCreate, p)
	})
	products.Hooks().On(domain.AfterUpdate, func(ctx context.Context, p *product.Product) error {
		return audit.Record(ctx, "product", p.ID, postgres.AuditActionUpdate, p)
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvMoney(key, defaultValue string) types.Money {
	value := getEnv(key, defaultValue)
	m, err := types.NewMoneyFromString(value)
	if err != nil {
		return types.MustMoney(defaultValue)
	}
	return m
}
