// Package main provides a CLI tool for seeding the store with initial
// data: the owner account and a small demo catalog.
package main

import (
	"context"
	"fmt"
	"os"

	"bottega/internal/core/apperror"
	"bottega/internal/core/types"
	"bottega/internal/domain/auth"
	"bottega/internal/domain/catalogs/product"
	"bottega/internal/domain/catalogs/supplier"
	"bottega/internal/infrastructure/storage/postgres"
	"bottega/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)

	if err := seedOwner(ctx, txManager, log); err != nil {
		log.Fatalw("failed to seed owner account", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoCatalog(ctx, txManager, log); err != nil {
			log.Fatalw("failed to seed demo catalog", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedOwner(ctx context.Context, txManager *postgres.TxManager, log *logger.Logger) error {
	email := os.Getenv("OWNER_EMAIL")
	if email == "" {
		email = "owner@stylenexus.it"
	}
	password := os.Getenv("OWNER_PASSWORD")
	if password == "" {
		password = "Bottega123!"
	}

	users := postgres.NewUserRepo(txManager)
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig("seed-only"))
	authService := auth.NewService(users, txManager, jwtService, auth.DefaultServiceConfig())

	_, err := authService.Register(ctx, auth.RegisterRequest{
		Email:    email,
		Password: password,
		Name:     "Titolare",
		Role:     auth.RoleOwner,
	})
	if err != nil {
		if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeConflict {
			log.Infow("owner account already exists", "email", email)
			return nil
		}
		return err
	}

	log.Infow("owner account created", "email", email)
	return nil
}

// seedDemoCatalog loads the StyleNexus Boutique demo data: two suppliers
// and a handful of products with sized variants.
func seedDemoCatalog(ctx context.Context, txManager *postgres.TxManager, log *logger.Logger) error {
	pricing := product.PricingParams{
		VATRatePercent:      types.MustMoney("22"),
		OnlineMarkupPercent: types.MustMoney("10"),
	}
	products := product.NewService(postgres.NewProductRepo(txManager), txManager, pricing)
	suppliers := supplier.NewService(postgres.NewSupplierRepo(txManager), txManager)

	for _, s := range []struct {
		name, vat, email string
	}{
		{"Lanificio Veneto SRL", "IT01234567890", "ordini@lanificioveneto.it"},
		{"Milano Moda Distribuzione", "IT09876543210", "vendite@milanomoda.it"},
	} {
		sup := supplier.NewSupplier(s.name, s.vat)
		sup.Email = s.email
		if err := suppliers.Create(ctx, sup); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeDuplicate {
				log.Infow("supplier already exists", "vat", s.vat)
				continue
			}
			return err
		}
		log.Infow("supplier created", "name", sup.Name)
	}

	type demoVariant struct {
		size, color, barcode string
		stock                int
	}
	demoProducts := []struct {
		name, category, material string
		cost, markup             string
		variants                 []demoVariant
	}{
		{
			name: "Cappotto Lana Merino", category: "Donna", material: "Lana Merino",
			cost: "120.00", markup: "80",
			variants: []demoVariant{
				{"S", "Cammello", "2000000000013", 3},
				{"M", "Cammello", "2000000000020", 5},
				{"L", "Nero", "2000000000037", 2},
			},
		},
		{
			name: "Camicia Oxford", category: "Uomo", material: "Cotone",
			cost: "35.00", markup: "100",
			variants: []demoVariant{
				{"M", "Bianco", "2000000000044", 8},
				{"L", "Celeste", "2000000000051", 6},
			},
		},
		{
			name: "Sciarpa Cashmere", category: "Accessori", material: "Cashmere",
			cost: "45.00", markup: "90",
			variants: []demoVariant{
				{"U", "Grigio", "2000000000068", 10},
			},
		},
	}

	for _, d := range demoProducts {
		p := product.NewProduct(d.name, d.category)
		p.Material = d.material
		p.SetPricing(types.MustMoney(d.cost), types.MustMoney(d.markup), pricing)
		for _, v := range d.variants {
			p.AddVariant(v.size, v.color, v.barcode, v.stock)
		}
		if err := products.Create(ctx, p); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeDuplicate {
				log.Infow("product already exists", "name", d.name)
				continue
			}
			return err
		}
		log.Infow("product created", "name", d.name, "variants", len(d.variants))
	}

	return nil
}
