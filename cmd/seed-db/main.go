// Command seed-db loads the embedded laptop catalog and provisions API keys.
// It is idempotent: existing keys are left alone and the catalog is only
// seeded into an empty products table.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/techkart/laptop-store/db"
	"github.com/techkart/laptop-store/internal/domain/auth"
	"github.com/techkart/laptop-store/internal/domain/product"
	"github.com/techkart/laptop-store/internal/repository"
)

type productJSON struct {
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Specs       string          `json:"specs"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	Promotion   string          `json:"promotion"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
}

func main() {
	var (
		databaseURL  string
		adminKey     string
		customerKey  string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or SHOP_SEED_ADMIN_KEY env)")
	flag.StringVar(&customerKey, "customer-key", "", "customer API key to seed (or SHOP_SEED_CUSTOMER_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminKey == "" {
		adminKey = os.Getenv("SHOP_SEED_ADMIN_KEY")
	}
	if adminKey == "" {
		slog.Error("admin API key is required: set --admin-key or SHOP_SEED_ADMIN_KEY")
		os.Exit(1)
	}
	if customerKey == "" {
		customerKey = os.Getenv("SHOP_SEED_CUSTOMER_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, adminKey, customerKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, adminKey, customerKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := repository.NewProductRepository(pool)
	apikeys := repository.NewAPIKeyRepository(pool)

	existing, err := products.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}

	g, ctx := errgroup.WithContext(ctx)

	if len(existing) > 0 {
		slog.Info("catalog already seeded", slog.Int("products", len(existing)))
	} else {
		var items []productJSON
		if err := json.Unmarshal(db.SeedProducts, &items); err != nil {
			return errors.Wrap(err, "parse embedded catalog")
		}

		for _, item := range items {
			g.Go(func() error {
				p := product.Product{
					ID:          uuid.New().String(),
					Brand:       item.Brand,
					Model:       item.Model,
					Specs:       item.Specs,
					Price:       item.Price,
					Discount:    item.Discount,
					Promotion:   item.Promotion,
					Stock:       item.Stock,
					Description: item.Description,
					Image:       item.Image,
				}
				if err := p.Validate(); err != nil {
					return errors.Wrapf(err, "seed product %s %s", p.Brand, p.Model)
				}
				return products.Create(ctx, &p)
			})
		}
	}

	g.Go(func() error {
		return apikeys.Create(ctx, &auth.Identity{
			ID:      uuid.New().String(),
			KeyHash: hashKey(adminKey, pepper),
			Name:    "seed-admin",
			UserID:  uuid.New().String(),
			Role:    auth.RoleAdmin,
		})
	})

	if customerKey != "" {
		g.Go(func() error {
			return apikeys.Create(ctx, &auth.Identity{
				ID:      uuid.New().String(),
				KeyHash: hashKey(customerKey, pepper),
				Name:    "seed-customer",
				UserID:  uuid.New().String(),
				Role:    auth.RoleUser,
			})
		})
	}

	return g.Wait()
}

func hashKey(key, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
