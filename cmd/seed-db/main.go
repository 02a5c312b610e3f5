package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/sales-service/internal/catalog"
	"github.com/xenking/sales-service/internal/repository"
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "catalog JSON or .json.gz file, the embedded catalog when empty")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, catalogFile); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, catalogFile string) error {
	var (
		c   *catalog.Catalog
		err error
	)
	if catalogFile == "" {
		lg.Info("Using embedded catalog")
		c, err = catalog.Default()
	} else {
		lg.Info("Reading catalog", zap.String("path", catalogFile))
		c, err = catalog.ReadFile(catalogFile)
	}
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}

	lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := c.Load(ctx, catalog.Stores{
		Customers: repository.NewCustomerRepository(pool),
		Branches:  repository.NewBranchRepository(pool),
		Products:  repository.NewProductRepository(pool),
	}); err != nil {
		return errors.Wrap(err, "load catalog")
	}

	lg.Info("Catalog loaded",
		zap.Int("customers", len(c.Customers)),
		zap.Int("branches", len(c.Branches)),
		zap.Int("products", len(c.Products)),
	)
	return nil
}
