package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grocery/backend/internal/application/seeding"
	"github.com/grocery/backend/internal/infrastructure/auth"
	"github.com/grocery/backend/internal/infrastructure/cache"
	"github.com/grocery/backend/internal/infrastructure/config"
	"github.com/grocery/backend/internal/infrastructure/logger"
	"github.com/grocery/backend/internal/infrastructure/openfoodfacts"
	"github.com/grocery/backend/internal/infrastructure/persistence"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command, cmdArgs := args[0], args[1:]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.Open(ctx, &cfg.Database, logger.NewSQLLogger(log, logger.SQLLogConfig{Level: logger.ParseSQLLevel("warn")}))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	opts := []seeding.Option{seeding.WithOutput(os.Stdout), seeding.WithLogger(log)}
	if needsProductSource(command) {
		client, closeRedis := newProductSource(ctx, cfg, log)
		defer closeRedis()
		opts = append(opts, seeding.WithProductSource(client))
	}

	seeder := seeding.NewSeeder(seeding.Repositories{
		Users:     persistence.NewGormUserRepository(db.DB),
		Customers: persistence.NewGormCustomerRepository(db.DB),
		Products:  persistence.NewGormProductRepository(db.DB),
		Invoices:  persistence.NewGormInvoiceRepository(db.DB),
	}, opts...)

	log.Info("Seed command started", zap.String("command", command))
	if err := run(ctx, seeder, command, cmdArgs); err != nil {
		log.Fatal("Seed command failed", zap.String("command", command), zap.Error(err))
	}
	log.Info("Seed command finished", zap.String("command", command))
}

func run(ctx context.Context, seeder *seeding.Seeder, command string, args []string) error {
	switch command {
	case "seed-data":
		_, err := seeder.SeedData(ctx)
		return err
	case "create-invoices":
		_, err := seeder.CreateInvoices(ctx)
		return err
	case "populate-test-data":
		_, err := seeder.PopulateTestData(ctx)
		return err
	case "fetch-products":
		fs := flag.NewFlagSet("fetch-products", flag.ContinueOnError)
		count := fs.Int("count", 20, "Number of products to fetch")
		category := fs.String("category", "", "Category to search for (e.g. yogurt, cheese, bread)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		_, err := seeder.FetchProducts(ctx, *count, *category)
		return err
	case "fetch-real-products":
		_, err := seeder.FetchRealProducts(ctx)
		return err
	case "import-products":
		_, err := seeder.ImportProducts(ctx)
		return err
	case "list-products":
		_, err := seeder.ListProducts(ctx)
		return err
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func needsProductSource(command string) bool {
	switch command {
	case "fetch-products", "fetch-real-products", "import-products":
		return true
	}
	return false
}

// newProductSource builds the Open Food Facts client, caching responses in
// Redis when it is reachable
func newProductSource(ctx context.Context, cfg *config.Config, log *zap.Logger) (*openfoodfacts.Client, func()) {
	var client redis.UniversalClient
	closeFn := func() {}

	rdb, err := auth.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, Open Food Facts responses will be cached in memory", zap.Error(err))
	} else {
		client = rdb
		closeFn = func() { _ = rdb.Close() }
	}

	store := cache.NewStoreFactory(client, cache.WithLogger(log)).CreateStore(ctx, "grocery:")
	return openfoodfacts.NewClient(cfg.OpenFoodFacts,
		openfoodfacts.WithCache(store),
		openfoodfacts.WithLogger(log),
	), closeFn
}

func printUsage() {
	fmt.Println(`Grocery Seed Tool

Usage:
  seed [flags] <command> [arguments]

Commands:
  seed-data                              Create the admin, test customers, sample products and invoices
  create-invoices                        Replace all invoices with random completed invoices
  populate-test-data                     Ensure demo accounts and add backdated invoices
  fetch-products [--count N] [--category C]
                                         Import products from an Open Food Facts search
  fetch-real-products                    Replace the catalog with one product per fixed search
  import-products                        Replace the catalog with products from many searches
  list-products                          Print products grouped by nutrition score

Flags:
  -log-level string   Log level (debug, info, warn, error) (default "info")

Environment Variables:
  GROCERY_DATABASE_HOST        Database host
  GROCERY_DATABASE_PORT        Database port
  GROCERY_DATABASE_USER        Database user
  GROCERY_DATABASE_PASSWORD    Database password
  GROCERY_DATABASE_DBNAME      Database name
  GROCERY_REDIS_HOST           Redis host used to cache Open Food Facts responses`)
}
