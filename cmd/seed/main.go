// Command seed loads a YAML fixture of categories, products and an admin
// account into the storefront database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

var (
	fixturePath   string
	adminPassword string
	skipAdmin     bool
	validateOnly  bool
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load categories, products and an admin account from YAML",
	Long: `Seed reads a fixture file and creates whatever is missing.

Categories are matched by slug, products by SKU and the admin by email,
so running the same file twice is safe. Run migrations first.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runSeed,
}

func init() {
	rootCmd.Flags().StringVarP(&fixturePath, "file", "f", "seeds/catalog.yaml", "fixture file")
	rootCmd.Flags().StringVar(&adminPassword, "admin-password", os.Getenv("SHOP_SEED_ADMIN_PASSWORD"), "override the admin password from the fixture")
	rootCmd.Flags().BoolVar(&skipAdmin, "skip-admin", false, "do not create the admin account")
	rootCmd.Flags().BoolVar(&validateOnly, "validate", false, "validate the fixture and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	fixture, err := LoadFixture(fixturePath)
	if err != nil {
		return err
	}
	if skipAdmin {
		fixture.Admin = nil
	} else if fixture.Admin != nil && adminPassword != "" {
		fixture.Admin.Password = adminPassword
	}
	if validateOnly {
		fmt.Printf("%s: %d top-level categories, %d products\n",
			fixturePath, len(fixture.Categories), len(fixture.Products))
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync(log) }()

	db, err := persistence.Open(cmd.Context(), &cfg.Database, persistence.WithLogLevel(gormlogger.Warn))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}()

	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	seeder := NewSeeder(
		catalogapp.NewCategoryService(categoryRepo, productRepo, log),
		catalogapp.NewProductService(productRepo, categoryRepo,
			persistence.NewGormOrderRepository(db.DB), persistence.NewGormCartRepository(db.DB), log),
		categoryRepo,
		productRepo,
		persistence.NewGormUserRepository(db.DB),
		log,
	)

	res, err := seeder.Apply(cmd.Context(), fixture)
	if err != nil {
		return err
	}
	fmt.Printf("categories: %d created, %d existing\n", res.CategoriesCreated, res.CategoriesSkipped)
	fmt.Printf("products:   %d created, %d existing\n", res.ProductsCreated, res.ProductsSkipped)
	if res.AdminCreated {
		fmt.Println("admin account created")
	}
	return nil
}
