// Command migrate manages the storefront database schema.
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

var (
	migrationsDir string
	logLevel      string
	confirmDrop   bool

	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the storefront database schema",
	Long: `Apply, roll back and scaffold SQL migrations.

Migrations are read from the copy embedded in this binary unless --path
points at a directory. Connection settings come from config.toml and
SHOP_DATABASE_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		log, err = logger.New(&logger.Config{
			Level:      logLevel,
			Format:     "console",
			Output:     "stdout",
			TimeFormat: "2006-01-02 15:04:05",
		})
		return err
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if log != nil {
			_ = logger.Sync(log)
		}
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: withMigrator(func(m *migration.Migrator, _ []string) error {
		return m.Up()
	}),
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	Args:  cobra.NoArgs,
	RunE: withMigrator(func(m *migration.Migrator, _ []string) error {
		return m.Down()
	}),
}

var stepCmd = &cobra.Command{
	Use:   "step <n>",
	Short: "Apply n migrations, or roll back when n is negative",
	Args:  cobra.ExactArgs(1),
	RunE: withMigrator(func(m *migration.Migrator, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n == 0 {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return m.Steps(n)
	}),
}

var gotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate up or down to a version",
	Args:  cobra.ExactArgs(1),
	RunE: withMigrator(func(m *migration.Migrator, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.GoTo(uint(version))
	}),
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"version"},
	Short:   "Show the applied version and pending migrations",
	Args:    cobra.NoArgs,
	RunE: withMigrator(func(m *migration.Migrator, _ []string) error {
		status, err := m.Status()
		if err != nil {
			return err
		}
		if status.Version == 0 {
			fmt.Println("No migrations applied")
		} else {
			fmt.Printf("Version: %d (dirty: %t)\n", status.Version, status.Dirty)
		}
		if len(status.Pending) == 0 {
			fmt.Println("Schema is up to date")
			return nil
		}
		fmt.Printf("Pending (%d):\n", len(status.Pending))
		for _, name := range status.Pending {
			fmt.Println("  -", name)
		}
		return nil
	}),
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Mark a version as applied and clear the dirty flag",
	Args:  cobra.ExactArgs(1),
	RunE: withMigrator(func(m *migration.Migrator, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.Force(version)
	}),
}

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop every database object (destroys all data)",
	Args:  cobra.NoArgs,
	RunE: withMigrator(func(m *migration.Migrator, _ []string) error {
		if !confirmDrop {
			return errors.New("drop cancelled, rerun with --confirm")
		}
		return m.Drop()
	}),
}

var createCmd = &cobra.Command{
	Use:   "create <name> [description]",
	Short: "Scaffold a new up/down migration pair",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		dir := migrationsDir
		if dir == "" {
			dir = "migrations"
		}
		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		mf, err := migration.CreateMigration(dir, args[0], description)
		if err != nil {
			return err
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available migrations",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		names, err := source().Files()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No migrations found")
			return nil
		}
		for _, name := range names {
			fmt.Println("  -", name)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "path", "", "migrations directory (default: embedded migrations)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	dropCmd.Flags().BoolVar(&confirmDrop, "confirm", false, "confirm dropping all database objects")

	rootCmd.AddCommand(upCmd, downCmd, stepCmd, gotoCmd, statusCmd, forceCmd, dropCmd, createCmd, listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func source() migration.Source {
	if migrationsDir == "" {
		return migration.Embedded()
	}
	return migration.Dir(migrationsDir)
}

// withMigrator connects to the configured database and runs fn
func withMigrator(fn func(m *migration.Migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(cmd.Context()); err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		m, err := migration.New(db, source(), log)
		if err != nil {
			return err
		}
		defer func() {
			if err := m.Close(); err != nil {
				log.Warn("Failed to close migrator", zap.Error(err))
			}
		}()

		log.Info("Migration command started",
			zap.String("command", cmd.Name()),
			zap.Stringer("source", source()),
		)
		return fn(m, args)
	}
}
