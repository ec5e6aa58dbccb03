package cmd

import (
	"fmt"
	"os"

	"training-enrollment/internal/config"
	"training-enrollment/internal/infrastructure/database"
	"training-enrollment/pkg/logger"

	"github.com/spf13/cobra"
)

var migrateDryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the enrollment schema",
	Long: `Apply or inspect the enrollment schema.

PostgreSQL databases are migrated with the SQL files embedded in the binary
and tracked in schema_migrations. SQLite databases are migrated from the
models and keep no history.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Run:   runMigrateUp,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List embedded migrations and when they were applied",
	Run:   runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	migrateUpCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "list pending migrations without applying them")
}

func runMigrateUp(cmd *cobra.Command, args []string) {
	db := mustOpenDatabase(config.Get())
	defer database.Close(db)

	if db.Dialector.Name() == database.DriverSQLite {
		if migrateDryRun {
			fmt.Println("SQLite schema is derived from the models; nothing to list.")
			return
		}
		if err := database.AutoMigrate(db); err != nil {
			logger.Error("SQLite schema migration failed: %v", err)
			os.Exit(1)
		}
		fmt.Println("SQLite schema is up to date.")
		return
	}

	runner := database.NewEmbeddedMigrationRunner(db)

	if migrateDryRun {
		migrations, err := runner.GetMigrationStatus()
		if err != nil {
			logger.Error("Failed to read migration status: %v", err)
			os.Exit(1)
		}
		pending := 0
		for _, m := range migrations {
			if m.AppliedAt == nil {
				fmt.Printf("would apply %s - %s\n", m.ID, m.Description)
				pending++
			}
		}
		fmt.Printf("%d pending migration(s)\n", pending)
		return
	}

	applied, err := runner.RunMigrations()
	if err != nil {
		logger.Error("Migration failed after applying %d file(s): %v", applied, err)
		os.Exit(1)
	}
	fmt.Printf("Applied %d migration(s).\n", applied)
}

func runMigrateStatus(cmd *cobra.Command, args []string) {
	cfg := config.Get()

	if cfg.Database.Driver == database.DriverSQLite {
		fmt.Println("SQLite schema is managed from the models; no migration history is kept.")
		return
	}

	db := mustOpenDatabase(cfg)
	defer database.Close(db)

	migrations, err := database.NewEmbeddedMigrationRunner(db).GetMigrationStatus()
	if err != nil {
		logger.Error("Failed to get migration status: %v", err)
		os.Exit(1)
	}

	pending := 0
	for _, m := range migrations {
		status := "pending"
		if m.AppliedAt != nil {
			status = "applied " + m.AppliedAt.Format("2006-01-02 15:04:05")
		} else {
			pending++
		}
		fmt.Printf("%s  %-40s %s\n", m.ID, m.Description, status)
	}
	fmt.Printf("\n%d migration(s), %d pending\n", len(migrations), pending)
}
