package cmd

import (
	"fmt"

	"github.com/confbuddy/companion-api/internal/database"
	"github.com/confbuddy/companion-api/internal/models"
	"github.com/confbuddy/companion-api/internal/store"
	"github.com/confbuddy/companion-api/pkg/config"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Bring the local database schema up to date.

Both serve and agent migrate automatically on startup; this command
exists for provisioning a database ahead of time and for checking what
the schema contains.`,
	RunE: runMigrate,
}

// migrateStatusCmd shows the migrated model list
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the models the schema is built from",
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Printf("Database at %s migrated (%d models)\n", cfg.Database.Path, len(models.AllModels()))
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("Models in migration order:")
	for i, model := range models.AllModels() {
		fmt.Printf("  %2d. %T\n", i+1, model)
	}
	return nil
}
