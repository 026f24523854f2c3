package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkbase/inkbase/pkg/config"
	"github.com/inkbase/inkbase/pkg/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Apply pending schema migrations, including the stored functions that
implement the file-system primitives.

Examples:
  # Run migrations with default config
  inkbase migrate

  # Run migrations with custom config
  inkbase migrate --config /etc/inkbase/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	if err := store.RunMigrations(context.Background(), &cfg.Database); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := store.MigrationVersion(&cfg.Database)
	if err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}

	fmt.Printf("Migrations completed successfully (schema version %d, dirty=%v)\n", version, dirty)
	return nil
}
