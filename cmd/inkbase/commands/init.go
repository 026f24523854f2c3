package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkbase/inkbase/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Write a configuration file with defaults to the given path, or to
$XDG_CONFIG_HOME/inkbase/config.yaml when no --config is passed.

Database credentials are left empty; fill them in or provide them via the
POSTGRES_* environment variables.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.Default()
	cfg.Database.Port = 5432
	cfg.Database.SSLMode = "prefer"

	if err := config.Save(cfg, path); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", path)
	return nil
}
