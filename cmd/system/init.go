package system

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/ambulanz_backend/config"
	"github.com/Alijeyrad/ambulanz_backend/pkg/database"
)

func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Prepare the configured storage",
		Long: `Prepare the configured storage: create the databases for the postgres
driver, or the directory of the schedule file for the csv driver.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig(cmd)
			if err != nil {
				return err
			}

			switch strings.ToLower(cfg.Storage.Driver) {
			case config.StorageDriverPostgres:
				fmt.Println("Initializing databases...")
				if err := database.InitializeDatabases(cfg); err != nil {
					return fmt.Errorf("failed to initialize databases: %w", err)
				}
				fmt.Println("Databases initialized successfully.")
			case config.StorageDriverCSV:
				dir := filepath.Dir(cfg.Storage.CSVPath)
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create %q: %w", dir, err)
				}
				fmt.Printf("Schedule file directory %s ready.\n", dir)
			default:
				fmt.Printf("Storage driver %q needs no initialization.\n", cfg.Storage.Driver)
			}
			return nil
		},
	}

	return cmd
}
