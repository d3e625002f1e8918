package system

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/ambulanz_backend/config"
	"github.com/Alijeyrad/ambulanz_backend/internal/app"
	"github.com/Alijeyrad/ambulanz_backend/internal/service/transfer"
	"github.com/Alijeyrad/ambulanz_backend/internal/store"
	"github.com/Alijeyrad/ambulanz_backend/pkg/logs"
)

// withTransfer opens the configured storage and runs fn against a transfer
// service without starting the server.
func withTransfer(cmd *cobra.Command, fn func(ctx context.Context, svc transfer.Service) error) error {
	cfg, err := readConfig(cmd)
	if err != nil {
		return err
	}
	log := logs.New(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout(cfg))
	defer cancel()

	p, closeFn, err := app.OpenPersister(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer closeFn()

	st, err := store.Open(ctx, p, log)
	if err != nil {
		return err
	}
	return fn(ctx, transfer.New(st, nil, nil, log))
}

func commandTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.Server.TimeoutSeconds) * time.Second
}

func NewImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Replace the whole schedule with a CSV file",
		Long: `Replace the whole schedule with the contents of a CSV file with the columns
Datum, Klient, Sitzungsart, Nummer, Art Supervision and Stundenanzahl.
Nothing is replaced when a single row is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return withTransfer(cmd, func(ctx context.Context, svc transfer.Service) error {
				rows, err := svc.Import(ctx, f)
				if err != nil {
					return err
				}
				fmt.Printf("Imported %d rows from %s\n", rows, args[0])
				return nil
			})
		},
	}

	return cmd
}

func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole schedule as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			outPath, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			return withTransfer(cmd, func(ctx context.Context, svc transfer.Service) error {
				rows, err := svc.Export(ctx, w)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d rows\n", rows)
				return nil
			})
		},
	}

	cmd.Flags().StringP("out", "o", "-", "Output file, - for stdout")

	return cmd
}
