package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/Alijeyrad/ambulanz_backend/cmd/http"
	systemcmd "github.com/Alijeyrad/ambulanz_backend/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "ambulanz",
	Short: "Appointment planning for a psychotherapy outpatient clinic.",
	Long: `Ambulanz plans the weekly appointment chains of therapy clients: intake,
phase transitions, cancellations, PTG sessions and absences, and reports the
quarter billing forecast, supervision compliance and training progress.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
}
