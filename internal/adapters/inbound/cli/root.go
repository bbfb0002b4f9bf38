package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdidvp/ordersvc/internal/adapters/outbound/tui"
	"github.com/abdidvp/ordersvc/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath  string
	dbPath      string
	metricsFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "ordersvc",
		Short:         "Place orders against a stock-tracked catalog",
		Long:          "ordersvc validates orders against current stock, decrements inventory and records the order in a single transaction.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (defaults to ./.ordersvc.yaml)")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database file, overrides the configured database")
	cmd.PersistentFlags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newInitCmd(opts))
	cmd.AddCommand(newCustomerCmd(opts))
	cmd.AddCommand(newProductCmd(opts))
	cmd.AddCommand(newOrderCmd(opts))
	cmd.AddCommand(newMCPCmd(opts))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show ordersvc version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "ordersvc %s (%s)\n", version, commit)
			return nil
		},
	}
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute runs the CLI and prints any error to stderr.
func Execute() error {
	err := newRootCmd().Execute()
	if err != nil {
		if domain.IsValidationError(err) {
			fmt.Fprint(os.Stderr, tui.RenderError(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return err
}
