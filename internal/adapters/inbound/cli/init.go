package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdidvp/ordersvc/internal/adapters/outbound/config"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .ordersvc.yaml configuration file",
		Long:  "Create a commented .ordersvc.yaml with defaults and initialize the configured database schema.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.FileName
			}
			if err := config.WriteTemplate(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)

			// Opening the store creates the schema.
			return opts.withRuntime(cmd.Context(), func(r *runtime) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Database ready (%s)\n", r.cfg.Database.Driver)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}
