package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdidvp/ordersvc/internal/adapters/outbound/tui"
)

func newCustomerCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Manage customers",
	}
	cmd.AddCommand(newCustomerAddCmd(opts))
	return cmd
}

func newCustomerAddCmd(opts *rootOptions) *cobra.Command {
	var (
		email      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRuntime(cmd.Context(), func(r *runtime) error {
				c, err := r.catalog.RegisterCustomer(cmd.Context(), args[0], email)
				if err != nil {
					return err
				}
				if jsonOutput {
					return renderJSON(cmd, c)
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderCustomer(c))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Customer email address")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
