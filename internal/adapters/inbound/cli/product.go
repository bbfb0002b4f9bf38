package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/abdidvp/ordersvc/internal/adapters/outbound/tui"
	"github.com/abdidvp/ordersvc/internal/domain"
)

func newProductCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage the product catalog",
	}
	cmd.AddCommand(newProductAddCmd(opts))
	cmd.AddCommand(newProductListCmd(opts))
	cmd.AddCommand(newProductRestockCmd(opts))
	return cmd
}

func newProductAddCmd(opts *rootOptions) *cobra.Command {
	var (
		price      string
		quantity   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a product with its price and initial stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseDecimal("price", price)
			if err != nil {
				return err
			}
			q, err := parseDecimal("quantity", quantity)
			if err != nil {
				return err
			}

			return opts.withRuntime(cmd.Context(), func(r *runtime) error {
				product, err := r.catalog.AddProduct(cmd.Context(), args[0], p, q)
				if err != nil {
					return err
				}
				if jsonOutput {
					return renderJSON(cmd, product)
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderProduct(product))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&price, "price", "", "Unit price, e.g. 9.99")
	cmd.Flags().StringVar(&quantity, "quantity", "0", "Initial stock")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func newProductListCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products with current stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRuntime(cmd.Context(), func(r *runtime) error {
				products, err := r.catalog.ListProducts(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					if products == nil {
						products = []domain.Product{}
					}
					return renderJSON(cmd, products)
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderProducts(products))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newProductRestockCmd(opts *rootOptions) *cobra.Command {
	var (
		quantity   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "restock <product-id>",
		Short: "Add stock to a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseDecimal("quantity", quantity)
			if err != nil {
				return err
			}

			return opts.withRuntime(cmd.Context(), func(r *runtime) error {
				product, err := r.catalog.Restock(cmd.Context(), args[0], q)
				if err != nil {
					return err
				}
				if jsonOutput {
					return renderJSON(cmd, product)
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderProduct(product))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&quantity, "quantity", "", "Quantity to add")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("quantity")

	return cmd
}

func parseDecimal(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s %q is not a number", domain.ErrInvalidRequest, name, s)
	}
	return d, nil
}
