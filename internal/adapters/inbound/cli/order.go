package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdidvp/ordersvc/internal/adapters/outbound/tui"
	"github.com/abdidvp/ordersvc/internal/domain"
)

func newOrderCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place and inspect orders",
	}
	cmd.AddCommand(newOrderPlaceCmd(opts))
	cmd.AddCommand(newOrderShowCmd(opts))
	cmd.AddCommand(newOrderListCmd(opts))
	return cmd
}

func newOrderPlaceCmd(opts *rootOptions) *cobra.Command {
	var (
		customerID string
		items      []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place an order",
		Long: `Place an order for a customer. Each --item is <product-id>=<quantity>.
The order is rejected as a whole if the customer or any product is unknown,
or if any product lacks stock.`,
		Example: "  ordersvc order place --customer C1 --item P1=2 --item P2=1",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.PlaceOrderRequest{CustomerID: customerID}
			for _, raw := range items {
				item, err := parseItem(raw)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, item)
			}

			return opts.withRuntime(cmd.Context(), func(r *runtime) error {
				order, err := r.orders.PlaceOrder(cmd.Context(), req)
				if err != nil {
					return err
				}
				if jsonOutput {
					return renderJSON(cmd, order)
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderOrder(order))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&customerID, "customer", "", "Customer id")
	cmd.Flags().StringArrayVar(&items, "item", nil, "Product and quantity as <product-id>=<quantity> (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("customer")

	return cmd
}

func newOrderShowCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <order-id>",
		Short: "Show an order with its line items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRuntime(cmd.Context(), func(r *runtime) error {
				order, err := r.orders.GetOrder(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return renderJSON(cmd, order)
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderOrder(order))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newOrderListCmd(opts *rootOptions) *cobra.Command {
	var (
		customerID string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a customer's orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRuntime(cmd.Context(), func(r *runtime) error {
				orders, err := r.orders.ListCustomerOrders(cmd.Context(), customerID)
				if err != nil {
					return err
				}
				if jsonOutput {
					if orders == nil {
						orders = []domain.Order{}
					}
					return renderJSON(cmd, orders)
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderOrders(orders))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&customerID, "customer", "", "Customer id")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("customer")

	return cmd
}

// parseItem parses "<product-id>=<quantity>".
func parseItem(s string) (domain.RequestedItem, error) {
	id, qty, ok := strings.Cut(s, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return domain.RequestedItem{}, fmt.Errorf("%w: item %q must be <product-id>=<quantity>", domain.ErrInvalidRequest, s)
	}
	q, err := parseDecimal("quantity", strings.TrimSpace(qty))
	if err != nil {
		return domain.RequestedItem{}, err
	}
	return domain.RequestedItem{ProductID: id, Quantity: q}, nil
}
