package cli

import (
	"context"
	"fmt"

	"etalase/internal/app"
	"etalase/internal/models"

	"github.com/spf13/cobra"
)

func (r *runner) ordersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Place and track orders",
	}
	cmd.AddCommand(r.ordersListCommand(), r.ordersCheckoutCommand(), r.ordersStatusCommand())
	return cmd
}

func (r *runner) ordersListCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your orders, or every order with --all (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			route := models.RouteOrders
			if all {
				route = models.RouteAdminOrders
			}
			return r.guarded(route, func(ctx context.Context, cmd *cobra.Command, c *app.Client, _ []string) error {
				if err := c.Orders.FetchAll(ctx); err != nil {
					return err
				}
				if all {
					return printOrders(cmd.OutOrStdout(), c.Orders.All())
				}
				return printOrders(cmd.OutOrStdout(), c.Orders.UserOrders())
			})(cmd, args)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "every identity's orders")
	return cmd
}

func (r *runner) ordersCheckoutCommand() *cobra.Command {
	var shipping models.ShippingAddress
	var payment string
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Order the cart contents",
		Args:  cobra.NoArgs,
		RunE: r.guarded(models.RouteCheckout, func(ctx context.Context, cmd *cobra.Command, c *app.Client, _ []string) error {
			if err := c.Cart.Fetch(ctx); err != nil {
				return err
			}
			order, err := c.Orders.Checkout(ctx, shipping, payment)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %s placed, total %.2f, status %s\n", order.ID, order.Total, order.Status)
			return nil
		}),
	}
	fs := cmd.Flags()
	fs.StringVar(&shipping.FirstName, "first-name", "", "recipient first name")
	fs.StringVar(&shipping.LastName, "last-name", "", "recipient last name")
	fs.StringVar(&shipping.Street, "street", "", "street address")
	fs.StringVar(&shipping.City, "city", "", "city")
	fs.StringVar(&shipping.PostalCode, "postal-code", "", "postal code")
	fs.StringVar(&shipping.Phone, "phone", "", "contact phone")
	fs.StringVar(&payment, "payment", "cod", "payment method")
	return cmd
}

func (r *runner) ordersStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [orderId] [status]",
		Short: "Change an order's status (admin)",
		Long:  "Status is one of pending, confirmed, shipped, delivered or cancelled.",
		Args:  cobra.ExactArgs(2),
		RunE: r.guarded(models.RouteAdminOrders, func(ctx context.Context, cmd *cobra.Command, c *app.Client, args []string) error {
			if err := c.Orders.UpdateStatus(ctx, args[0], models.OrderStatus(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %s is now %s\n", args[0], args[1])
			return nil
		}),
	}
}
