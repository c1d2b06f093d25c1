package cli

import (
	"context"
	"fmt"
	"strconv"

	"etalase/internal/app"
	"etalase/internal/models"

	"github.com/spf13/cobra"
)

func (r *runner) cartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the cart",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show cart lines and total",
			Args:  cobra.NoArgs,
			RunE: r.guarded(models.RouteCart, func(ctx context.Context, cmd *cobra.Command, c *app.Client, _ []string) error {
				if err := c.Cart.Fetch(ctx); err != nil {
					return err
				}
				return printCart(cmd.OutOrStdout(), c.Cart)
			}),
		},
		&cobra.Command{
			Use:   "add [productId] [quantity]",
			Short: "Add a product, merging with an existing line",
			Args:  cobra.RangeArgs(1, 2),
			RunE: r.guarded(models.RouteCart, func(ctx context.Context, cmd *cobra.Command, c *app.Client, args []string) error {
				quantity := 1
				if len(args) == 2 {
					q, err := strconv.Atoi(args[1])
					if err != nil {
						return fmt.Errorf("quantity must be a number: %w", err)
					}
					quantity = q
				}
				p, err := lookupProduct(ctx, c, args[0])
				if err != nil {
					return err
				}
				if err := c.Cart.AddItem(ctx, p, quantity); err != nil {
					return err
				}
				return printCart(cmd.OutOrStdout(), c.Cart)
			}),
		},
		&cobra.Command{
			Use:   "set [lineId] [quantity]",
			Short: "Set a line's quantity, removing it below 1",
			Args:  cobra.ExactArgs(2),
			RunE: r.guarded(models.RouteCart, func(ctx context.Context, cmd *cobra.Command, c *app.Client, args []string) error {
				quantity, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("quantity must be a number: %w", err)
				}
				if err := c.Cart.SetQuantity(ctx, args[0], quantity); err != nil {
					return err
				}
				return printCart(cmd.OutOrStdout(), c.Cart)
			}),
		},
		&cobra.Command{
			Use:   "remove [lineId]",
			Short: "Remove a cart line",
			Args:  cobra.ExactArgs(1),
			RunE: r.guarded(models.RouteCart, func(ctx context.Context, cmd *cobra.Command, c *app.Client, args []string) error {
				if err := c.Cart.RemoveItem(ctx, args[0]); err != nil {
					return err
				}
				return printCart(cmd.OutOrStdout(), c.Cart)
			}),
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			Args:  cobra.NoArgs,
			RunE: r.guarded(models.RouteCart, func(ctx context.Context, cmd *cobra.Command, c *app.Client, _ []string) error {
				if err := c.Cart.Clear(ctx); err != nil {
					return err
				}
				return printCart(cmd.OutOrStdout(), c.Cart)
			}),
		},
	)
	return cmd
}

func (r *runner) favoritesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Show and toggle favorites",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "List favorite products",
			Args:  cobra.NoArgs,
			RunE: r.guarded(models.RouteFavorites, func(ctx context.Context, cmd *cobra.Command, c *app.Client, _ []string) error {
				if err := c.Favorites.Fetch(ctx); err != nil {
					return err
				}
				entries := c.Favorites.Entries()
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no favorites")
					return nil
				}
				products := make([]models.Product, 0, len(entries))
				for _, e := range entries {
					products = append(products, models.Product{
						ID:       e.ProductID,
						Name:     e.Product.Name,
						Brand:    e.Product.Brand,
						Category: e.Product.Category,
						Price:    e.Product.Price,
					})
				}
				return printProducts(cmd.OutOrStdout(), products)
			}),
		},
		&cobra.Command{
			Use:   "toggle [productId]",
			Short: "Add or remove a product from favorites",
			Args:  cobra.ExactArgs(1),
			RunE: r.guarded(models.RouteFavorites, func(ctx context.Context, cmd *cobra.Command, c *app.Client, args []string) error {
				p, err := lookupProduct(ctx, c, args[0])
				if err != nil {
					return err
				}
				added, err := c.Favorites.Toggle(ctx, p)
				if err != nil {
					return err
				}
				if added {
					fmt.Fprintf(cmd.OutOrStdout(), "added %s to favorites\n", p.Name)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s from favorites\n", p.Name)
				}
				return nil
			}),
		},
	)
	return cmd
}
