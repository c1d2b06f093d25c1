package cli

import (
	"context"
	"fmt"

	"etalase/internal/app"
	"etalase/internal/models"
	"etalase/internal/services"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func (r *runner) productsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse and manage the catalog",
	}
	cmd.AddCommand(
		r.productsListCommand(),
		r.productsShowCommand(),
		r.productsCategoriesCommand(),
		r.productsAddCommand(),
		r.productsUpdateCommand(),
		r.productsDeleteCommand(),
	)
	return cmd
}

func (r *runner) productsListCommand() *cobra.Command {
	var filter services.Filter
	var sortOption string
	var featured bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products, optionally filtered and sorted",
		Args:  cobra.NoArgs,
		RunE: r.guarded(models.RouteProducts, func(ctx context.Context, cmd *cobra.Command, c *app.Client, _ []string) error {
			if err := c.Products.FetchAll(ctx); err != nil {
				return err
			}
			if featured {
				return printProducts(cmd.OutOrStdout(), c.Products.FeaturedProducts())
			}
			c.Products.SetCategory(filter.Category)
			c.Products.SetBrand(filter.Brand)
			c.Products.SetSearchQuery(filter.Query)
			c.Products.SetSortOption(services.SortOption(sortOption))
			return printProducts(cmd.OutOrStdout(), c.Products.SortedAndFilteredProducts())
		}),
	}
	cmd.Flags().StringVar(&filter.Category, "category", "", "only this category")
	cmd.Flags().StringVar(&filter.Brand, "brand", "", "only this brand")
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "free text search")
	cmd.Flags().StringVar(&sortOption, "sort", string(services.SortDefault), "default, priceLow or priceHigh")
	cmd.Flags().BoolVar(&featured, "featured", false, "only featured products")
	return cmd
}

func (r *runner) productsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a product and recommendations",
		Args:  cobra.ExactArgs(1),
		RunE: r.guarded(models.RouteProductDetail, func(ctx context.Context, cmd *cobra.Command, c *app.Client, args []string) error {
			if err := c.Products.FetchAll(ctx); err != nil {
				return err
			}
			p, err := lookupProduct(ctx, c, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (%s)\n%s / %s\nprice: %.2f\n", p.Name, p.ID, p.Brand, p.Category, p.Price)
			if p.Description != "" {
				fmt.Fprintln(w, p.Description)
			}
			if c.Session.IsAuthenticated() && c.Favorites.IsFavorite(p.ID) {
				fmt.Fprintln(w, "in favorites")
			}
			if recs := c.Products.Recommendations(p.ID); len(recs) > 0 {
				fmt.Fprintln(w, "\nyou may also like:")
				return printProducts(w, recs)
			}
			return nil
		}),
	}
}

func (r *runner) productsCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories and brands",
		Args:  cobra.NoArgs,
		RunE: r.guarded(models.RouteProducts, func(ctx context.Context, cmd *cobra.Command, c *app.Client, _ []string) error {
			if err := c.Products.FetchCategories(ctx); err != nil {
				return err
			}
			if err := c.Products.FetchAll(ctx); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, cat := range c.Products.Categories() {
				fmt.Fprintln(w, cat.Name)
			}
			if brands := c.Products.Brands(); len(brands) > 0 {
				fmt.Fprintf(w, "\nbrands: %v\n", brands)
			}
			return nil
		}),
	}
}

func productFlags(fs *pflag.FlagSet, p *models.Product) {
	fs.StringVar(&p.Name, "name", "", "product name")
	fs.StringVar(&p.Brand, "brand", "", "brand")
	fs.StringVar(&p.Category, "category", "", "category")
	fs.Float64Var(&p.Price, "price", 0, "price")
	fs.StringVar(&p.Description, "description", "", "description")
	fs.StringVar(&p.Image, "image", "", "image URL")
	fs.BoolVar(&p.Featured, "featured", false, "show on the home page")
}

func (r *runner) productsAddCommand() *cobra.Command {
	var product models.Product
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product (admin)",
		Args:  cobra.NoArgs,
		RunE: r.guarded(models.RouteAdminProducts, func(ctx context.Context, cmd *cobra.Command, c *app.Client, _ []string) error {
			id, err := c.Products.Add(ctx, product)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added product %s\n", id)
			return nil
		}),
	}
	productFlags(cmd.Flags(), &product)
	return cmd
}

func (r *runner) productsUpdateCommand() *cobra.Command {
	var changes models.Product
	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Change product fields (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: r.guarded(models.RouteAdminProducts, func(ctx context.Context, cmd *cobra.Command, c *app.Client, args []string) error {
			p, err := lookupProduct(ctx, c, args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				p.Name = changes.Name
			}
			if flags.Changed("brand") {
				p.Brand = changes.Brand
			}
			if flags.Changed("category") {
				p.Category = changes.Category
			}
			if flags.Changed("price") {
				p.Price = changes.Price
			}
			if flags.Changed("description") {
				p.Description = changes.Description
			}
			if flags.Changed("image") {
				p.Image = changes.Image
			}
			if flags.Changed("featured") {
				p.Featured = changes.Featured
			}
			if err := c.Products.Update(ctx, p.ID, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated product %s\n", p.ID)
			return nil
		}),
	}
	productFlags(cmd.Flags(), &changes)
	return cmd
}

func (r *runner) productsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a product (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: r.guarded(models.RouteAdminProducts, func(ctx context.Context, cmd *cobra.Command, c *app.Client, args []string) error {
			if err := c.Products.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted product %s\n", args[0])
			return nil
		}),
	}
}

func lookupProduct(ctx context.Context, c *app.Client, id string) (models.Product, error) {
	p, err := c.Products.FetchOne(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	if p == nil {
		return models.Product{}, fmt.Errorf("%w: product %s", services.ErrNotFound, id)
	}
	return *p, nil
}
