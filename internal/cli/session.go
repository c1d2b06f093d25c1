package cli

import (
	"context"
	"fmt"

	"etalase/internal/app"
	"etalase/internal/models"
	"etalase/internal/services"

	"github.com/spf13/cobra"
)

func (r *runner) registerCommand() *cobra.Command {
	var req models.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: r.guarded(models.RouteRegister, func(ctx context.Context, cmd *cobra.Command, c *app.Client, _ []string) error {
			identity, err := c.Session.Register(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), "registered: ")
			printIdentity(cmd.OutOrStdout(), identity)
			return nil
		}),
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	return cmd
}

func (r *runner) loginCommand() *cobra.Command {
	var email, password string
	var admin bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and load cart, favorites and orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			route := models.RouteLogin
			if admin {
				route = models.RouteAdminLogin
			}
			return r.guarded(route, func(ctx context.Context, cmd *cobra.Command, c *app.Client, _ []string) error {
				identity, err := c.Session.Login(ctx, email, password)
				if err != nil {
					return err
				}
				if admin && !identity.IsAdmin() {
					if err := c.Session.Logout(ctx); err != nil {
						return err
					}
					return fmt.Errorf("%w: %s is not an admin", services.ErrNotAuthorized, email)
				}
				fmt.Fprint(cmd.OutOrStdout(), "signed in: ")
				printIdentity(cmd.OutOrStdout(), identity)
				return nil
			})(cmd, args)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().BoolVar(&admin, "admin", false, "sign in to the admin area")
	return cmd
}

func (r *runner) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear local state",
		Args:  cobra.NoArgs,
		RunE: r.guarded(models.RouteHome, func(ctx context.Context, cmd *cobra.Command, c *app.Client, _ []string) error {
			if err := c.Session.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		}),
	}
}

func (r *runner) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		Args:  cobra.NoArgs,
		RunE: r.guarded(models.RouteHome, func(_ context.Context, cmd *cobra.Command, c *app.Client, _ []string) error {
			printIdentity(cmd.OutOrStdout(), c.Session.Current())
			return nil
		}),
	}
}

func (r *runner) profileCommand() *cobra.Command {
	var firstName, lastName, phone, address string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the profile",
		Args:  cobra.NoArgs,
		RunE: r.guarded(models.RouteProfile, func(ctx context.Context, cmd *cobra.Command, c *app.Client, _ []string) error {
			var update models.ProfileUpdate
			flags := cmd.Flags()
			if flags.Changed("first-name") {
				update.FirstName = &firstName
			}
			if flags.Changed("last-name") {
				update.LastName = &lastName
			}
			if flags.Changed("phone") {
				update.Phone = &phone
			}
			if flags.Changed("address") {
				update.Address = &address
			}

			identity := c.Session.Current()
			if len(update.Fields()) > 0 {
				var err error
				if identity, err = c.Session.UpdateProfile(ctx, update); err != nil {
					return err
				}
			} else if refreshed, err := c.Session.Refresh(ctx); err == nil {
				identity = refreshed
			}
			printIdentity(cmd.OutOrStdout(), identity)
			return nil
		}),
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "new first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "new last name")
	cmd.Flags().StringVar(&phone, "phone", "", "new phone number")
	cmd.Flags().StringVar(&address, "address", "", "new address")
	return cmd
}
