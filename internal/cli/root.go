// Package cli is the etalase command line: a storefront client over the
// configured backend plus the serve command for the REST mock server.
package cli

import (
	"context"
	"fmt"
	"os"

	"etalase/internal/app"
	"etalase/internal/config"
	"etalase/internal/middleware"
	"etalase/internal/models"
	"etalase/internal/services"
	"etalase/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runner carries the configuration resolved for one invocation.
type runner struct {
	cfg *config.Config
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	r := &runner{}
	root := &cobra.Command{
		Use:   "etalase",
		Short: "storefront client and mock backend",
		Long: `etalase keeps a storefront session, cart, favorites and orders in sync
with a remote tree store (memory, SQL, REST or Firebase) and mirrors them locally
so state survives between invocations.`,
		SilenceUsage:      true,
		PersistentPreRunE: r.setup,
	}

	flags := root.PersistentFlags()
	flags.String("backend", "", "remote backend (memory, sql, rest, firebase)")
	flags.String("auth-provider", "", "identity provider (local, rest, firebase)")
	flags.String("rest-url", "", "base URL of the REST mock server")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		r.serveCommand(),
		r.registerCommand(),
		r.loginCommand(),
		r.logoutCommand(),
		r.whoamiCommand(),
		r.profileCommand(),
		r.productsCommand(),
		r.cartCommand(),
		r.favoritesCommand(),
		r.ordersCommand(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func (r *runner) setup(cmd *cobra.Command, _ []string) error {
	config.LoadEnvFiles()
	v := config.NewViper()
	if err := bindFlags(v, cmd); err != nil {
		return err
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel, Out: cmd.ErrOrStderr()})
	r.cfg = cfg
	return nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	keys := map[string]string{
		"backend":       "BACKEND",
		"auth-provider": "AUTH_PROVIDER",
		"rest-url":      "REST_BASE_URL",
		"log-level":     "LOG_LEVEL",
	}
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	return nil
}

// guarded wraps fn so it runs against a restored client, and only when the
// current identity may open route.
func (r *runner) guarded(route models.RouteName, fn func(ctx context.Context, cmd *cobra.Command, c *app.Client, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := app.NewClient(ctx, r.cfg)
		if err != nil {
			return err
		}
		defer c.Close()
		c.Restore()

		decision, err := c.Guard.Navigate(route)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return redirectError(route, decision)
		}
		return fn(ctx, cmd, c, args)
	}
}

func redirectError(route models.RouteName, d middleware.Decision) error {
	switch d.Redirect {
	case models.RouteLogin:
		return fmt.Errorf("%w: %s needs a signed-in user, run `etalase login`", services.ErrNotAuthenticated, route)
	case models.RouteAdminLogin:
		return fmt.Errorf("%w: %s needs an admin, run `etalase login --admin`", services.ErrNotAuthorized, route)
	}
	return fmt.Errorf("%w: %s is not available to admins", services.ErrNotAuthorized, route)
}
