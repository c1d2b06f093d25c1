package cli

import (
	"os"
	"os/signal"
	"syscall"

	"etalase/internal/app"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (r *runner) serveCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST mock backend",
		Long: `Serves /auth and a /db path tree in the realtime-database REST convention,
so clients with BACKEND=rest and AUTH_PROVIDER=rest can run without a hosted backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port == "" {
				port = r.cfg.AppPort
			}
			srv, err := app.NewServer(r.cfg)
			if err != nil {
				return err
			}
			if err := srv.ConsumeOrderEvents(); err != nil {
				log.Warn().Err(err).Msg("order event consumer not started")
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			errs := make(chan error, 1)
			go func() { errs <- srv.Listen(port) }()

			select {
			case err := <-errs:
				srv.Close()
				return err
			case <-quit:
			}
			log.Info().Msg("shutting down server")
			if err := srv.Shutdown(); err != nil {
				log.Error().Err(err).Msg("error during shutdown")
				return err
			}
			log.Info().Msg("server gracefully stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen address, defaults to APP_PORT")
	return cmd
}
