package app

import (
	"errors"
	"time"

	"etalase/internal/auth"
	"etalase/internal/config"
	"etalase/internal/handlers"
	"etalase/internal/models"
	"etalase/internal/repositories"
	"etalase/pkg/rabbitmq"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/rs/zerolog/log"
)

// Server is the REST mock backend: the auth endpoints plus a path tree
// served with the realtime-database REST convention.
type Server struct {
	App     *fiber.App
	Auth    *auth.Service
	Remote  repositories.RemoteCollectionClient
	cfg     *config.Config
	closers []func() error
}

// NewServer builds the fiber app over a memory tree when BACKEND=memory and
// over DATABASE_DSN otherwise.
func NewServer(cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	var creds repositories.CredentialRepository
	if cfg.Backend == config.BackendMemory {
		s.Remote = repositories.NewInstrumented(repositories.NewMemoryRemote(), "server-memory")
		creds = repositories.NewMemoryCredentialRepository()
	} else {
		db, err := openDatabase(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, closeDatabase(db))
		remote, err := repositories.NewGORMRemote(db)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Remote = repositories.NewInstrumented(remote, "server-sql")
		if creds, err = repositories.NewGORMCredentialRepository(db); err != nil {
			s.Close()
			return nil, err
		}
	}
	s.Auth = auth.NewService(creds, cfg.JWTSecret)

	var verify func(string) error
	if cfg.TreeRequireToken {
		verify = func(token string) error {
			_, err := s.Auth.ValidateToken(token)
			return err
		}
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(logger.New())
	app.Get("/health", health)
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
		metrics.WritePrometheus(c.Response().BodyWriter(), true)
		return nil
	})
	handlers.NewAuthHandler(s.Auth).RegisterRoutes(app)
	handlers.NewTreeHandler(s.Remote, verify).RegisterRoutes(app)
	s.App = app
	return s, nil
}

func health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// ConsumeOrderEvents logs order events from RabbitMQ when RABBITMQ_URL is set.
func (s *Server) ConsumeOrderEvents() error {
	if s.cfg.RabbitMQURL == "" {
		return nil
	}
	mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: s.cfg.RabbitMQURL})
	if err != nil {
		return err
	}
	s.closers = append(s.closers, mq.Close)
	log.Info().Msg("starting RabbitMQ consumer for order events")
	return mq.ConsumeOrderEvents(logOrderEvent)
}

func logOrderEvent(event models.OrderEvent) error {
	metrics.GetOrCreateCounter(`etalase_order_events_total{type="` + event.Type + `"}`).Inc()
	log.Info().
		Str("event", event.Type).
		Str("order_id", event.OrderID).
		Str("uid", event.UserID).
		Str("status", string(event.Status)).
		Msg("order event received")
	return nil
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	log.Info().Str("addr", addr).Str("backend", s.cfg.Backend).Msg("starting mock server")
	return s.App.Listen(addr)
}

// Shutdown stops the app and releases its resources.
func (s *Server) Shutdown() error {
	err := s.App.Shutdown()
	return errors.Join(err, s.Close())
}

// Close releases the database and broker connections.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
