// Package app wires the storefront client and the mock server from a Config.
package app

import (
	"context"
	"errors"
	"fmt"

	"etalase/internal/auth"
	"etalase/internal/config"
	"etalase/internal/middleware"
	"etalase/internal/mirror"
	"etalase/internal/repositories"
	"etalase/internal/services"
	"etalase/pkg/rabbitmq"

	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// Client is the storefront state for one process: the session, its stores
// and the backends they talk to.
type Client struct {
	Config    *config.Config
	Remote    repositories.RemoteCollectionClient
	Provider  auth.Provider
	Cache     *mirror.Cache
	Session   *services.Session
	Cart      *services.Cart
	Favorites *services.Favorites
	Orders    *services.Orders
	Products  *services.Products
	Guard     *middleware.Guard

	db       *gorm.DB
	firebase *firebase.App
	closers  []func() error
}

// NewClient builds every backend cfg names and binds the stores to the session.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	c := &Client{Config: cfg}
	if err := c.wire(ctx); err != nil {
		if closeErr := c.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("closing partially built client")
		}
		return nil, err
	}
	return c, nil
}

func (c *Client) wire(ctx context.Context) error {
	remote, err := c.remote(ctx)
	if err != nil {
		return err
	}
	c.Remote = repositories.NewInstrumented(remote, c.Config.Backend)

	if c.Provider, err = c.provider(ctx); err != nil {
		return err
	}
	storage, err := c.mirrorStorage()
	if err != nil {
		return err
	}
	c.Cache = mirror.NewCache(storage)

	c.Session = services.NewSession(c.Provider, c.Remote, c.Cache)
	c.Cart = services.NewCart(c.Remote, c.Cache, c.Session, services.CartOptions{LocalFallback: c.Config.CartLocalFallback})
	c.Favorites = services.NewFavorites(c.Remote, c.Cache, c.Session)
	c.Orders = services.NewOrders(c.Remote, c.Session, c.Cart, c.publisher())
	c.Products = services.NewProducts(c.Remote)
	c.Session.Bind(services.Peers{Cart: c.Cart, Favorites: c.Favorites, Orders: c.Orders})
	c.Guard = middleware.NewGuard(c.Session)

	c.Session.Start(ctx)
	c.closers = append(c.closers, func() error {
		c.Session.Stop()
		return nil
	})
	return nil
}

// Restore reloads the mirrored identity, cart and favorites.
func (c *Client) Restore() {
	if identity := c.Session.LoadFromMirror(); identity != nil {
		log.Debug().Str("uid", identity.ID).Msg("restored session from mirror")
	}
	c.Cart.Restore()
	c.Favorites.Restore()
}

// Close releases connections in reverse order of acquisition.
func (c *Client) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Client) remote(ctx context.Context) (repositories.RemoteCollectionClient, error) {
	switch c.Config.Backend {
	case config.BackendMemory:
		return repositories.NewMemoryRemote(), nil
	case config.BackendSQL:
		db, err := c.database()
		if err != nil {
			return nil, err
		}
		return repositories.NewGORMRemote(db)
	case config.BackendREST:
		return repositories.NewRESTRemote(c.Config.RESTBaseURL+"/db", c.Config.RESTTimeout, c.token), nil
	case config.BackendFirebase:
		fb, err := c.firebaseApp(ctx)
		if err != nil {
			return nil, err
		}
		client, err := fb.Database(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open firebase database: %w", err)
		}
		return repositories.NewFirebaseRemote(client), nil
	}
	return nil, fmt.Errorf("unknown backend %q", c.Config.Backend)
}

func (c *Client) provider(ctx context.Context) (auth.Provider, error) {
	switch c.Config.AuthProvider {
	case config.ProviderLocal:
		var creds repositories.CredentialRepository = repositories.NewMemoryCredentialRepository()
		if c.Config.Backend != config.BackendMemory {
			db, err := c.database()
			if err != nil {
				return nil, err
			}
			if creds, err = repositories.NewGORMCredentialRepository(db); err != nil {
				return nil, err
			}
		}
		return auth.NewLocalProvider(auth.NewService(creds, c.Config.JWTSecret)), nil
	case config.ProviderREST:
		return auth.NewRESTProvider(c.Config.RESTBaseURL, c.Config.RESTTimeout), nil
	case config.ProviderFirebase:
		fb, err := c.firebaseApp(ctx)
		if err != nil {
			return nil, err
		}
		client, err := fb.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open firebase auth: %w", err)
		}
		return auth.NewFirebaseProvider(client, c.Config.Firebase.APIKey, c.Config.Firebase.SignInEndpoint), nil
	}
	return nil, fmt.Errorf("unknown auth provider %q", c.Config.AuthProvider)
}

func (c *Client) mirrorStorage() (mirror.Storage, error) {
	if c.Config.Backend == config.BackendMemory || c.Config.MirrorDSN == "" {
		return mirror.NewMemoryStorage(), nil
	}
	db, err := openDatabase(c.Config.MirrorDSN)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closeDatabase(db))
	return mirror.NewSQLStorage(db)
}

// publisher connects to RabbitMQ when configured. Order events are optional,
// so a broker that cannot be reached only disables them.
func (c *Client) publisher() services.EventPublisher {
	if c.Config.RabbitMQURL == "" {
		return nil
	}
	mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: c.Config.RabbitMQURL})
	if err != nil {
		log.Warn().Err(err).Msg("order events disabled")
		return nil
	}
	c.closers = append(c.closers, mq.Close)
	return mq
}

func (c *Client) database() (*gorm.DB, error) {
	if c.db != nil {
		return c.db, nil
	}
	db, err := openDatabase(c.Config.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	c.db = db
	c.closers = append(c.closers, closeDatabase(db))
	return db, nil
}

func (c *Client) firebaseApp(ctx context.Context) (*firebase.App, error) {
	if c.firebase != nil {
		return c.firebase, nil
	}
	fbCfg := &firebase.Config{
		DatabaseURL: c.Config.Firebase.DatabaseURL,
		ProjectID:   c.Config.Firebase.ProjectID,
	}
	var opts []option.ClientOption
	if c.Config.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.Config.Firebase.CredentialsFile))
	}
	fb, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase: %w", err)
	}
	c.firebase = fb
	return fb, nil
}

func (c *Client) token() string {
	if c.Session == nil {
		return ""
	}
	return c.Session.Token()
}
