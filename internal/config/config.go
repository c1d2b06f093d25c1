// Package config loads runtime settings from the environment and optional
// .env files.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend names accepted by BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQL      = "sql"
	BackendREST     = "rest"
	BackendFirebase = "firebase"
)

// Provider names accepted by AUTH_PROVIDER.
const (
	ProviderLocal    = "local"
	ProviderREST     = "rest"
	ProviderFirebase = "firebase"
)

// Config holds every runtime setting.
type Config struct {
	Env      string
	LogLevel string
	AppPort  string

	Backend      string
	AuthProvider string
	DatabaseDSN  string
	MirrorDSN    string

	RESTBaseURL string
	RESTTimeout time.Duration

	Firebase FirebaseConfig

	JWTSecret         string
	RabbitMQURL       string
	CartLocalFallback bool
	// TreeRequireToken makes the mock server reject /db calls without a valid token.
	TreeRequireToken bool
}

// FirebaseConfig holds the hosted backend settings.
type FirebaseConfig struct {
	DatabaseURL     string
	ProjectID       string
	APIKey          string
	CredentialsFile string
	SignInEndpoint  string
}

// Load reads .env and .env.local when present, then the environment.
// Environment variables win over file values.
func Load() (*Config, error) {
	LoadEnvFiles()
	return FromViper(NewViper())
}

// LoadEnvFiles exports .env and .env.local into the process environment.
// Variables that are already set are kept.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// NewViper returns a viper instance with every key defaulted and bound to
// the environment. Callers may bind flags on top before FromViper.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("BACKEND", BackendSQL)
	v.SetDefault("AUTH_PROVIDER", ProviderLocal)
	v.SetDefault("DATABASE_DSN", "etalase.db")
	v.SetDefault("MIRROR_DSN", "etalase-mirror.db")
	v.SetDefault("REST_BASE_URL", "http://localhost:8080")
	v.SetDefault("REST_TIMEOUT", "10s")
	v.SetDefault("FIREBASE_DATABASE_URL", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_API_KEY", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_SIGNIN_ENDPOINT", "")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("CART_LOCAL_FALLBACK", false)
	v.SetDefault("TREE_REQUIRE_TOKEN", false)
	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from v and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:          v.GetString("APP_ENV"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		AppPort:      v.GetString("APP_PORT"),
		Backend:      strings.ToLower(v.GetString("BACKEND")),
		AuthProvider: strings.ToLower(v.GetString("AUTH_PROVIDER")),
		DatabaseDSN:  v.GetString("DATABASE_DSN"),
		MirrorDSN:    v.GetString("MIRROR_DSN"),
		RESTBaseURL:  strings.TrimRight(v.GetString("REST_BASE_URL"), "/"),
		RESTTimeout:  v.GetDuration("REST_TIMEOUT"),
		Firebase: FirebaseConfig{
			DatabaseURL:     v.GetString("FIREBASE_DATABASE_URL"),
			ProjectID:       v.GetString("FIREBASE_PROJECT_ID"),
			APIKey:          v.GetString("FIREBASE_API_KEY"),
			CredentialsFile: v.GetString("FIREBASE_CREDENTIALS_FILE"),
			SignInEndpoint:  v.GetString("FIREBASE_SIGNIN_ENDPOINT"),
		},
		JWTSecret:         v.GetString("JWT_SECRET"),
		RabbitMQURL:       v.GetString("RABBITMQ_URL"),
		CartLocalFallback: v.GetBool("CART_LOCAL_FALLBACK"),
		TreeRequireToken:  v.GetBool("TREE_REQUIRE_TOKEN"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendMemory, BackendSQL, BackendREST:
	case BackendFirebase:
		if c.Firebase.DatabaseURL == "" {
			return fmt.Errorf("config: BACKEND=firebase needs FIREBASE_DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown BACKEND %q", c.Backend)
	}
	switch c.AuthProvider {
	case ProviderLocal, ProviderREST:
	case ProviderFirebase:
		if c.Firebase.APIKey == "" {
			return fmt.Errorf("config: AUTH_PROVIDER=firebase needs FIREBASE_API_KEY")
		}
	default:
		return fmt.Errorf("config: unknown AUTH_PROVIDER %q", c.AuthProvider)
	}
	if c.RESTTimeout <= 0 {
		return fmt.Errorf("config: REST_TIMEOUT must be positive")
	}
	return nil
}

// IsPostgres reports whether dsn addresses a postgres server rather than a sqlite file.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=")
}
