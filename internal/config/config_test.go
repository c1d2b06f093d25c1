package config_test

import (
	"testing"
	"time"

	"etalase/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BACKEND", "")
	t.Setenv("AUTH_PROVIDER", "")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.BackendSQL, cfg.Backend)
	assert.Equal(t, config.ProviderLocal, cfg.AuthProvider)
	assert.Equal(t, 10*time.Second, cfg.RESTTimeout)
	assert.False(t, cfg.CartLocalFallback)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("BACKEND", "REST")
	t.Setenv("AUTH_PROVIDER", "rest")
	t.Setenv("REST_BASE_URL", "http://127.0.0.1:9000/")
	t.Setenv("REST_TIMEOUT", "3s")
	t.Setenv("CART_LOCAL_FALLBACK", "true")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.BackendREST, cfg.Backend)
	assert.Equal(t, "http://127.0.0.1:9000", cfg.RESTBaseURL)
	assert.Equal(t, 3*time.Second, cfg.RESTTimeout)
	assert.True(t, cfg.CartLocalFallback)
}

func TestLoad_Rejects(t *testing.T) {
	t.Setenv("BACKEND", "cassandra")
	_, err := config.Load()
	assert.ErrorContains(t, err, "unknown BACKEND")

	t.Setenv("BACKEND", "firebase")
	t.Setenv("FIREBASE_DATABASE_URL", "")
	_, err = config.Load()
	assert.ErrorContains(t, err, "FIREBASE_DATABASE_URL")

	t.Setenv("BACKEND", "memory")
	t.Setenv("AUTH_PROVIDER", "firebase")
	t.Setenv("FIREBASE_API_KEY", "")
	_, err = config.Load()
	assert.ErrorContains(t, err, "FIREBASE_API_KEY")
}

func TestIsPostgres(t *testing.T) {
	assert.True(t, config.IsPostgres("postgres://u:p@localhost/etalase"))
	assert.True(t, config.IsPostgres("host=127.0.0.1 user=postgres dbname=etalase"))
	assert.False(t, config.IsPostgres("etalase.db"))
	assert.False(t, config.IsPostgres("file::memory:?cache=shared"))
}
