package logger_test

import (
	"bytes"
	"testing"

	"etalase/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, logger.ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, logger.ParseLevel("warning"))
	assert.Equal(t, zerolog.Disabled, logger.ParseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel("bogus"))
}

func TestNew_InstallsGlobalJSONLogger(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	var buf bytes.Buffer
	logger.New(logger.Config{Env: "production", Level: "warn", Out: &buf})

	log.Info().Msg("dropped")
	log.Warn().Str("store", "cart").Msg("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"store":"cart"`)
	assert.Contains(t, out, `"message":"kept"`)
}
