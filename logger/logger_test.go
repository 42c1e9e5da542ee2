package logger

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BESTDEAL_ENVIRONMENT", "production")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())

	t.Setenv("BESTDEAL_ENVIRONMENT", "development")
	assert.Equal(t, zerolog.DebugLevel, getLogLevel())

	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, zerolog.WarnLevel, getLogLevel())

	t.Setenv("LOG_LEVEL", "nonsense")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())
}

func TestComponentLoggers(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	var buf bytes.Buffer
	InitWithWriter(&buf)
	defer InitWithWriter(os.Stdout)

	ForStore("memory").Info().Msg("stored")
	ForSource("LDLC").Warn().Msg("slow")
	ForComponent("worker").Error().Err(errors.New("boom")).Msgf("cycle %d failed", 3)

	out := buf.String()
	assert.Contains(t, out, "component=store")
	assert.Contains(t, out, "backend=memory")
	assert.Contains(t, out, "source=LDLC")
	assert.Contains(t, out, "cycle 3 failed")
	assert.Contains(t, out, "boom")
}
