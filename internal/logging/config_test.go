package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	lvl, ok := parseLevel(" Debug ")
	assert.True(t, ok)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	lvl, ok = parseLevel("off")
	assert.True(t, ok)
	assert.Equal(t, zerolog.Disabled, lvl)

	lvl, ok = parseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, zerolog.WarnLevel, lvl)

	_, ok = parseLevel("loud")
	assert.False(t, ok)
	_, ok = parseLevel("")
	assert.False(t, ok)
}

func TestProfileDefaults(t *testing.T) {
	svc := DefaultConfig(ProfileService)
	assert.Equal(t, zerolog.InfoLevel, svc.Level)
	assert.True(t, svc.Timestamp)

	cli := DefaultConfig(ProfileCLI)
	assert.Equal(t, zerolog.WarnLevel, cli.Level)
	assert.False(t, cli.Timestamp)

	assert.True(t, DefaultConfig(ProfileTest).NoColor)
	assert.Equal(t, "cli", ProfileCLI.String())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "JSON")
	t.Setenv(EnvLogCaller, "1")
	t.Setenv(EnvLogTimestamp, "nope")
	cfg := DefaultConfig(ProfileService)
	applyEnvOverrides(&cfg)
	assert.Equal(t, zerolog.ErrorLevel, cfg.Level)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.True(t, cfg.Caller)
	assert.True(t, cfg.Timestamp)
}

func TestApplyJSONFormat(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	defer func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	}()

	var buf bytes.Buffer
	Apply(Config{Level: zerolog.InfoLevel, Format: FormatJSON, Out: &buf})
	log.Info().Str("path", "1.2").Msg("hello")
	log.Debug().Msg("dropped")
	assert.Contains(t, buf.String(), `"path":"1.2"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.NotContains(t, buf.String(), "dropped")
}
