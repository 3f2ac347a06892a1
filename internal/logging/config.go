package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel     = "EMBERCTL_LOG_LEVEL"
	EnvLogFormat    = "EMBERCTL_LOG_FORMAT"
	EnvLogTimestamp = "EMBERCTL_LOG_TIMESTAMP"
	EnvLogNoColor   = "EMBERCTL_LOG_NOCOLOR"
	EnvLogCaller    = "EMBERCTL_LOG_CALLER"
)

// Profile picks the defaults for one kind of process.
type Profile int

const (
	// ProfileService is a long running provider: info level, timestamped.
	ProfileService Profile = iota
	// ProfileCLI is a one-shot command whose stdout carries the result, so
	// only warnings reach stderr.
	ProfileCLI
	ProfileTest
)

func (p Profile) String() string {
	switch p {
	case ProfileService:
		return "service"
	case ProfileCLI:
		return "cli"
	case ProfileTest:
		return "test"
	default:
		return "unknown"
	}
}

type Format int

const (
	FormatConsole Format = iota
	FormatJSON
)

// Config selects level and line format. JSON lines skip the console writer
// and suit log shippers in front of a provider.
type Config struct {
	Level     zerolog.Level
	Format    Format
	Timestamp bool
	NoColor   bool
	Caller    bool
	Out       io.Writer
}

var configureOnce sync.Once

// Configure installs the profile defaults, overridden from the environment.
// Only the first call in a process has effect.
func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := DefaultConfig(profile)
		applyEnvOverrides(&cfg)
		Apply(cfg)
	})
}

func ConfigureTests() {
	Configure(ProfileTest)
}

// Apply installs cfg as the global zerolog logger.
func Apply(cfg Config) {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == FormatConsole {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.TimeOnly,
		}
	}
	ctx := zerolog.New(out).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	zerolog.SetGlobalLevel(cfg.Level)
	log.Logger = ctx.Logger()
}

func DefaultConfig(profile Profile) Config {
	switch profile {
	case ProfileCLI:
		return Config{Level: zerolog.WarnLevel}
	case ProfileTest:
		// go test output is rarely a terminal
		return Config{Level: zerolog.DebugLevel, NoColor: true}
	default:
		return Config{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvLogFormat))) {
	case "json":
		cfg.Format = FormatJSON
	case "console", "text":
		cfg.Format = FormatConsole
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogCaller)); ok {
		cfg.Caller = v
	}
}

// parseLevel accepts zerolog level names plus "off".
func parseLevel(raw string) (zerolog.Level, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return zerolog.NoLevel, false
	case "off", "none":
		return zerolog.Disabled, true
	case "warning":
		return zerolog.WarnLevel, true
	}
	lvl, err := zerolog.ParseLevel(raw)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, false
	}
	return lvl, true
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
