package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/emberctl/internal/protocol/session"
)

// [session] table shared by provider and consumer files.
type sessionFile struct {
	ConnectTimeout    string  `toml:"connect_timeout"`
	ReadTimeout       string  `toml:"read_timeout"`
	WriteTimeout      string  `toml:"write_timeout"`
	KeepAliveInterval string  `toml:"keepalive_interval"`
	DeadAfter         string  `toml:"dead_after"`
	RequestTimeout    string  `toml:"request_timeout"`
	MaxPacketPayload  int     `toml:"max_packet_payload"`
	MaxMessageBytes   int     `toml:"max_message_bytes"`
	BackoffInitial    string  `toml:"backoff_initial"`
	BackoffMultiplier float64 `toml:"backoff_multiplier"`
	BackoffMax        string  `toml:"backoff_max"`
	BackoffJitter     bool    `toml:"backoff_jitter"`
}

func (f sessionFile) apply(meta toml.MetaData, cfg *session.Config) error {
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", f.ConnectTimeout, &cfg.ConnectTimeout},
		{"read_timeout", f.ReadTimeout, &cfg.ReadTimeout},
		{"write_timeout", f.WriteTimeout, &cfg.WriteTimeout},
		{"keepalive_interval", f.KeepAliveInterval, &cfg.KeepAliveInterval},
		{"dead_after", f.DeadAfter, &cfg.SessionDeadAfter},
		{"request_timeout", f.RequestTimeout, &cfg.RequestTimeout},
		{"backoff_initial", f.BackoffInitial, &cfg.Backoff.InitialDelay},
		{"backoff_max", f.BackoffMax, &cfg.Backoff.MaxDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined("session", d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("parse session.%s: %w", d.key, err)
		}
		*d.dst = v
	}
	if meta.IsDefined("session", "max_packet_payload") {
		cfg.Limits.MaxPacketPayload = f.MaxPacketPayload
	}
	if meta.IsDefined("session", "max_message_bytes") {
		cfg.Limits.MaxMessageBytes = f.MaxMessageBytes
	}
	if meta.IsDefined("session", "backoff_multiplier") {
		cfg.Backoff.Multiplier = f.BackoffMultiplier
	}
	if meta.IsDefined("session", "backoff_jitter") {
		cfg.Backoff.Jitter = f.BackoffJitter
	}
	return nil
}

func validateSession(cfg session.Config) error {
	for name, d := range map[string]time.Duration{
		"connect_timeout":    cfg.ConnectTimeout,
		"read_timeout":       cfg.ReadTimeout,
		"write_timeout":      cfg.WriteTimeout,
		"keepalive_interval": cfg.KeepAliveInterval,
		"dead_after":         cfg.SessionDeadAfter,
		"request_timeout":    cfg.RequestTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%w: session.%s must not be negative", ErrInvalidConfig, name)
		}
	}
	if cfg.KeepAliveInterval > 0 && cfg.SessionDeadAfter > 0 && cfg.SessionDeadAfter <= cfg.KeepAliveInterval {
		return fmt.Errorf("%w: session.dead_after must exceed keepalive_interval", ErrInvalidConfig)
	}
	if cfg.Limits.MaxPacketPayload <= 0 || cfg.Limits.MaxMessageBytes <= 0 {
		return fmt.Errorf("%w: session frame limits must be positive", ErrInvalidConfig)
	}
	if cfg.Backoff.Multiplier != 0 && cfg.Backoff.Multiplier < 1 {
		return fmt.Errorf("%w: session.backoff_multiplier must be at least 1", ErrInvalidConfig)
	}
	return nil
}
