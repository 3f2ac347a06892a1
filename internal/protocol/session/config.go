package session

import (
	"time"

	"github.com/danmuck/emberctl/internal/protocol/s101"
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines transport/session timing.
type Config struct {
	ConnectTimeout    time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	KeepAliveInterval time.Duration
	SessionDeadAfter  time.Duration
	RequestTimeout    time.Duration
	Limits            s101.Limits
	Backoff           BackoffConfig
}

// DefaultConfig returns the timings used when no config file overrides them.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:    5 * time.Second,
		ReadTimeout:       0,
		WriteTimeout:      10 * time.Second,
		KeepAliveInterval: 10 * time.Second,
		SessionDeadAfter:  30 * time.Second,
		RequestTimeout:    10 * time.Second,
		Limits:            s101.DefaultLimits(),
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}
