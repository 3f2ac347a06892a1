package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/emberctl/internal/consumer"
	"github.com/danmuck/emberctl/internal/glow"
	"github.com/danmuck/emberctl/internal/provider"
)

var ErrInvalidConfig = errors.New("config: invalid")

// ProviderConfig is everything `emberctl provider` needs to serve a tree.
type ProviderConfig struct {
	Name      string
	TreeFile  string
	Functions []FunctionBinding
	Service   provider.ServiceConfig
}

// FunctionBinding runs Command when the function at Path is invoked.
type FunctionBinding struct {
	Path    string
	Command []string
	Timeout time.Duration
}

func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Name:    "emberctl",
		Service: provider.DefaultServiceConfig(),
	}
}

// ConsumerConfig is the client side of a session.
type ConsumerConfig = consumer.Config

func DefaultConsumerConfig() ConsumerConfig {
	cfg := consumer.DefaultConfig()
	cfg.Address = "127.0.0.1:9000"
	return cfg
}

// provider.toml key mapping.
type providerFile struct {
	Name            string         `toml:"name"`
	Addr            string         `toml:"addr"`
	AdminListenAddr string         `toml:"admin_listen_addr"`
	TreeFile        string         `toml:"tree_file"`
	CORSOrigins     []string       `toml:"cors_origins"`
	Functions       []functionFile `toml:"functions"`
	Session         sessionFile    `toml:"session"`
}

type functionFile struct {
	Path    string   `toml:"path"`
	Command []string `toml:"command"`
	Timeout string   `toml:"timeout"`
}

// consumer.toml key mapping.
type consumerFile struct {
	Name               string      `toml:"name"`
	Addr               string      `toml:"addr"`
	MaxConnectAttempts int         `toml:"max_connect_attempts"`
	Session            sessionFile `toml:"session"`
}

// LoadProviderConfig reads path over the defaults. A relative tree_file is
// resolved against the directory of path.
func LoadProviderConfig(path string) (ProviderConfig, error) {
	cfg := DefaultProviderConfig()

	var raw providerFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ProviderConfig{}, fmt.Errorf("load provider config: %w", err)
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("addr") {
		cfg.Service.ListenAddr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("admin_listen_addr") {
		cfg.Service.AdminListenAddr = strings.TrimSpace(raw.AdminListenAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.Service.CORSOrigins = normalizeList(raw.CORSOrigins)
	}
	if meta.IsDefined("tree_file") {
		cfg.TreeFile = resolvePath(path, raw.TreeFile)
	}
	for i, f := range raw.Functions {
		fn := FunctionBinding{Path: strings.TrimSpace(f.Path), Command: f.Command}
		if t := strings.TrimSpace(f.Timeout); t != "" {
			d, err := time.ParseDuration(t)
			if err != nil {
				return ProviderConfig{}, fmt.Errorf("load provider config: parse functions[%d].timeout: %w", i, err)
			}
			fn.Timeout = d
		}
		cfg.Functions = append(cfg.Functions, fn)
	}
	if err := raw.Session.apply(meta, &cfg.Service.Session); err != nil {
		return ProviderConfig{}, fmt.Errorf("load provider config: %w", err)
	}

	if err := ValidateProviderConfig(cfg); err != nil {
		return ProviderConfig{}, err
	}
	return cfg, nil
}

// LoadConsumerConfig reads path over the defaults.
func LoadConsumerConfig(path string) (ConsumerConfig, error) {
	cfg := DefaultConsumerConfig()

	var raw consumerFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ConsumerConfig{}, fmt.Errorf("load consumer config: %w", err)
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("addr") {
		cfg.Address = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("max_connect_attempts") {
		cfg.MaxConnectAttempts = raw.MaxConnectAttempts
	}
	if err := raw.Session.apply(meta, &cfg.Session); err != nil {
		return ConsumerConfig{}, fmt.Errorf("load consumer config: %w", err)
	}

	if err := ValidateConsumerConfig(cfg); err != nil {
		return ConsumerConfig{}, err
	}
	return cfg, nil
}

func ValidateProviderConfig(cfg ProviderConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%w: provider config missing name", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Service.ListenAddr) == "" {
		return fmt.Errorf("%w: provider config missing addr", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.TreeFile) == "" {
		return fmt.Errorf("%w: provider config missing tree_file", ErrInvalidConfig)
	}
	if admin := strings.TrimSpace(cfg.Service.AdminListenAddr); admin != "" && admin == strings.TrimSpace(cfg.Service.ListenAddr) {
		return fmt.Errorf("%w: admin_listen_addr must differ from addr", ErrInvalidConfig)
	}
	for i, fn := range cfg.Functions {
		if _, err := glow.ParsePath(fn.Path); err != nil || fn.Path == "" {
			return fmt.Errorf("%w: functions[%d] needs a numeric path", ErrInvalidConfig, i)
		}
		if len(fn.Command) == 0 || strings.TrimSpace(fn.Command[0]) == "" {
			return fmt.Errorf("%w: functions[%d] needs a command", ErrInvalidConfig, i)
		}
	}
	return validateSession(cfg.Service.Session)
}

func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if strings.TrimSpace(cfg.Address) == "" {
		return fmt.Errorf("%w: consumer config missing addr", ErrInvalidConfig)
	}
	if strings.HasPrefix(strings.TrimSpace(cfg.Address), ":") {
		return fmt.Errorf("%w: consumer addr needs a host", ErrInvalidConfig)
	}
	if cfg.MaxConnectAttempts < 0 {
		return fmt.Errorf("%w: max_connect_attempts must not be negative", ErrInvalidConfig)
	}
	return validateSession(cfg.Session)
}

func resolvePath(configPath, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
