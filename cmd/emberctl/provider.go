package main

import (
	"fmt"
	"strings"

	"github.com/danmuck/emberctl/internal/config"
	"github.com/danmuck/emberctl/internal/loader"
	"github.com/danmuck/emberctl/internal/provider"
	"github.com/danmuck/emberctl/internal/tools"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	providerConfigPath string
	providerTreePath   string
)

func init() {
	providerCmd.Flags().StringVarP(&providerConfigPath, "config", "c", "provider.toml", "provider config file")
	providerCmd.Flags().StringVarP(&providerTreePath, "tree", "t", "", "tree description, overrides tree_file")
	rootCmd.AddCommand(providerCmd)
}

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Serve an Ember+ tree loaded from a declarative file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProvider(providerConfigPath, providerTreePath)
		if err != nil {
			return err
		}
		svc, err := newProviderService(cfg)
		if err != nil {
			return err
		}
		return svc.Run()
	},
}

func loadProvider(configPath, treePath string) (config.ProviderConfig, error) {
	if strings.TrimSpace(treePath) == "" {
		return config.LoadProviderConfig(configPath)
	}
	cfg := config.DefaultProviderConfig()
	if strings.TrimSpace(configPath) != "" && fileExists(configPath) {
		loaded, err := config.LoadProviderConfig(configPath)
		if err != nil {
			return config.ProviderConfig{}, err
		}
		cfg = loaded
	}
	cfg.TreeFile = treePath
	return cfg, config.ValidateProviderConfig(cfg)
}

func newProviderService(cfg config.ProviderConfig) (*provider.Service, error) {
	root, err := loader.LoadFile(cfg.TreeFile)
	if err != nil {
		return nil, err
	}
	server := provider.NewServer(cfg.Name, root)
	for _, fn := range cfg.Functions {
		h, err := tools.CommandHandler(tools.ExecRunner{}, fn.Command, fn.Timeout)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Path, err)
		}
		if err := server.RegisterFunction(fn.Path, h); err != nil {
			return nil, err
		}
		log.Info().Str("function", fn.Path).Strs("command", fn.Command).Msg("function bound")
	}
	server.OnEvent(func(e provider.Event) {
		log.Info().
			Str("event", string(e.Kind)).
			Str("path", e.Path).
			Str("client", e.Client).
			Str("detail", e.Detail).
			Msg("tree event")
	})
	log.Info().Str("node", cfg.Name).Str("tree", cfg.TreeFile).Msg("tree loaded")
	return provider.NewService(server, cfg.Service), nil
}
