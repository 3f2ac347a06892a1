package main

import (
	"context"
	"strings"
	"time"

	"github.com/danmuck/emberctl/internal/config"
	"github.com/danmuck/emberctl/internal/consumer"
	"github.com/danmuck/emberctl/internal/glow"
	"github.com/spf13/cobra"
)

var (
	getAddr       string
	getPath       string
	getConfigPath string
	getFormat     string
	getTimeout    time.Duration
)

func init() {
	getCmd.Flags().StringVarP(&getAddr, "addr", "a", "", "provider address, overrides the config")
	getCmd.Flags().StringVarP(&getPath, "path", "p", "", "element path, numbers or identifiers split by . or /")
	getCmd.Flags().StringVarP(&getConfigPath, "config", "c", "", "consumer config file")
	getCmd.Flags().StringVarP(&getFormat, "format", "f", "text", "output format: text, yaml or json")
	getCmd.Flags().DurationVar(&getTimeout, "timeout", 30*time.Second, "overall deadline")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Connect to a provider, expand a subtree and print it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := consumerConfig(getConfigPath, getAddr)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), getTimeout)
		defer cancel()

		client, err := consumer.NewClient(cfg)
		if err != nil {
			return err
		}
		if err := client.Connect(ctx); err != nil {
			return err
		}
		defer client.Close()

		var target glow.Element
		if strings.TrimSpace(getPath) != "" {
			if target, err = client.GetElementByPath(ctx, getPath); err != nil {
				return err
			}
		}
		if target == nil || target.Kind() == glow.KindNode {
			if err := client.Expand(ctx, target); err != nil {
				return err
			}
		}

		var out error
		client.View(func(root *glow.Root) {
			if target == nil {
				out = writeExport(cmd.OutOrStdout(), root, getFormat)
				return
			}
			out = writeExport(cmd.OutOrStdout(), target, getFormat)
		})
		return out
	},
}

func consumerConfig(path, addr string) (consumer.Config, error) {
	cfg := config.DefaultConsumerConfig()
	if strings.TrimSpace(path) != "" {
		loaded, err := config.LoadConsumerConfig(path)
		if err != nil {
			return consumer.Config{}, err
		}
		cfg = loaded
	}
	if strings.TrimSpace(addr) != "" {
		cfg.Address = strings.TrimSpace(addr)
	}
	return cfg, config.ValidateConsumerConfig(cfg)
}
