package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/emberctl/internal/config"
	"github.com/danmuck/emberctl/internal/loader"
	"github.com/spf13/cobra"
)

var configForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write or check provider and consumer config files",
}

var configInitCmd = &cobra.Command{
	Use:   "init <provider|consumer|tree> <path>",
	Short: "Write a starter file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteTemplate(args[1], args[0], configForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s template to %s\n", strings.ToLower(args[0]), args[1])
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <provider|consumer|tree> <path>",
	Short: "Load a file and report the first problem",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, path := strings.ToLower(args[0]), args[1]
		switch kind {
		case "provider":
			cfg, err := config.LoadProviderConfig(path)
			if err != nil {
				return err
			}
			if _, err := loader.LoadFile(cfg.TreeFile); err != nil {
				return err
			}
		case "consumer":
			if _, err := config.LoadConsumerConfig(path); err != nil {
				return err
			}
		case "tree":
			if _, err := loader.LoadFile(path); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown config kind: %s", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "validated %s config at %s\n", kind, path)
		return nil
	},
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
