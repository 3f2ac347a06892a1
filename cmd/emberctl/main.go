package main

import (
	"fmt"
	"os"

	"github.com/danmuck/emberctl/internal/logging"
	"github.com/danmuck/emberctl/internal/observability"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "emberctl",
	Short:         "Ember+ provider, consumer and capture tooling",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		profile := logging.ProfileCLI
		if cmd.Name() == "provider" {
			profile = logging.ProfileService
		}
		observability.InitLogger("emberctl", profile)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "emberctl: %v\n", err)
		os.Exit(1)
	}
}
