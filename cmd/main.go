package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version переопределяется при сборке:
// go build -ldflags="-X 'main.Version=v1.0.0'"
var Version = "dev"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:     "call-service",
		Short:   "Signaling server for two-party WebRTC voice calls",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configPath != "" {
				_ = os.Setenv("CONFIG_PATH", configPath)
			}
		},
		// без подкоманды запускается serve
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (overrides CONFIG_PATH)")

	root.AddCommand(newServeCmd(), newVersionCmd(), newRoomsCmd())
	root.SilenceErrors = true
	root.SilenceUsage = true
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
