package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/wellness-node/internal/config"
	"github.com/oshokin/wellness-node/internal/domain/device"
	"github.com/oshokin/wellness-node/internal/service/client"
	"github.com/oshokin/wellness-node/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// nodeAddress overrides the node gRPC address.
	nodeAddress string

	// rootCmd groups the node control commands.
	rootCmd = &cobra.Command{
		Use:   "wellness-ctl",
		Short: "Control a humidifier node.",
		Long: `Switches the humidifier of a wellness node and reads its status.

The node address defaults to the listen address from the configuration file
on the local host and can be overridden with --node.`,
	}
)

// newCommand builds a subcommand that sends cmd (or only reads the status when empty).
func newCommand(use, short string, cmd device.Command) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return client.Run(ctx, &client.Options{
				ConfigPath:  configPath,
				NodeAddress: nodeAddress,
				Command:     cmd,
			})
		},
	}
}

// Execute runs the wellness-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&nodeAddress, "node", "n", "", "node gRPC address (host:port)")

	rootCmd.AddCommand(
		newCommand("on", "Switch the humidifier on.", device.CommandOn),
		newCommand("off", "Switch the humidifier off.", device.CommandOff),
		newCommand("status", "Print the node status.", ""),
	)
}
