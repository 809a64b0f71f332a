package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/wellness-node/internal/config"
	"github.com/oshokin/wellness-node/internal/service/node"
	"github.com/oshokin/wellness-node/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// assumeConnectivity skips the route and address probe.
	assumeConnectivity bool

	// rootCmd represents the base command for running the node.
	rootCmd = &cobra.Command{
		Use:   "wellness-node [listen-address]",
		Short: "Run the humidifier node.",
		Long: `Runs the smart wellness humidifier node.

The node waits for network connectivity, connects to the MQTT broker and
publishes a humidity status message every publish interval. ON/OFF commands
are accepted on the control topic and on the gRPC actuator endpoint.
The push button on the configured GPIO line, or SIGUSR1, toggles manual mode.
Listen address can be provided as argument to override config (e.g., :5683).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return node.Run(ctx, &node.Options{
				ConfigPath:         configPath,
				ListenAddress:      listenAddress,
				AssumeConnectivity: assumeConnectivity,
			})
		},
	}
)

// Execute runs the wellness-node CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().BoolVar(&assumeConnectivity, "assume-connectivity", false, "skip the network connectivity check")
}
