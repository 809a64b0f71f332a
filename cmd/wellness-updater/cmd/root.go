package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/wellness-node/internal/config"
	"github.com/oshokin/wellness-node/internal/service/updater"
	"github.com/oshokin/wellness-node/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// restart starts the node after updating.
	restart bool

	// rootCmd represents the base command for downloading and applying releases.
	rootCmd = &cobra.Command{
		Use:   "wellness-updater [update-folder]",
		Short: "Download and install the latest node release",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &updater.Options{
				ConfigPath: configPath,
				Restart:    restart,
			}

			if len(args) > 0 {
				options.UpdateFolder = args[0]
			}

			return updater.Run(ctx, options)
		},
	}
)

// Execute runs the wellness-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().BoolVarP(&restart, "restart", "r", false, "start the node when the updater finishes")
}
