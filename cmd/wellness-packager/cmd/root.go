package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/wellness-node/internal/config"
	"github.com/oshokin/wellness-node/internal/service/packager"
	"github.com/oshokin/wellness-node/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// releaseDir holds the built binaries.
	releaseDir string

	// rootCmd represents the base command for preparing a release.
	rootCmd = &cobra.Command{
		Use:   "wellness-packager [update-folder]",
		Short: "Prepare a node release for distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &packager.Options{
				ConfigPath:   configPath,
				UpdateFolder: args[0],
				ReleaseDir:   releaseDir,
			}

			return packager.Run(ctx, options)
		},
	}
)

// Execute runs the wellness-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&releaseDir, "release-dir", "d", ".", "folder with the built binaries")
}
