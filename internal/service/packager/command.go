package packager

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/wellness-node/internal/config"
	"github.com/oshokin/wellness-node/internal/logger"
	"github.com/oshokin/wellness-node/internal/service/updater"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is where the settings with the update folder are saved.
	ConfigPath string
	// UpdateFolder is the URL where release artifacts will be uploaded.
	UpdateFolder string
	// ReleaseDir holds the built binaries; the manifest is written there too.
	ReleaseDir string
}

// packager prepares the release manifest for distribution.
type packager struct {
	// opts are the caller inputs.
	opts *Options
	// manifest is filled with the release checksums.
	manifest *updater.Manifest
}

var (
	// errUpdaterRunning indicates that the updater is working in the same folder.
	errUpdaterRunning = errors.New("the updater is running now")
	// errUpdateFolderRequired is returned when no upload location is given.
	errUpdateFolderRequired = errors.New("update folder must be provided")
)

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "wellness-packager")

	if opts.UpdateFolder == "" {
		return errUpdateFolderRequired
	}

	if opts.ReleaseDir == "" {
		opts.ReleaseDir = "."
	}

	if opts.ConfigPath == "" {
		opts.ConfigPath = config.DefaultConfigFilename
	}

	if updater.IsUpdaterRunningNow(ctx) {
		return errUpdaterRunning
	}

	if err := saveSettings(opts); err != nil {
		return err
	}

	p := &packager{
		opts:     opts,
		manifest: updater.NewManifest(),
	}

	if err := p.run(ctx); err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	logger.Info(ctx, "Packager completed successfully")

	return nil
}

// saveSettings writes the update folder into the node settings, keeping
// any other values already present in the file.
func saveSettings(opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)

	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = config.Default()
	case err != nil:
		return fmt.Errorf("load settings: %w", err)
	}

	cfg.UpdateFolder = opts.UpdateFolder

	if err = config.Save(opts.ConfigPath, cfg); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	return nil
}

// run populates and writes the manifest.
func (p *packager) run(ctx context.Context) error {
	logger.InfoKV(ctx, "Preparing release manifest", "version", p.manifest.Version)

	if err := p.fillManifest(); err != nil {
		return err
	}

	manifestPath := filepath.Join(p.opts.ReleaseDir, updater.ManifestFilename)

	logger.InfoKV(ctx, "Saving release manifest", "path", manifestPath)

	contents, err := yaml.Marshal(p.manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err = os.WriteFile(manifestPath, contents, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	p.printNextSteps(ctx)

	return nil
}

// fillManifest hashes every release binary.
func (p *packager) fillManifest() error {
	for _, fileName := range updater.ReleaseFiles() {
		checksum, err := updater.FileChecksum(filepath.Join(p.opts.ReleaseDir, fileName))
		if err != nil {
			return fmt.Errorf("checksum %s: %w", fileName, err)
		}

		p.manifest.Files[fileName] = base64.StdEncoding.EncodeToString(checksum)
	}

	return nil
}

// printNextSteps logs which files to upload and how nodes pick them up.
func (p *packager) printNextSteps(ctx context.Context) {
	files := make([]string, 0, len(p.manifest.Files)+1)
	for fileName := range p.manifest.Files {
		files = append(files, fileName)
	}

	files = append(files, updater.ManifestFilename)
	sort.Strings(files)

	var builder strings.Builder

	builder.WriteString("Upload the following files to ")
	builder.WriteString(p.opts.UpdateFolder)
	builder.WriteString(":\n")
	builder.WriteString(strings.Join(files, ",\n"))
	builder.WriteString("\n\nCopy ")
	builder.WriteString(p.opts.ConfigPath)
	builder.WriteString(" next to ")
	builder.WriteString(updater.UpdaterExecutable())
	builder.WriteString(" on every node and run it with --restart at boot.")

	logger.Info(ctx, builder.String())
}
