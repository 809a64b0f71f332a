package updater

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/wellness-node/internal/config"
	"github.com/oshokin/wellness-node/internal/logger"
)

var (
	errUpdaterAlreadyRunning = errors.New("the updater is already running")
	errNoUpdateFolder        = errors.New("update folder is not configured")
	errEmptyManifest         = errors.New("release manifest is empty")
	errBadHTTPStatus         = errors.New("unexpected http status")
	errInvalidVersionOutput  = errors.New("invalid version output format")
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// UpdateFolder overrides the update folder from the settings.
	UpdateFolder string
	// Restart starts the node executable after a successful run.
	Restart bool
}

// runner holds the state of a single update execution.
type runner struct {
	opts   *Options
	cfg    *config.Config
	client *http.Client

	// manifest is the remote release description.
	manifest *Manifest
	// localVersion is reported by the installed node binary, empty when unknown.
	localVersion string
	// staleFiles are release files whose local checksum differs.
	staleFiles []string
	// temporaryDirectory holds downloads before they are applied.
	temporaryDirectory string
	// downloadedFiles maps release file names to their temporary paths.
	downloadedFiles map[string]string
}

// Run executes the updater lifecycle and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "wellness-updater")

	up, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}

	defer up.cleanup(ctx)

	if err = up.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Updater run failed", "error", err)
		return err
	}

	logger.Info(ctx, "Updater completed")

	return nil
}

// newRunner loads settings and writes a marker to avoid concurrent runs.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	if IsUpdaterRunningNow(ctx) {
		return nil, errUpdaterAlreadyRunning
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.UpdateFolder != "" {
		cfg.UpdateFolder = opts.UpdateFolder
	}

	if cfg.UpdateFolder == "" {
		return nil, errNoUpdateFolder
	}

	marker, err := os.Create(MarkerFilename)
	if err != nil {
		return nil, fmt.Errorf("create update marker: %w", err)
	}

	if err = marker.Close(); err != nil {
		return nil, fmt.Errorf("close update marker: %w", err)
	}

	return &runner{
		opts:            opts,
		cfg:             cfg,
		client:          &http.Client{Timeout: cfg.Timeout},
		downloadedFiles: make(map[string]string, len(ReleaseFiles())),
	}, nil
}

// run performs the update:
// 1) Fetch the remote manifest.
// 2) Detect the local version.
// 3) Compare versions and checksums.
// 4) Download, stop the node and apply files if needed.
// 5) Restart the node when requested.
func (u *runner) run(ctx context.Context) error {
	logger.InfoKV(ctx, "Downloading the release manifest", "update_folder", u.cfg.UpdateFolder)

	if err := u.fetchManifest(ctx); err != nil {
		return fmt.Errorf("download release manifest: %w", err)
	}

	u.localVersion = detectLocalVersion(ctx, NodeExecutable())

	if err := u.findStaleFiles(); err != nil {
		return fmt.Errorf("validate checksums: %w", err)
	}

	if !u.updateNeeded(ctx) {
		logger.Info(ctx, "No update required, version and files are current")
		return u.restart(ctx)
	}

	logger.Info(ctx, "Downloading release files to a temporary folder")

	if err := u.downloadFiles(ctx); err != nil {
		return fmt.Errorf("download release files: %w", err)
	}

	logger.Info(ctx, "Stopping the running node")

	if err := terminateProcesses(ctx, NodeExecutable()); err != nil {
		return fmt.Errorf("stop node: %w", err)
	}

	logger.Info(ctx, "Installing release files")

	if err := u.applyFiles(ctx); err != nil {
		return fmt.Errorf("install release files: %w", err)
	}

	return u.restart(ctx)
}

// updateNeeded logs and returns whether the installed release differs from the remote one.
func (u *runner) updateNeeded(ctx context.Context) bool {
	needed := false

	switch {
	case u.localVersion == "":
		logger.Info(ctx, "No local version detected, update needed")

		needed = true
	case u.localVersion != u.manifest.Version:
		logger.InfoKV(ctx, "Version mismatch detected", "local", u.localVersion, "remote", u.manifest.Version)

		needed = true
	}

	if len(u.staleFiles) > 0 {
		logger.InfoKV(ctx, "File update required", "files", strings.Join(u.staleFiles, ", "))

		needed = true
	}

	return needed
}

// fetchManifest downloads and parses the remote release manifest.
func (u *runner) fetchManifest(ctx context.Context) error {
	body, err := u.download(ctx, ManifestFilename)
	if err != nil {
		return err
	}

	defer func() {
		_ = body.Close()
	}()

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	var manifest Manifest
	if err = yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("unmarshal manifest: %w", err)
	}

	if manifest.Version == "" || len(manifest.Files) == 0 {
		return errEmptyManifest
	}

	u.manifest = &manifest

	return nil
}

// findStaleFiles records release files missing locally or with a different checksum.
func (u *runner) findStaleFiles() error {
	u.staleFiles = u.staleFiles[:0]

	for fileName := range u.manifest.Files {
		remote, err := u.manifest.Checksum(fileName)
		if err != nil {
			return err
		}

		local, err := FileChecksum(fileName)

		switch {
		case errors.Is(err, os.ErrNotExist):
			u.staleFiles = append(u.staleFiles, fileName)
		case err != nil:
			return err
		case !bytes.Equal(remote, local):
			u.staleFiles = append(u.staleFiles, fileName)
		}
	}

	return nil
}

// download opens a file from the update folder.
func (u *runner) download(ctx context.Context, fileName string) (io.ReadCloser, error) {
	folderURL, err := url.Parse(u.cfg.UpdateFolder)
	if err != nil {
		return nil, err
	}

	// path.Join normalizes duplicate slashes in the composed URL.
	folderURL.Path = path.Join(folderURL.Path, fileName)
	fileURL := folderURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()

		return nil, fmt.Errorf("%s, %s: %w", fileURL, response.Status, errBadHTTPStatus)
	}

	return response.Body, nil
}

// downloadFiles stores every stale file in a temporary directory.
func (u *runner) downloadFiles(ctx context.Context) error {
	temporaryDirectory, err := os.MkdirTemp("", "wellness-updater-")
	if err != nil {
		return err
	}

	u.temporaryDirectory = temporaryDirectory

	for _, fileName := range u.staleFiles {
		target := filepath.Join(temporaryDirectory, filepath.Base(fileName))
		if err = u.downloadFile(ctx, fileName, target); err != nil {
			return err
		}

		u.downloadedFiles[fileName] = target
		logger.InfoKV(ctx, "Downloaded file", "path", target)
	}

	return nil
}

func (u *runner) downloadFile(ctx context.Context, fileName, target string) error {
	body, err := u.download(ctx, fileName)
	if err != nil {
		return err
	}

	defer func() {
		_ = body.Close()
	}()

	output, err := os.Create(target)
	if err != nil {
		return err
	}

	if _, err = io.Copy(output, body); err != nil {
		_ = output.Close()
		return err
	}

	return output.Close()
}

// applyFiles replaces installed files, verifying each against the manifest checksum.
func (u *runner) applyFiles(ctx context.Context) error {
	for fileName, downloaded := range u.downloadedFiles {
		logger.InfoKV(ctx, "Updating file", "file", fileName)

		checksum, err := u.manifest.Checksum(fileName)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(downloaded)
		if err != nil {
			return err
		}

		// Apply moves the current file aside, so a first install needs a placeholder.
		created, err := ensureTarget(fileName)
		if err != nil {
			return err
		}

		options := goupdate.Options{
			TargetPath: fileName,
			TargetMode: DefaultFileMode,
			Checksum:   checksum,
			Hash:       DefaultChecksumFunction,
		}

		if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
			if created {
				_ = os.Remove(fileName)
			}

			return fmt.Errorf("apply %s: %w", fileName, err)
		}

		_ = os.Remove(fileName + ".old")
	}

	return nil
}

// ensureTarget creates an empty file when fileName does not exist yet and
// reports whether it did.
func ensureTarget(fileName string) (bool, error) {
	_, err := os.Stat(fileName)

	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, os.ErrNotExist):
		return false, err
	}

	placeholder, err := os.Create(fileName)
	if err != nil {
		return false, err
	}

	return true, placeholder.Close()
}

// restart starts the release executable when requested.
func (u *runner) restart(ctx context.Context) error {
	if !u.opts.Restart {
		return nil
	}

	executable := u.manifest.Executable
	if executable == "" {
		executable = NodeExecutable()
	}

	logger.InfoKV(ctx, "Starting executable", "executable", executable)

	args := []string{}
	if u.opts.ConfigPath != "" {
		args = append(args, "--config", u.opts.ConfigPath)
	}

	//nolint:gosec // The executable name comes from the signed-off release manifest.
	cmd := exec.CommandContext(context.WithoutCancel(ctx), "./"+executable, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", executable, err)
	}

	return cmd.Process.Release()
}

// cleanup removes temporary artifacts and the running marker.
func (u *runner) cleanup(ctx context.Context) {
	_ = os.Remove(MarkerFilename)

	if u.temporaryDirectory != "" {
		_ = os.RemoveAll(u.temporaryDirectory)
	}

	logger.Info(ctx, "The updater has been stopped")
}

// detectLocalVersion runs the installed node binary to learn its version.
// An empty result means the version is unknown, e.g. on first install.
func detectLocalVersion(ctx context.Context, executable string) string {
	cmdCtx, cancel := context.WithTimeout(ctx, versionCommandTimeout)
	defer cancel()

	output, err := exec.CommandContext(cmdCtx, "./"+executable, "version").Output()
	if err != nil {
		logger.WarnKV(ctx, "Could not get local version", "executable", executable, "error", err)
		return ""
	}

	localVersion, err := parseVersionFromOutput(string(output))
	if err != nil {
		logger.WarnKV(ctx, "Unexpected version output", "executable", executable, "error", err)
		return ""
	}

	return localVersion
}

// parseVersionFromOutput extracts the semantic version from `version` output.
func parseVersionFromOutput(output string) (string, error) {
	// "version: 1.0.0, commit: abc123, built at: ..." -> "1.0.0"
	output = strings.TrimSpace(output)

	first, _, _ := strings.Cut(output, ",")
	if !strings.HasPrefix(first, "version: ") {
		return "", errInvalidVersionOutput
	}

	result := strings.TrimSpace(strings.TrimPrefix(first, "version: "))
	if result == "" {
		return "", errInvalidVersionOutput
	}

	return result, nil
}
