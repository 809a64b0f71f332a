package updater

import (
	"context"
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/wellness-node/internal/logger"
	"github.com/oshokin/wellness-node/internal/version"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

var (
	errHashUnavailable = errors.New("hash function unavailable")
	errNoChecksum      = errors.New("checksum missing for file")
)

const (
	// ManifestFilename is the release manifest published next to the binaries.
	ManifestFilename = "wellness-node-release.yaml"

	// MarkerFilename marks that the updater is running right now to avoid parallel execution.
	MarkerFilename = "wellness-node-update-marker.bin"

	// DefaultFileMode is applied to installed binaries.
	DefaultFileMode os.FileMode = 0o755

	// DefaultChecksumFunction is used to calculate release file hashes.
	DefaultChecksumFunction crypto.Hash = crypto.SHA512

	baseNodeExecutable    = "wellness-node"
	baseCtlExecutable     = "wellness-ctl"
	baseUpdaterExecutable = "wellness-updater"

	// markerLifetime is the period after which a stale update marker is ignored.
	markerLifetime = 30 * time.Second

	// versionCommandTimeout bounds the local `wellness-node version` call.
	versionCommandTimeout = 10 * time.Second
)

// Manifest describes a published firmware release.
type Manifest struct {
	// Version is the semantic version of the release.
	Version string `yaml:"version"`
	// Files maps release file names to base64-encoded checksums.
	Files map[string]string `yaml:"files"`
	// Executable is started once the release is installed.
	Executable string `yaml:"executable"`
}

// NewManifest returns a manifest for the running build.
func NewManifest() *Manifest {
	return &Manifest{
		Version:    version.Short(),
		Files:      make(map[string]string, len(ReleaseFiles())),
		Executable: NodeExecutable(),
	}
}

// Checksum returns the decoded checksum of a release file.
func (m *Manifest) Checksum(fileName string) ([]byte, error) {
	encoded, ok := m.Files[fileName]
	if !ok {
		return nil, fmt.Errorf("%s: %w", fileName, errNoChecksum)
	}

	checksum, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode checksum of %s: %w", fileName, err)
	}

	return checksum, nil
}

// ReleaseFiles lists the binaries shipped in a release. Node settings are
// per device and never distributed.
func ReleaseFiles() []string {
	return []string{
		NodeExecutable(),
		executableName(baseCtlExecutable),
		UpdaterExecutable(),
	}
}

// NodeExecutable returns the node binary name for this platform.
func NodeExecutable() string {
	return executableName(baseNodeExecutable)
}

// UpdaterExecutable returns the updater binary name for this platform.
func UpdaterExecutable() string {
	return executableName(baseUpdaterExecutable)
}

// FileChecksum returns checksum bytes for a file using DefaultChecksumFunction.
func FileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err = hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// IsUpdaterRunningNow checks presence of a marker file and attempts recovery if it looks stale.
func IsUpdaterRunningNow(ctx context.Context) bool {
	fileInfo, err := os.Stat(MarkerFilename)

	switch {
	case errors.Is(err, os.ErrNotExist):
		return false
	case err != nil:
		logger.WarnKV(ctx, "Unable to read update marker", "error", err)
		return false
	case time.Since(fileInfo.ModTime()) <= markerLifetime:
		return true
	}

	logger.Info(ctx, "The update marker is too old, attempting cleanup")

	if err = terminateProcesses(ctx, UpdaterExecutable()); err != nil {
		return true
	}

	return os.Remove(MarkerFilename) != nil
}

// terminateProcesses kills every other process running one of the named executables.
func terminateProcesses(ctx context.Context, names ...string) error {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if _, found := wanted[process.Executable()]; !found {
			continue
		}

		runningProcess, err := os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Stopping process", "pid", process.Pid(), "executable", process.Executable())

		if err = runningProcess.Kill(); err != nil {
			return fmt.Errorf("kill %d: %w", process.Pid(), err)
		}
	}

	return nil
}

// executableName appends ".exe" on Windows.
func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}

	return base
}
