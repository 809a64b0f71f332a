package packager

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/wellness-node/internal/config"
	"github.com/oshokin/wellness-node/internal/service/updater"
)

// TestRun_WritesManifest hashes release binaries and stores the update folder.
func TestRun_WritesManifest(t *testing.T) {
	t.Chdir(t.TempDir())

	releaseDir := t.TempDir()
	for _, name := range updater.ReleaseFiles() {
		require.NoError(t, os.WriteFile(filepath.Join(releaseDir, name), []byte(name), 0o600))
	}

	cfgPath := config.DefaultConfigFilename
	existing := config.Default()
	existing.NodeID = 7
	require.NoError(t, config.Save(cfgPath, existing))

	err := Run(context.Background(), &Options{
		ConfigPath:   cfgPath,
		UpdateFolder: "https://releases.example.com/wellness/",
		ReleaseDir:   releaseDir,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(releaseDir, updater.ManifestFilename))
	require.NoError(t, err)

	var manifest updater.Manifest
	require.NoError(t, yaml.Unmarshal(data, &manifest))
	require.Len(t, manifest.Files, len(updater.ReleaseFiles()))

	sum := sha512.Sum512([]byte(updater.NodeExecutable()))
	require.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), manifest.Files[updater.NodeExecutable()])

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.NodeID)
	require.Equal(t, "https://releases.example.com/wellness/", cfg.UpdateFolder)
}

// TestRun_Validation rejects missing inputs and missing binaries.
func TestRun_Validation(t *testing.T) {
	t.Chdir(t.TempDir())

	require.ErrorIs(t, Run(context.Background(), new(Options)), errUpdateFolderRequired)

	err := Run(context.Background(), &Options{
		ConfigPath:   config.DefaultConfigFilename,
		UpdateFolder: "https://releases.example.com/",
		ReleaseDir:   t.TempDir(),
	})
	require.ErrorIs(t, err, os.ErrNotExist)
}
