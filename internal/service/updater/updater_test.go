package updater

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/wellness-node/internal/config"
)

// TestParseVersionFromOutput covers the version subcommand format.
func TestParseVersionFromOutput(t *testing.T) {
	t.Parallel()

	v, err := parseVersionFromOutput("version: 1.2.3, commit: abc123, built at: now\n")
	require.NoError(t, err)
	require.Equal(t, "1.2.3", v)

	for _, bad := range []string{"", "1.2.3", "version: , commit: x"} {
		_, err = parseVersionFromOutput(bad)
		require.ErrorIs(t, err, errInvalidVersionOutput, bad)
	}
}

// TestManifest_Checksum decodes stored checksums.
func TestManifest_Checksum(t *testing.T) {
	t.Parallel()

	sum := sha512.Sum512([]byte("firmware"))
	m := NewManifest()
	m.Files["wellness-node"] = base64.StdEncoding.EncodeToString(sum[:])
	m.Files["broken"] = "%%%"

	got, err := m.Checksum("wellness-node")
	require.NoError(t, err)
	require.Equal(t, sum[:], got)

	_, err = m.Checksum("missing")
	require.ErrorIs(t, err, errNoChecksum)

	_, err = m.Checksum("broken")
	require.Error(t, err)

	require.Equal(t, NodeExecutable(), m.Executable)
	require.Len(t, ReleaseFiles(), 3)
}

// TestFileChecksum hashes file contents with SHA-512.
func TestFileChecksum(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(p, []byte("firmware"), 0o600))

	got, err := FileChecksum(p)
	require.NoError(t, err)

	want := sha512.Sum512([]byte("firmware"))
	require.Equal(t, want[:], got)

	_, err = FileChecksum(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestRunner_FetchAndCompare serves a manifest and checks stale file detection.
func TestRunner_FetchAndCompare(t *testing.T) {
	t.Chdir(t.TempDir())

	current := []byte("current")
	outdated := []byte("outdated")

	require.NoError(t, os.WriteFile("wellness-ctl", current, 0o600))
	require.NoError(t, os.WriteFile("wellness-updater", outdated, 0o600))

	currentSum := sha512.Sum512(current)
	newSum := sha512.Sum512([]byte("new"))

	manifest := &Manifest{
		Version: "2.0.0",
		Files: map[string]string{
			"wellness-ctl":     base64.StdEncoding.EncodeToString(currentSum[:]),
			"wellness-updater": base64.StdEncoding.EncodeToString(newSum[:]),
			"wellness-node":    base64.StdEncoding.EncodeToString(newSum[:]),
		},
		Executable: "wellness-node",
	}

	data, err := yaml.Marshal(manifest)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/releases/"+ManifestFilename, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(data)
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	cfg := config.Default()
	cfg.UpdateFolder = ts.URL + "/releases/"

	u := &runner{opts: new(Options), cfg: cfg, client: ts.Client(), downloadedFiles: map[string]string{}}

	require.NoError(t, u.fetchManifest(context.Background()))
	require.Equal(t, "2.0.0", u.manifest.Version)

	require.NoError(t, u.findStaleFiles())
	require.ElementsMatch(t, []string{"wellness-updater", "wellness-node"}, u.staleFiles)

	u.localVersion = "2.0.0"
	require.True(t, u.updateNeeded(context.Background()))

	u.staleFiles = nil
	require.False(t, u.updateNeeded(context.Background()))

	u.localVersion = ""
	require.True(t, u.updateNeeded(context.Background()))

	// Missing files on the server are reported with their status.
	cfg.UpdateFolder = ts.URL + "/nowhere/"
	require.ErrorIs(t, u.fetchManifest(context.Background()), errBadHTTPStatus)
}

// TestIsUpdaterRunningNow honors a fresh marker.
func TestIsUpdaterRunningNow(t *testing.T) {
	t.Chdir(t.TempDir())

	require.False(t, IsUpdaterRunningNow(context.Background()))

	require.NoError(t, os.WriteFile(MarkerFilename, nil, 0o600))
	require.True(t, IsUpdaterRunningNow(context.Background()))
}
