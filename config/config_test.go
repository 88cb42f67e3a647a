package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	require.NoError(t, err)
	require.Equal(t, Default(), c)
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "katcpd.yml")
	yamlText := `
listen_addr: "0.0.0.0:9000"
log_level: debug
sensors:
  - name: voltage
    description: bus voltage
    units: V
    type: float
`
	require.NoError(t, os.WriteFile(path, []byte(yamlText), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", c.ListenAddr)
	require.Equal(t, "debug", c.LogLevel)
	require.Equal(t, Default().LibraryName, c.LibraryName) // untouched default survives the overlay
	require.Len(t, c.Sensors, 1)
	require.Equal(t, "voltage", c.Sensors[0].Name)
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "katcpd.yml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o644))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	c, err := w.Current()
	require.NoError(t, err)
	require.Equal(t, "info", c.LogLevel)

	changed := make(chan Config, 1)
	errs := make(chan error, 1)
	require.NoError(t, w.Start(func(c Config) { changed <- c }, func(err error) { errs <- err }))

	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o644))

	select {
	case c := <-changed:
		require.Equal(t, "debug", c.LogLevel)
	case err := <-errs:
		t.Fatalf("watch reported error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
