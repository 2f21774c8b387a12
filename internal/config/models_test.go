package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wincap", "config.yaml")
	m, err := NewManager(path)
	require.NoError(t, err)
	return m
}

func TestNewManager_CreatesDefaults(t *testing.T) {
	m := newTestManager(t)

	_, err := os.Stat(m.GetConfigPath())
	require.NoError(t, err, "default config should be written")

	cfg := m.Get()
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, BackendAuto, cfg.Windows.Backend)
	assert.Equal(t, 40, cfg.Windows.MinWidth)
	assert.Equal(t, 0.5, cfg.Thumbnails.Scale)
	assert.Equal(t, 200, cfg.Thumbnails.FullSizeMax)
	assert.Equal(t, 30, cfg.Encoder.FPS)
}

func TestNewManager_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("encoder:\n  fps: 60\n"), 0644))

	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	assert.Equal(t, 60, cfg.Encoder.FPS)
	assert.Equal(t, "libx264", cfg.Encoder.Codec)
	assert.Equal(t, ThumbnailPNG, cfg.Thumbnails.Format)
}

func TestNewManager_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("windows:\n  backend: wayland\n"), 0644))

	_, err := NewManager(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "windows.backend")
}

func TestGet_ReturnsCopy(t *testing.T) {
	m := newTestManager(t)

	cfg := m.Get()
	cfg.Windows.ExcludedClasses[0] = "mutated"
	cfg.ServerPort = 1

	fresh := m.Get()
	assert.NotEqual(t, "mutated", fresh.Windows.ExcludedClasses[0])
	assert.Equal(t, 8080, fresh.ServerPort)
}

func TestSetValue(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.SetValue("encoder.fps", "24"))
	require.NoError(t, m.SetValue("windows.excluded_classes", "[foo, bar]"))
	require.NoError(t, m.SetValue("log_level", "debug"))

	v, err := m.GetValue("encoder.fps")
	require.NoError(t, err)
	assert.Equal(t, 24, v)

	reloaded, err := NewManager(m.GetConfigPath())
	require.NoError(t, err)
	cfg := reloaded.Get()
	assert.Equal(t, 24, cfg.Encoder.FPS)
	assert.Equal(t, []string{"foo", "bar"}, cfg.Windows.ExcludedClasses)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestSetValue_Errors(t *testing.T) {
	m := newTestManager(t)

	assert.Error(t, m.SetValue("encoder.nope", "1"))
	assert.Error(t, m.SetValue("thumbnails.format", "gif"))
	assert.Error(t, m.SetValue("log_level", "loud"))

	_, err := m.GetValue("missing.key")
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	m := newTestManager(t)

	changed := make(chan *Config, 1)
	m.OnConfigChange(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	require.NoError(t, m.Watch())
	defer m.StopWatching()

	require.NoError(t, os.WriteFile(m.GetConfigPath(), []byte("server_port: 9191\n"), 0644))

	select {
	case cfg := <-changed:
		assert.Equal(t, 9191, cfg.ServerPort)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
}

func TestDefaults_LoopbackAndOutputDir(t *testing.T) {
	m := newTestManager(t)
	cfg := m.Get()
	assert.Equal(t, "127.0.0.1", cfg.ServerHost)
	assert.Empty(t, cfg.Encoder.OutputDir)

	t.Setenv("HOME", "/home/tester")
	dir, err := cfg.Encoder.ResolveOutputDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", "Videos", "wincap"), dir)

	require.NoError(t, m.SetValue("encoder.output_dir", "/srv/recordings"))
	dir, err = m.Get().Encoder.ResolveOutputDir()
	require.NoError(t, err)
	assert.Equal(t, "/srv/recordings", dir)
}
