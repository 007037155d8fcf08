package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, validate(cfg))
}

func TestLoadAppliesFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: /data/lib.db\n"), 0644))

	t.Setenv("MEDIALIB_DB_MAX_RETRIES", "7")

	m := NewManager()
	require.NoError(t, m.Load(path))

	cfg := m.Get()
	assert.Equal(t, "/data/lib.db", cfg.Database.Path)
	assert.Equal(t, 7, cfg.Database.MaxRetries)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Load(""))
	assert.Equal(t, "./medialib.db", m.Get().Database.Path)
	assert.Equal(t, 5*time.Second, m.Get().Database.BusyTimeout)
}

func TestWatcherFiresOnReload(t *testing.T) {
	m := NewManager()
	done := make(chan struct{})
	m.AddWatcher(func(old, new *Config) {
		close(done)
	})
	require.NoError(t, m.Load(""))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not fire")
	}
}

func TestApplyDerivedWorkerCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parser.DefaultWorkerCount = 0
	applyDerived(cfg)
	assert.Greater(t, cfg.Parser.DefaultWorkerCount, 0)
}
