package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("ner:\n  score_threshold: 0.9\n"), 0644))

	w, err := NewWatcherForPath(path, 20*time.Millisecond)
	require.NoError(t, err)

	reloaded := make(chan *Config, 4)
	w.OnReload(func(cfg *Config) { reloaded <- cfg })

	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("ner:\n  score_threshold: 0.75\n"), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 0.75, cfg.NER.ScoreThreshold)
	case <-time.After(3 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestWatcher_IgnoresInvalidChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	w, err := NewWatcherForPath(path, 20*time.Millisecond)
	require.NoError(t, err)

	reloaded := make(chan *Config, 4)
	w.OnReload(func(cfg *Config) { reloaded <- cfg })

	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("ner:\n  score_threshold: 7\n"), 0644))

	select {
	case <-reloaded:
		t.Fatal("invalid config must not be applied")
	case <-time.After(300 * time.Millisecond):
	}
}
