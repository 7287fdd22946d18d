package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `project: test-project
version: 1
database:
  dsn: sqlite://./factionwatch.db
feed:
  url: wss://relay.example.org/feed
  receive_timeout: 2s
factions:
  - Canonn
  - Sirius Corporation
goals:
  default: control
`

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		cfg, err := LoadProjectConfig(writeTempConfig(t, validConfig))
		require.NoError(t, err)
		assert.Equal(t, "test-project", cfg.Project)
		assert.Equal(t, []string{"Canonn", "Sirius Corporation"}, cfg.Factions)
		assert.Equal(t, 2*time.Second, cfg.Feed.ReceiveTimeout)
	})

	t.Run("defaults applied", func(t *testing.T) {
		cfg, err := LoadProjectConfig(writeTempConfig(t, validConfig))
		require.NoError(t, err)
		assert.Equal(t, DefaultReconnectInterval, cfg.Feed.ReconnectInterval)
		assert.Equal(t, DefaultWorkers, cfg.Feed.Workers)
		assert.Equal(t, DefaultStaleAfter, cfg.Goals.StaleAfter)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)
	})

	cases := []struct {
		name     string
		contents string
	}{
		{name: "missing project name", contents: "version: 1\ndatabase:\n  dsn: sqlite://x.db\n"},
		{name: "unsupported version", contents: "project: test\nversion: 2\ndatabase:\n  dsn: sqlite://x.db\n"},
		{name: "missing dsn", contents: "project: test\nversion: 1\n"},
		{name: "unknown dsn scheme", contents: "project: test\nversion: 1\ndatabase:\n  dsn: mysql://x\n"},
		{name: "duplicate factions", contents: "project: test\nversion: 1\ndatabase:\n  dsn: sqlite://x.db\nfactions: [Canonn, canonn]\n"},
		{name: "empty faction name", contents: "project: test\nversion: 1\ndatabase:\n  dsn: sqlite://x.db\nfactions: ['']\n"},
		{name: "unknown default goal", contents: "project: test\nversion: 1\ndatabase:\n  dsn: sqlite://x.db\ngoals:\n  default: conquer\n"},
		{name: "bad log level", contents: "project: test\nversion: 1\ndatabase:\n  dsn: sqlite://x.db\nlog:\n  level: loud\n"},
		{name: "negative workers", contents: "project: test\nversion: 1\ndatabase:\n  dsn: sqlite://x.db\nfeed:\n  workers: -1\n"},
		{name: "invalid yaml", contents: "project: [\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadProjectConfig(writeTempConfig(t, tc.contents))
			require.Error(t, err)
		})
	}

	t.Run("file not found", func(t *testing.T) {
		_, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}
