package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Sources, again.Sources)
	assert.Equal(t, 3, again.WindowMonths)
}

func TestLoad_PartialConfigIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
listen: "0.0.0.0:9000"
sources:
  updates: "https://example.com/updates.json"
colors:
  end: "#000000"
basic_auth:
  username: admin
  password: ""
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "Asia/Seoul", cfg.Timezone)
	assert.Equal(t, "data/games.json", cfg.Sources.Games)
	assert.Equal(t, "https://example.com/updates.json", cfg.Sources.Updates)
	assert.Equal(t, "#000000", cfg.Colors.End)
	assert.Equal(t, "#0d6efd", cfg.Colors.Update)
	assert.Equal(t, []string{"nikke", "ww", "genshin", "star_rail", "zzz", "switch", "steam"}, cfg.Priority)
	assert.Nil(t, cfg.BasicAuth, "incomplete credentials disable auth")
	assert.True(t, cfg.Watching(), "omitted watch_files defaults to on")
}

func TestLoad_WatchFiles(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		want bool
	}{
		{"omitted", "listen: \"127.0.0.1:9000\"\n", true},
		{"explicit true", "watch_files: true\n", true},
		{"explicit false", "watch_files: false\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yml), 0o600))

			cfg, err := Load(path)
			require.NoError(t, err)
			require.NotNil(t, cfg.WatchFiles)
			assert.Equal(t, tt.want, *cfg.WatchFiles)
			assert.Equal(t, tt.want, cfg.Watching())
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{"bad color", "colors:\n  update: blue\n"},
		{"bad log level", "log:\n  level: chatty\n"},
		{"window too large", "window_months: 500\n"},
		{"bad listen", "listen: \"not an address\"\n"},
		{"blank cors origin", "cors_origins:\n  - \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yml), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "config: parse")
}

func TestSave_EmptyPath(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
}
