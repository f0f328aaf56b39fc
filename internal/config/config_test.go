package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/mc.db")
	assert.Equal(t, "/tmp/mc.db", cfg.Database.Path)
	assert.Equal(t, 20, cfg.Search.Limit)
	assert.Equal(t, 50, cfg.Search.RecentLimit)
	assert.Equal(t, 300*time.Millisecond, cfg.Search.Debounce.Std())
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/mc.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	require.NoError(t, err)
	assert.Equal(t, defaults, cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[database]
path = "/custom/mc.db"

[search]
limit = 10
debounce = "150ms"

[logging]
level = "debug"
format = "json"

[indexer]
roots = ["/notes"]
ignore = ["**/drafts/**"]
`)
	cfg, err := Load(path, Default("/tmp/default.db"))
	require.NoError(t, err)
	assert.Equal(t, "/custom/mc.db", cfg.Database.Path)
	assert.Equal(t, 10, cfg.Search.Limit)
	assert.Equal(t, 50, cfg.Search.RecentLimit, "unset keys keep defaults")
	assert.Equal(t, 150*time.Millisecond, cfg.Search.Debounce.Std())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, []string{"/notes"}, cfg.Indexer.Roots)
	assert.Equal(t, []string{"**/drafts/**"}, cfg.Indexer.Ignore)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"level":    "[logging]\nlevel = \"loud\"\n",
		"format":   "[logging]\nformat = \"xml\"\n",
		"limit":    "[search]\nlimit = 0\n",
		"duration": "[search]\ndebounce = \"soon\"\n",
		"glob":     "[indexer]\ninclude = [\"[\"]\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content), Default("/tmp/mc.db"))
			assert.Error(t, err)
		})
	}
}

func TestResolvePrecedence(t *testing.T) {
	path := writeConfig(t, "[database]\npath = \"/from/file.db\"\n")

	t.Setenv(EnvDB, "")
	cfg, err := Resolve(path, "")
	require.NoError(t, err)
	assert.Equal(t, "/from/file.db", cfg.Database.Path)

	t.Setenv(EnvDB, "/from/env.db")
	cfg, err = Resolve(path, "")
	require.NoError(t, err)
	assert.Equal(t, "/from/env.db", cfg.Database.Path)

	cfg, err = Resolve(path, "/from/flag.db")
	require.NoError(t, err)
	assert.Equal(t, "/from/flag.db", cfg.Database.Path)
}

func TestResolvePathUsesEnv(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/mc.toml")
	assert.Equal(t, "/etc/mc.toml", ResolvePath(""))
	assert.Equal(t, "/flag.toml", ResolvePath("/flag.toml"))
}
