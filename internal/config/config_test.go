// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perigee-io/eofetch/internal/orbit"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, orbit.Precise, cfg.OrbitKind)
	assert.Equal(t, ".", cfg.SaveDir)
	assert.NotEmpty(t, cfg.CacheDir)
	assert.Equal(t, 3, cfg.MaxWorkers)
	assert.False(t, cfg.ForceASF)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eofetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
save_dir: /data/orbits
orbit_kind: restituted
max_workers: 8
listen: ":9090"
read_timeout: 5s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/orbits", cfg.SaveDir)
	assert.Equal(t, orbit.Restituted, cfg.OrbitKind)
	assert.Equal(t, 8, cfg.MaxWorkers)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 100, cfg.RateLimit, "unset keys keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eofetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("save_dir: /from/file\n"), 0o644))

	t.Setenv("EOFETCH_SAVE_DIR", "/from/env")
	t.Setenv("EOFETCH_FORCE_ASF", "yes")
	t.Setenv("EOFETCH_MAX_WORKERS", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.SaveDir)
	assert.True(t, cfg.ForceASF)
	assert.Equal(t, 5, cfg.MaxWorkers)
}

func TestLoadRejectsBadKind(t *testing.T) {
	t.Setenv("EOFETCH_ORBIT_KIND", "approximate")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orbit_kind")
}

func TestLoadRejectsBadWorkers(t *testing.T) {
	t.Setenv("EOFETCH_MAX_WORKERS", "0")
	_, err := Load("")
	require.Error(t, err)
}

func TestParseHelpersFallBack(t *testing.T) {
	t.Setenv("EOFETCH_TEST_INT", "not-a-number")
	assert.Equal(t, 7, ParseInt("EOFETCH_TEST_INT", 7))

	t.Setenv("EOFETCH_TEST_BOOL", "maybe")
	assert.True(t, ParseBool("EOFETCH_TEST_BOOL", true))

	t.Setenv("EOFETCH_TEST_DUR", "fast")
	assert.Equal(t, time.Minute, ParseDuration("EOFETCH_TEST_DUR", time.Minute))

	assert.Equal(t, "fallback", ParseString("EOFETCH_TEST_UNSET", "fallback"))
}

func TestHolderReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eofetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_workers: 2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	h := NewHolder(cfg, path)
	assert.Equal(t, 2, h.Get().MaxWorkers)

	require.NoError(t, os.WriteFile(path, []byte("max_workers: 6\n"), 0o644))
	require.NoError(t, h.Reload())
	assert.Equal(t, 6, h.Get().MaxWorkers)
}

func TestHolderReloadKeepsOldOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eofetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_workers: 2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	h := NewHolder(cfg, path)

	require.NoError(t, os.WriteFile(path, []byte("max_workers: 0\n"), 0o644))
	require.Error(t, h.Reload())
	assert.Equal(t, 2, h.Get().MaxWorkers, "invalid reload keeps previous config")
}
