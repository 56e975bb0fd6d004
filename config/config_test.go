package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, 20, cfg.Feed.Limit)
	assert.Equal(t, 100000.0, cfg.Feed.HighValueClient)
	assert.Equal(t, 200000.0, cfg.Feed.HighValueOpportunity)
	assert.Equal(t, "none", cfg.Workflow.Compensation)
	assert.Contains(t, cfg.DBPath, AppName)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"backend": "charm",
		"feed": {"limit": 50, "high_value_client": 75000},
		"workflow": {"compensation": "rollback"}
	}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendCharm, cfg.Backend)
	assert.Equal(t, 50, cfg.Feed.Limit)
	assert.Equal(t, 75000.0, cfg.Feed.HighValueClient)
	// untouched keys keep defaults
	assert.Equal(t, 200000.0, cfg.Feed.HighValueOpportunity)
	assert.Equal(t, "rollback", cfg.Workflow.Compensation)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"feed": {"limit": 50}}`), 0600))

	t.Setenv("CRMDESK_FEED_LIMIT", "5")
	t.Setenv("CRMDESK_ALLOW_RECONVERSION", "true")
	t.Setenv("CRMDESK_HIGH_VALUE_OPPORTUNITY", "1e6")
	t.Setenv("CRMDESK_DB_PATH", "/tmp/other.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Feed.Limit)
	assert.True(t, cfg.Workflow.AllowReconversion)
	assert.Equal(t, 1e6, cfg.Feed.HighValueOpportunity)
	assert.Equal(t, "/tmp/other.db", cfg.DBPath)
}

func TestDotEnvIsRead(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CRMDESK_LOG_LEVEL=debug\n"), 0600))
	t.Cleanup(func() { _ = os.Unsetenv("CRMDESK_LOG_LEVEL") })

	cfg, err := Load(filepath.Join(dir, "none.json"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	missing := filepath.Join(t.TempDir(), "none.json")

	t.Setenv("CRMDESK_FEED_LIMIT", "lots")
	_, err := Load(missing)
	assert.Error(t, err)

	t.Setenv("CRMDESK_FEED_LIMIT", "")
	t.Setenv("CRMDESK_BACKEND", "postgres")
	_, err = Load(missing)
	assert.Error(t, err)

	t.Setenv("CRMDESK_BACKEND", "")
	t.Setenv("CRMDESK_COMPENSATION", "retry")
	_, err = Load(missing)
	assert.Error(t, err)
}

func TestValidateRejectsZeroFeedSettings(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Feed.HighValueClient = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Feed.HighValueOpportunity = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Feed.Limit = 0
	assert.Error(t, cfg.Validate())

	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"feed": {"high_value_client": 0}}`), 0600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestMalformedFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.Server.Addr = ":9999"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", loaded.Server.Addr)
}
