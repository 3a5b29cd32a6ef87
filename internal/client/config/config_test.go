package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("clinic", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerAddr)
	assert.Equal(t, time.Hour, c.SyncFrequency)
	assert.Equal(t, 50, c.SyncBatchSize)
	assert.Equal(t, 3, c.ResetPinSyncRetries)
	assert.Equal(t, 5, c.BruteForceLimit)
	assert.Equal(t, 20*time.Minute, c.BruteForceBlockDuration)
}

func TestLoadConfig_DefaultsAndDerivedPaths(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(newFlags(t, "-d", dir))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:50051", cfg.ServerAddr)
	assert.Equal(t, filepath.Join(dir, "clinic.db"), cfg.DatabasePath)
	assert.Equal(t, filepath.Join(dir, "files"), cfg.FilesDir)
}

func TestLoadConfig_NilFlagSet(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.SyncBatchSize)
}

func TestLoadConfig_Precedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "clinic.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server_addr: file:1
sync_frequency: 30m
sync_batch_size: 10
log_level: debug
`), 0o600))

	t.Setenv("CLINIC_SYNC_BATCH_SIZE", "20")
	t.Setenv("CLINIC_SERVER_ADDR", "env:1")

	cfg, err := LoadConfig(newFlags(t, "-c", file, "--server-addr", "flag:1"))
	require.NoError(t, err)

	assert.Equal(t, "flag:1", cfg.ServerAddr, "flag beats env")
	assert.Equal(t, 20, cfg.SyncBatchSize, "env beats file")
	assert.Equal(t, 30*time.Minute, cfg.SyncFrequency, "file beats default")
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_JSONFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "clinic.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"brute_force_limit": 7, "telemetry_bucket": "events"}`), 0o600))

	cfg, err := LoadConfig(newFlags(t, "--config="+file))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.BruteForceLimit)
	assert.Equal(t, "events", cfg.TelemetryBucket)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(newFlags(t, "-c", filepath.Join(t.TempDir(), "nope.yaml")))
	require.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(newFlags(t, "--sync-batch-size", "0"))
	require.ErrorContains(t, err, "sync_batch_size")
}
