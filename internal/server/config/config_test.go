package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Empty(t, c.DatabaseDSN)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, 24*time.Hour, c.AccessTokenValidityDuration)
	assert.Equal(t, "000000", c.OTP)
	assert.True(t, c.AutoApprove)
	assert.Equal(t, "zap", c.LogBackend)
}

func TestLoadConfig_UsesDefaults(t *testing.T) {
	c, err := LoadConfig(nil)
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, 24*time.Hour, c.AccessTokenValidityDuration)
}

func TestLoadConfig_FlagsIgnoreForeignArgs(t *testing.T) {
	c, err := LoadConfig([]string{"-test.v", "-a", ":6000", "--unknown=1", "-t", "15m", "--auto-approve=false"})
	require.NoError(t, err)

	assert.Equal(t, ":6000", c.EndpointAddrGRPC)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.False(t, c.AutoApprove)
}

func TestLoadConfig_Precedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
addr: ":7000"
secret_key: from-file
otp: "111111"
database_dsn: postgres://file
`), 0o600))

	t.Setenv("CLINICSRV_SECRET_KEY", "from-env")
	t.Setenv("CLINICSRV_OTP", "222222")

	c, err := LoadConfig([]string{"--config", file, "--otp", "333333"})
	require.NoError(t, err)

	assert.Equal(t, "333333", c.OTP, "flag beats env")
	assert.Equal(t, "from-env", c.SecretKey, "env beats file")
	assert.Equal(t, ":7000", c.EndpointAddrGRPC, "file beats default")
	assert.Equal(t, "postgres://file", c.DatabaseDSN)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig([]string{"--log-backend", "stdout"})
	require.ErrorContains(t, err, "log_backend")

	_, err = LoadConfig([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}
