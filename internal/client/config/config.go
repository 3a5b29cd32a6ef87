package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "CLINIC"

// Config holds runtime settings for the clinic CLI.
type Config struct {
	ServerAddr string `mapstructure:"server_addr"`
	// DataDir holds the database and private files unless DatabasePath or
	// FilesDir point elsewhere.
	DataDir      string `mapstructure:"data_dir"`
	DatabasePath string `mapstructure:"database_path"`
	FilesDir     string `mapstructure:"files_dir"`

	SyncFrequency       time.Duration `mapstructure:"sync_frequency"`
	SyncBatchSize       int           `mapstructure:"sync_batch_size"`
	ResetPinSyncRetries int           `mapstructure:"reset_pin_sync_retries"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`

	BruteForceLimit         int           `mapstructure:"brute_force_limit"`
	BruteForceBlockDuration time.Duration `mapstructure:"brute_force_block_duration"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// Telemetry is uploaded to S3 only when a bucket is set.
	TelemetryBucket       string `mapstructure:"telemetry_bucket"`
	TelemetryRegion       string `mapstructure:"telemetry_region"`
	TelemetryBaseEndpoint string `mapstructure:"telemetry_base_endpoint"`
	TelemetryAccessKey    string `mapstructure:"telemetry_access_key"`
	TelemetrySecretKey    string `mapstructure:"telemetry_secret_key"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "127.0.0.1:50051"
	c.DataDir = defaultDataDir()
	c.SyncFrequency = time.Hour
	c.SyncBatchSize = 50
	c.ResetPinSyncRetries = 3
	c.RetryDelay = 2 * time.Second
	c.RequestTimeout = 30 * time.Second
	c.BruteForceLimit = 5
	c.BruteForceBlockDuration = 20 * time.Minute
	c.LogLevel = "info"
	c.TelemetryRegion = "us-east-1"
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clinicsync"
	}
	return filepath.Join(home, ".clinicsync")
}

// LoadConfig builds a Config from defaults, the optional config file, the
// environment and fs, in that order. fs may be nil.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	v := viper.New()
	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := bindFlags(v, fs); err != nil {
			return nil, err
		}
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolvePaths() {
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "clinic.db")
	}
	if c.FilesDir == "" {
		c.FilesDir = filepath.Join(c.DataDir, "files")
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.ServerAddr == "" {
		errs = append(errs, errors.New("server_addr must not be empty"))
	}
	if c.SyncBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("sync_batch_size must be positive, got %d", c.SyncBatchSize))
	}
	if c.SyncFrequency <= 0 {
		errs = append(errs, fmt.Errorf("sync_frequency must be positive, got %s", c.SyncFrequency))
	}
	if c.ResetPinSyncRetries < 0 {
		errs = append(errs, fmt.Errorf("reset_pin_sync_retries must not be negative, got %d", c.ResetPinSyncRetries))
	}
	if c.BruteForceLimit <= 0 {
		errs = append(errs, fmt.Errorf("brute_force_limit must be positive, got %d", c.BruteForceLimit))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("config", "")
	v.SetDefault("server_addr", c.ServerAddr)
	v.SetDefault("data_dir", c.DataDir)
	v.SetDefault("database_path", c.DatabasePath)
	v.SetDefault("files_dir", c.FilesDir)
	v.SetDefault("sync_frequency", c.SyncFrequency)
	v.SetDefault("sync_batch_size", c.SyncBatchSize)
	v.SetDefault("reset_pin_sync_retries", c.ResetPinSyncRetries)
	v.SetDefault("retry_delay", c.RetryDelay)
	v.SetDefault("request_timeout", c.RequestTimeout)
	v.SetDefault("brute_force_limit", c.BruteForceLimit)
	v.SetDefault("brute_force_block_duration", c.BruteForceBlockDuration)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_file", c.LogFile)
	v.SetDefault("telemetry_bucket", c.TelemetryBucket)
	v.SetDefault("telemetry_region", c.TelemetryRegion)
	v.SetDefault("telemetry_base_endpoint", c.TelemetryBaseEndpoint)
	v.SetDefault("telemetry_access_key", c.TelemetryAccessKey)
	v.SetDefault("telemetry_secret_key", c.TelemetrySecretKey)
}
