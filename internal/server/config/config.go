// Package config handles configuration for the reference sync server:
// defaults, an optional config file, CLINICSRV_* environment variables and
// command-line flags, later sources winning.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/flagx"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "CLINICSRV"

// Config holds runtime settings for the sync server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the gRPC endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx); empty keeps everything in memory.
//   - SecretKey: HMAC secret for signing access tokens (HS256). Do not use
//     the default outside development.
//   - AccessTokenValidityDuration: access token lifetime.
//   - OTP: the one-time password every login accepts; there is no SMS
//     gateway behind the reference server.
//   - AutoApprove: new users and PIN resets are approved for syncing
//     without an admin.
//   - AdminToken: enables the Approve method for callers presenting it.
//   - LogBackend: "zap" or "slog".
type Config struct {
	EndpointAddrGRPC            string        `mapstructure:"addr"`
	DatabaseDSN                 string        `mapstructure:"database_dsn"`
	SecretKey                   string        `mapstructure:"secret_key"`
	AccessTokenValidityDuration time.Duration `mapstructure:"access_token_validity"`
	OTP                         string        `mapstructure:"otp"`
	AutoApprove                 bool          `mapstructure:"auto_approve"`
	AdminToken                  string        `mapstructure:"admin_token"`
	LogLevel                    string        `mapstructure:"log_level"`
	LogBackend                  string        `mapstructure:"log_backend"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 24 * time.Hour
	c.OTP = "000000"
	c.AutoApprove = true
	c.LogLevel = "info"
	c.LogBackend = "zap"
}

// LoadConfig builds a Config from defaults, the config file named by
// -c/--config, the environment and the flags found in args. Arguments the
// server does not define are ignored.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	registerFlags(fs, cfg)
	if err := flagx.ParseKnown(fs, args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	setDefaults(v, cfg)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := bindFlags(v, fs); err != nil {
		return nil, err
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
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.EndpointAddrGRPC == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret_key must not be empty"))
	}
	if c.AccessTokenValidityDuration <= 0 {
		errs = append(errs, fmt.Errorf("access_token_validity must be positive, got %s", c.AccessTokenValidityDuration))
	}
	switch c.LogBackend {
	case "zap", "slog":
	default:
		errs = append(errs, fmt.Errorf("log_backend must be zap or slog, got %q", c.LogBackend))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("config", "")
	v.SetDefault("addr", c.EndpointAddrGRPC)
	v.SetDefault("database_dsn", c.DatabaseDSN)
	v.SetDefault("secret_key", c.SecretKey)
	v.SetDefault("access_token_validity", c.AccessTokenValidityDuration)
	v.SetDefault("otp", c.OTP)
	v.SetDefault("auto_approve", c.AutoApprove)
	v.SetDefault("admin_token", c.AdminToken)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_backend", c.LogBackend)
}
