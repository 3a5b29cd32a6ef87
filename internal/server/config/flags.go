package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// registerFlags defines the server flags on fs.
//
//	-c, --config string                 path to a config file
//	-a, --addr string                   gRPC bind address (e.g. ":50051")
//	-d, --database-dsn string           PostgreSQL DSN, empty for in-memory
//	-s, --secret-key string             JWT HMAC secret key
//	-t, --access-token-validity dur     access token lifetime
//	    --otp string                    OTP accepted by Login
//	    --auto-approve                  approve users without an admin
//	    --admin-token string            token required by Approve
//	    --log-level string              debug, info, warn or error
//	    --log-backend string            zap or slog
func registerFlags(fs *pflag.FlagSet, d *Config) {
	fs.StringP("config", "c", "", "path to a config file (json, yaml or toml)")
	fs.StringP("addr", "a", d.EndpointAddrGRPC, "address and port to run server")
	fs.StringP("database-dsn", "d", d.DatabaseDSN, "database DSN, empty for the in-memory store")
	fs.StringP("secret-key", "s", d.SecretKey, "secret key")
	fs.DurationP("access-token-validity", "t", d.AccessTokenValidityDuration, "access token validity")
	fs.String("otp", d.OTP, "one-time password accepted by login")
	fs.Bool("auto-approve", d.AutoApprove, "approve new users for syncing")
	fs.String("admin-token", d.AdminToken, "token required to approve users")
	fs.String("log-level", d.LogLevel, "log level")
	fs.String("log-backend", d.LogBackend, "zap or slog")
}

// bindFlags binds only the flags set on the command line, so environment
// values are not shadowed by flag defaults.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		if bErr := v.BindPFlag(key, f); bErr != nil {
			err = fmt.Errorf("bind flag %s: %w", f.Name, bErr)
		}
	})
	return err
}
