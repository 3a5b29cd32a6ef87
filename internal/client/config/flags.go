package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RegisterFlags adds the configuration flags to fs, e.g. the persistent
// flags of the root command.
//
//	-c, --config string        path to a config file
//	-a, --server-addr string   address and port of the sync server
//	-d, --data-dir string      directory for the database and private files
//	    --sync-frequency       background sync period
//	    --sync-batch-size      records per pull page
//	    --log-level            debug, info, warn or error
//	    --log-file             rotate logs into this file instead of stderr
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP("config", "c", "", "path to a config file (json, yaml or toml)")
	fs.StringP("server-addr", "a", d.ServerAddr, "address and port of the sync server")
	fs.StringP("data-dir", "d", d.DataDir, "directory for the database and private files")
	fs.Duration("sync-frequency", d.SyncFrequency, "background sync period")
	fs.Int("sync-batch-size", d.SyncBatchSize, "records per pull page")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
	fs.String("log-file", d.LogFile, "write logs to this file, rotated by size")
}

// bindFlags maps every flag of fs that names a config key onto v.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
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
