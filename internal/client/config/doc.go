// Package config loads runtime configuration for the clinic CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file (JSON, YAML or TOML) selected with -c/--config.
//  3. Environment variables prefixed with CLINIC_, e.g. CLINIC_SERVER_ADDR.
//  4. Command-line flags registered by RegisterFlags.
//
// Later sources override earlier ones. Durations accept Go syntax ("90s",
// "1h").
//
//	server_addr: 127.0.0.1:50051
//	data_dir: /var/lib/clinic
//	sync_frequency: 1h
//	sync_batch_size: 50
//	telemetry_bucket: clinic-analytics
package config
