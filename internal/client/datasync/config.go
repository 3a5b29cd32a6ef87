package datasync

import (
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/common"
)

// Config tunes background syncing.
type Config struct {
	Frequency time.Duration
	BatchSize int
}

func DefaultConfig() Config {
	return Config{Frequency: time.Hour, BatchSize: common.DefaultPullBatchSize}
}
