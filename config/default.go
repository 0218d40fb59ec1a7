package config

import (
	"log/slog"

	"github.com/caasmo/batchlog/db"
)

// NewDefaultConfig creates a new Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Log: Log{
			Batch: BatchLogger{
				Dir:                    ".",
				Driver:                 db.DriverZombiezen,
				Threshold:              100,
				Level:                  LogLevel{Level: slog.LevelInfo},
				MaxConsecutiveFailures: 10,
			},
			Ops: OpsLogger{
				Format: FormatText,
				Level:  LogLevel{Level: slog.LevelInfo},
			},
		},
	}
}
