package config

import (
	"fmt"

	"github.com/caasmo/batchlog/db"
)

func Validate(cfg *Config) error {
	if err := validateBatch(&cfg.Log.Batch); err != nil {
		return fmt.Errorf("batch logger config validation failed: %w", err)
	}
	if err := validateOps(&cfg.Log.Ops); err != nil {
		return fmt.Errorf("ops logger config validation failed: %w", err)
	}
	return nil
}

// validateBatch checks the Log.Batch section.
func validateBatch(batch *BatchLogger) error {
	if batch.Dir == "" {
		return fmt.Errorf("log directory (Dir) cannot be empty")
	}
	if !db.IsDriver(batch.Driver) {
		return fmt.Errorf("unknown driver '%s', expected one of %v", batch.Driver, db.Drivers)
	}
	if batch.Threshold < 1 {
		return fmt.Errorf("threshold must be at least 1, got %d", batch.Threshold)
	}
	if batch.FlushInterval.Duration < 0 {
		return fmt.Errorf("flush interval cannot be negative, got %s", batch.FlushInterval)
	}
	if batch.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("max consecutive failures cannot be negative, got %d", batch.MaxConsecutiveFailures)
	}
	return nil
}

func validateOps(ops *OpsLogger) error {
	switch ops.Format {
	case FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unknown format '%s', expected %q or %q", ops.Format, FormatText, FormatJSON)
	}
}
