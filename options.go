package batchlog

import (
	"io"
	"log/slog"
	"time"

	"github.com/caasmo/batchlog/config"
)

type Option func(*initializer)

// WithConfigProvider sets the configuration the logger is built from.
func WithConfigProvider(p *config.Provider) Option {
	return func(i *initializer) {
		if p == nil {
			panic("config provider cannot be nil")
		}
		i.provider = p
	}
}

// WithThreshold sets the number of rows per commit.
func WithThreshold(n int) Option {
	return func(i *initializer) {
		i.threshold = &n
	}
}

// WithDriver selects the store driver by name, see AvailableDrivers.
func WithDriver(name string) Option {
	return func(i *initializer) {
		i.driver = name
	}
}

// WithLevel sets the minimum level of the handler. Without it the level is
// read from the config provider on every record.
func WithLevel(level slog.Leveler) Option {
	return func(i *initializer) {
		i.level = level
	}
}

// WithFlushInterval commits pending rows every d. Zero disables the daemon.
func WithFlushInterval(d time.Duration) Option {
	return func(i *initializer) {
		i.flushInterval = &d
	}
}

// WithOpLogger sets the logger the module reports its own operation on.
func WithOpLogger(l *slog.Logger) Option {
	return func(i *initializer) {
		i.opLogger = l
	}
}

// WithStdout sets where the store path is printed.
func WithStdout(w io.Writer) Option {
	return func(i *initializer) {
		i.stdout = w
	}
}

// WithDefault installs the batch logger with slog.SetDefault.
func WithDefault() Option {
	return func(i *initializer) {
		i.setDefault = true
	}
}
