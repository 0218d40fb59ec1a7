package batchlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caasmo/batchlog/config"
	"github.com/caasmo/batchlog/db"
	blog "github.com/caasmo/batchlog/log"
	"github.com/caasmo/batchlog/migrations"
)

// Batchlog owns a log store, the sink serializing writes into it and the
// slog handler in front of the sink.
type Batchlog struct {
	path     string
	sink     *blog.Sink
	handler  *blog.BatchHandler
	logger   *slog.Logger
	daemon   *blog.Daemon
	opLogger *slog.Logger
}

// New opens (or creates) dir/log.sqlite, applies the log schema and begins the
// first transaction. Options override the values of the config provider, which
// defaults to config.NewDefaultConfig. An empty dir means the configured one.
//
// New prints the store path to stdout. It never installs the handler
// globally unless WithDefault is given.
func New(dir string, opts ...Option) (*Batchlog, error) {
	i := &initializer{
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.provider == nil {
		i.provider = config.NewProvider(config.NewDefaultConfig())
	}

	cfg := *i.provider.Get()
	i.apply(&cfg.Log.Batch)
	if dir != "" {
		cfg.Log.Batch.Dir = dir
	}
	batch := cfg.Log.Batch

	if batch.Threshold < 1 {
		return nil, fmt.Errorf("%w, got %d", blog.ErrInvalidThreshold, batch.Threshold)
	}
	open, ok := drivers[batch.Driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q, available: %v", ErrUnknownDriver, batch.Driver, AvailableDrivers())
	}
	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}

	opLogger := i.opLogger
	if opLogger == nil {
		opLogger = NewOpsLogger(cfg.Log.Ops, os.Stderr)
	}

	if err := os.MkdirAll(batch.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", batch.Dir, err)
	}

	path := db.LogPath(batch.Dir)
	store, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log store %s with %s: %w", path, batch.Driver, err)
	}

	schema, err := migrations.LogSchema()
	if err != nil {
		store.Close()
		return nil, err
	}
	if err := store.ApplySchema(schema); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to apply log schema to %s: %w", path, err)
	}
	if err := store.Ping(db.LogTable); err != nil {
		store.Close()
		return nil, fmt.Errorf("log table not available in %s: %w", path, err)
	}

	committer, err := blog.NewCommitter(store, batch.Threshold,
		blog.WithMaxConsecutiveFailures(batch.MaxConsecutiveFailures))
	if err != nil {
		store.Close()
		return nil, err
	}

	level := i.level
	if level == nil {
		level = i.provider.BatchLevel()
	}

	sink := blog.NewSink(committer, opLogger)
	handler := blog.NewBatchHandler(sink, level)
	b := &Batchlog{
		path:     path,
		sink:     sink,
		handler:  handler,
		logger:   slog.New(handler),
		opLogger: opLogger,
	}

	if interval := batch.FlushInterval.Duration; interval > 0 {
		daemon, err := blog.NewDaemon(sink, interval, opLogger)
		if err == nil {
			err = daemon.Start()
		}
		if err != nil {
			sink.Close()
			return nil, err
		}
		b.daemon = daemon
	}

	fmt.Fprintf(i.stdout, "Log file \"%s\"\n", path)
	opLogger.Debug("batch logger ready", "path", path, "driver", batch.Driver, "threshold", batch.Threshold)

	if i.setDefault {
		slog.SetDefault(b.logger)
	}
	return b, nil
}

// Logger returns a logger writing through the batch handler.
func (b *Batchlog) Logger() *slog.Logger {
	return b.logger
}

// Handler returns the slog handler, for wrapping or fanning out.
func (b *Batchlog) Handler() *blog.BatchHandler {
	return b.handler
}

// Sink returns the sink the handler writes through.
func (b *Batchlog) Sink() *blog.Sink {
	return b.sink
}

// Path returns the store file path.
func (b *Batchlog) Path() string {
	return b.path
}

// Flush commits the rows written since the last commit.
func (b *Batchlog) Flush() error {
	return b.sink.Flush()
}

// Close stops the flush daemon, if any, commits pending rows and closes the
// store. ctx bounds the wait for the daemon.
func (b *Batchlog) Close(ctx context.Context) error {
	var errs []error
	if b.daemon != nil {
		if err := b.daemon.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop flush daemon: %w", err))
		}
	}
	stats := b.sink.Stats()
	if err := b.sink.Close(); err != nil {
		errs = append(errs, err)
	}
	b.opLogger.Debug("batch logger closed", "path", b.path,
		"rows", stats.Rows, "commits", stats.Commits, "failures", stats.Failures)
	return errors.Join(errs...)
}

type initializer struct {
	provider      *config.Provider
	threshold     *int
	driver        string
	level         slog.Leveler
	flushInterval *time.Duration
	opLogger      *slog.Logger
	stdout        io.Writer
	setDefault    bool
}

// apply writes the explicit option values over the configured ones.
func (i *initializer) apply(batch *config.BatchLogger) {
	if i.threshold != nil {
		batch.Threshold = *i.threshold
	}
	if i.driver != "" {
		batch.Driver = i.driver
	}
	if i.flushInterval != nil {
		batch.FlushInterval = config.Duration{Duration: *i.flushInterval}
	}
}
