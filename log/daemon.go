package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

// Daemon commits a sink's pending rows on a fixed interval, so a quiet logger
// with a large threshold does not keep its transaction open indefinitely.
// On Stop it flushes a final time.
type Daemon struct {
	sink      *Sink
	interval  time.Duration
	opLogger  *slog.Logger
	formatter *MessageFormatter

	started      atomic.Bool
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownDone chan struct{}
}

// NewDaemon creates a new Daemon. interval must be positive.
func NewDaemon(sink *Sink, interval time.Duration, opLogger *slog.Logger) (*Daemon, error) {
	if sink == nil {
		return nil, fmt.Errorf("flush daemon: sink cannot be nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("flush daemon: interval must be positive, got %s", interval)
	}
	if opLogger == nil {
		opLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		sink:         sink,
		interval:     interval,
		formatter:    NewMessageFormatter().WithComponent("flush daemon", "⏱️"),
		ctx:          ctx,
		cancel:       cancel,
		shutdownDone: make(chan struct{}),
	}
	d.opLogger = opLogger.With("daemon_component", d.Name())
	return d, nil
}

// Name returns the constant name of this daemon type.
func (d *Daemon) Name() string {
	return "FlushDaemon"
}

// Start begins the daemon's flush goroutine. Calling it twice is an error.
func (d *Daemon) Start() error {
	if !d.started.CompareAndSwap(false, true) {
		return fmt.Errorf("flush daemon: already started")
	}
	d.opLogger.Info(d.formatter.Start("starting"), "interval", d.interval)
	go d.run()
	return nil
}

// Stop signals the goroutine, waits for its final flush and returns ctx.Err()
// if ctx ends first. Stopping a daemon that never started is a no-op.
func (d *Daemon) Stop(ctx context.Context) error {
	d.cancel()
	if !d.started.Load() {
		return nil
	}

	select {
	case <-d.shutdownDone:
		d.opLogger.Info(d.formatter.Complete("stopped gracefully"))
		return nil
	case <-ctx.Done():
		d.opLogger.Error(d.formatter.Fail("shutdown timed out waiting for flush goroutine"), "error", ctx.Err())
		return ctx.Err()
	}
}

func (d *Daemon) run() {
	defer close(d.shutdownDone)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.flush("ticker_flush")
		case <-d.ctx.Done():
			d.flush("shutdown_final_flush")
			return
		}
	}
}

func (d *Daemon) flush(reason string) {
	flushed, err := d.sink.FlushPending()
	if err != nil {
		// the daemon keeps ticking, the next batch may commit
		d.opLogger.Warn(d.formatter.Warn("failed to flush pending rows"), "error", err, "reason", reason)
		return
	}
	if flushed {
		d.opLogger.Debug(d.formatter.Ok("flushed pending rows"), "reason", reason)
	}
}
