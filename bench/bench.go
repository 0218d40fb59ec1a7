// Package bench measures how long it takes to persist a fixed number of log
// events for a range of batch thresholds.
package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/caasmo/batchlog"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"
)

// DefaultEvents is the number of events logged per batch size.
const DefaultEvents = 1_000_000

// DefaultSizes returns 10 to 100 in steps of 10, then 200 to 1000 in steps of 100.
func DefaultSizes() []int {
	var sizes []int
	for n := 10; n <= 100; n += 10 {
		sizes = append(sizes, n)
	}
	for n := 200; n <= 1000; n += 100 {
		sizes = append(sizes, n)
	}
	return sizes
}

// Config describes one benchmark run.
type Config struct {
	// Dir receives log.sqlite. Every size appends to the same store.
	Dir    string
	Driver string
	Sizes  []int
	Events int
	// Producers is the number of goroutines logging concurrently, at least 1.
	Producers int
	// Out receives the per-size progress lines. Nil discards them.
	Out io.Writer
}

// Result is the measurement for one batch size.
type Result struct {
	BatchSize int
	Events    int
	Elapsed   time.Duration
}

// PerSecond returns the throughput in events per second.
func (r Result) PerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Events) / r.Elapsed.Seconds()
}

// Run benchmarks every size in cfg.Sizes in order. Each size gets a fresh
// logger on cfg.Dir, logs cfg.Events Info events, flushes and closes it.
func Run(ctx context.Context, cfg Config, opLogger *slog.Logger) ([]Result, error) {
	if cfg.Events < 0 {
		return nil, fmt.Errorf("bench: events cannot be negative, got %d", cfg.Events)
	}
	if cfg.Producers < 1 {
		cfg.Producers = 1
	}
	if len(cfg.Sizes) == 0 {
		cfg.Sizes = DefaultSizes()
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}

	results := make([]Result, 0, len(cfg.Sizes))
	for _, size := range cfg.Sizes {
		r, err := runSize(ctx, cfg, size, opLogger)
		if err != nil {
			return results, fmt.Errorf("bench: batch size %d: %w", size, err)
		}
		fmt.Fprintf(cfg.Out, "Batch size %d Elapsed time: %s\n", size, r.Elapsed)
		results = append(results, r)
	}
	return results, nil
}

func runSize(ctx context.Context, cfg Config, size int, opLogger *slog.Logger) (Result, error) {
	opts := []batchlog.Option{
		batchlog.WithThreshold(size),
		batchlog.WithStdout(cfg.Out),
	}
	if cfg.Driver != "" {
		opts = append(opts, batchlog.WithDriver(cfg.Driver))
	}
	if opLogger != nil {
		opts = append(opts, batchlog.WithOpLogger(opLogger))
	}

	b, err := batchlog.New(cfg.Dir, opts...)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	err = produce(ctx, b.Logger(), cfg.Events, cfg.Producers)
	if err == nil {
		err = b.Flush()
	}
	elapsed := time.Since(start)

	if cerr := b.Close(context.Background()); err == nil {
		err = cerr
	}
	if err != nil {
		return Result{}, err
	}
	return Result{BatchSize: size, Events: cfg.Events, Elapsed: elapsed}, nil
}

// produce logs "Hello, world! <i>" for i in [0, events), split into
// contiguous ranges across producers.
func produce(ctx context.Context, logger *slog.Logger, events, producers int) error {
	g, ctx := errgroup.WithContext(ctx)
	per := events / producers
	for p := 0; p < producers; p++ {
		from := p * per
		to := from + per
		if p == producers-1 {
			to = events
		}
		g.Go(func() error {
			for i := from; i < to; i++ {
				if i%1000 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				logger.Info("Hello, world! " + strconv.Itoa(i))
			}
			return nil
		})
	}
	return g.Wait()
}

// WriteTable renders results as a table.
func WriteTable(w io.Writer, results []Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("Batch size", "Events", "Elapsed", "Events/s")
	for _, r := range results {
		if err := table.Append([]string{
			strconv.Itoa(r.BatchSize),
			humanize.Comma(int64(r.Events)),
			r.Elapsed.Round(time.Millisecond).String(),
			humanize.Comma(int64(r.PerSecond())),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
