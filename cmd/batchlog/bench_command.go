package main

import (
	"fmt"

	"github.com/caasmo/batchlog/bench"
	"github.com/spf13/cobra"
)

type benchOptions struct {
	events    int
	producers int
	sizes     []int
	table     bool
}

func newBenchCommand(root *rootOptions) *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time logging a fixed number of events for a range of batch sizes",
		Long: "For every batch size, opens the store in --dir, logs --events Info events,\n" +
			"flushes and prints the elapsed time. The store keeps every row written.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, root, opts)
		},
	}

	cmd.Flags().IntVar(&opts.events, "events", bench.DefaultEvents, "events logged per batch size")
	cmd.Flags().IntVar(&opts.producers, "producers", 1, "goroutines logging concurrently")
	cmd.Flags().IntSliceVar(&opts.sizes, "sizes", nil, "batch sizes, defaults to 10..100 step 10 and 200..1000 step 100")
	cmd.Flags().BoolVar(&opts.table, "table", true, "print a summary table")

	return cmd
}

func runBench(cmd *cobra.Command, root *rootOptions, opts *benchOptions) error {
	if opts.producers < 1 {
		return fmt.Errorf("%w: --producers must be at least 1, got %d", ErrInvalidFlag, opts.producers)
	}
	if opts.events < 0 {
		return fmt.Errorf("%w: --events cannot be negative, got %d", ErrInvalidFlag, opts.events)
	}

	batch := root.provider.Get().Log.Batch
	results, err := bench.Run(cmd.Context(), bench.Config{
		Dir:       batch.Dir,
		Driver:    batch.Driver,
		Sizes:     opts.sizes,
		Events:    opts.events,
		Producers: opts.producers,
		Out:       root.out,
	}, root.opLogger)
	if err != nil {
		return err
	}

	if opts.table {
		if err := bench.WriteTable(root.out, results); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
	}
	return nil
}
