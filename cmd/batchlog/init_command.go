package main

import (
	"context"
	"fmt"

	"github.com/caasmo/batchlog"
	"github.com/spf13/cobra"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the log store and its schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts)
		},
	}
}

func runInit(opts *rootOptions) error {
	b, err := batchlog.New("",
		batchlog.WithConfigProvider(opts.provider),
		batchlog.WithStdout(opts.out),
		batchlog.WithOpLogger(opts.opLogger),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize log store: %w", err)
	}
	if err := b.Close(context.Background()); err != nil {
		return fmt.Errorf("failed to close log store: %w", err)
	}

	if _, err := fmt.Fprintln(opts.out, "Log database initialized successfully."); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}
