package main

import (
	"fmt"

	"github.com/caasmo/batchlog/config"
	"github.com/spf13/cobra"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Marshal(opts.provider.Get())
			if err != nil {
				return err
			}
			if _, err := opts.out.Write(data); err != nil {
				return fmt.Errorf("%w: %v", ErrWriteOutput, err)
			}
			return nil
		},
	}
}
