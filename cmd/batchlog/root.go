package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/caasmo/batchlog"
	"github.com/caasmo/batchlog/config"
	"github.com/spf13/cobra"
)

// rootOptions holds the global flags and the configuration they resolve to.
type rootOptions struct {
	configPath string
	dir        string
	driver     string
	threshold  int
	level      string
	opsFormat  string

	out      io.Writer
	errOut   io.Writer
	provider *config.Provider
	opLogger *slog.Logger
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:   "batchlog",
		Short: "Batched SQLite log store",
		Long:  "Persists slog records into <dir>/log.sqlite, committing every threshold rows.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "TOML config file, defaults are used when empty")
	flags.StringVar(&opts.dir, "dir", "", "directory holding log.sqlite")
	flags.StringVar(&opts.driver, "driver", "", fmt.Sprintf("store driver %v", batchlog.AvailableDrivers()))
	flags.IntVar(&opts.threshold, "threshold", 0, "rows per commit")
	flags.StringVar(&opts.level, "level", "", "minimum level persisted (DEBUG, INFO, WARN, ERROR)")
	flags.StringVar(&opts.opsFormat, "ops-format", "", "operational log format (text|json)")

	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newBenchCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))

	return cmd
}

// resolve loads the config file, applies the flags that were set and
// validates the result.
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	cfg := config.NewDefaultConfig()
	if o.configPath != "" {
		loaded, err := config.LoadFile(o.configPath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Log.Batch.Dir = o.dir
	}
	if flags.Changed("driver") {
		cfg.Log.Batch.Driver = o.driver
	}
	if flags.Changed("threshold") {
		cfg.Log.Batch.Threshold = o.threshold
	}
	if flags.Changed("level") {
		if err := cfg.Log.Batch.Level.UnmarshalText([]byte(o.level)); err != nil {
			return fmt.Errorf("%w: --level: %v", ErrInvalidFlag, err)
		}
	}
	if flags.Changed("ops-format") {
		cfg.Log.Ops.Format = o.opsFormat
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	o.provider = config.NewProvider(cfg)
	o.opLogger = batchlog.NewOpsLogger(cfg.Log.Ops, o.errOut)
	return nil
}
