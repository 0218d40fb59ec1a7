package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrInvalidFlag   = errors.New("invalid flag provided")
	ErrLoadConfig    = errors.New("failed to load config")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrWriteOutput   = errors.New("failed to write output")
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out, errOut io.Writer) error {
	cmd := newRootCommand(out, errOut)
	cmd.SetArgs(args)
	return cmd.Execute()
}
