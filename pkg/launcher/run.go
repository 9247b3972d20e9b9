package launcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/nemanja-m/qsubmr/internal/shared/logging"
	"github.com/nemanja-m/qsubmr/pkg/artifact"
	"github.com/nemanja-m/qsubmr/pkg/codec"
	"github.com/nemanja-m/qsubmr/pkg/jobs"
)

// Run executes the job described by the input artifact and writes the
// function's return value to output. The input artifact is removed before
// the function is called, whether or not the call succeeds.
func Run(ctx context.Context, registry *jobs.Registry, input, output string) error {
	d, err := artifact.ReadDescriptor(input)
	if err != nil {
		return fmt.Errorf("read input artifact: %w", err)
	}
	if err := artifact.Remove(input); err != nil {
		return fmt.Errorf("remove input artifact: %w", err)
	}

	c, err := codec.Get(d.Codec)
	if err != nil {
		return err
	}
	fn, err := registry.Get(d.Func)
	if err != nil {
		return err
	}

	result, err := jobs.NewCall(c, d.Args, d.Kwargs).Invoke(ctx, fn)
	if err != nil {
		return fmt.Errorf("%s: %w", d.Func, err)
	}

	store := artifact.NewStore(filepath.Dir(output), c)
	if err := store.WriteResult(output, result); err != nil {
		return fmt.Errorf("write output artifact: %w", err)
	}
	return nil
}

// Main parses the run subcommand's flags and runs the job. It returns the
// process exit code. Progress and errors are logged to stderr, which the
// scheduler collects into the messages directory.
func Main(ctx context.Context, registry *jobs.Registry, args []string, stderr io.Writer) int {
	flags := pflag.NewFlagSet(Subcommand, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	input := flags.String("input", "", "input artifact path")
	output := flags.String("output", "", "output artifact path")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	logger := logging.New(stderr, slog.LevelInfo, logging.FormatText)
	if *input == "" || *output == "" {
		logger.Error("Both --input and --output are required")
		return 2
	}

	logger.Info("Starting job", "input", *input, "output", *output)
	if err := Run(ctx, registry, *input, *output); err != nil {
		logger.Error("Job failed", "error", err)
		return 1
	}
	logger.Info("Job completed", "output", *output)
	return 0
}

// Handle runs the job and exits when the process was started by a launcher
// script; otherwise it returns immediately. Call it at the top of main in
// any binary that submits jobs.
func Handle(registry *jobs.Registry) {
	if len(os.Args) < 2 || os.Args[1] != Subcommand {
		return
	}
	os.Exit(Main(context.Background(), registry, os.Args[2:], os.Stderr))
}
