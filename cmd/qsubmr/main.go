// Command qsubmr submits registered functions as PBS batch jobs and runs
// map/reduce pipelines over them. Generated launcher scripts call back into
// this binary through its run subcommand.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/nemanja-m/qsubmr/pkg/jobs"
	"github.com/nemanja-m/qsubmr/pkg/launcher"

	_ "github.com/nemanja-m/qsubmr/examples/grep"
	_ "github.com/nemanja-m/qsubmr/examples/squares"
	_ "github.com/nemanja-m/qsubmr/examples/wordcount"
)

const usage = `Usage: qsubmr <command> [flags]

Commands:
  submit      submit one function call as a batch job
  mapreduce   submit mapper jobs and a dependent reducer job
  demo        run the squares example pipeline over [0]
  funcs       list registered functions
  result      print a decoded output artifact as JSON
  run         execute a job from its input artifact (used by launcher scripts)

Run 'qsubmr <command> --help' for command flags.
`

func main() {
	launcher.Handle(jobs.Default)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var cmd func(context.Context, []string, io.Writer, io.Writer) error
	switch args[0] {
	case "submit":
		cmd = submitCmd
	case "mapreduce":
		cmd = mapReduceCmd
	case "demo":
		cmd = demoCmd
	case "funcs":
		cmd = funcsCmd
	case "result":
		cmd = resultCmd
	case launcher.Subcommand:
		return launcher.Main(ctx, jobs.Default, args[1:], stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "qsubmr: unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if err := cmd(ctx, args[1:], stdout, stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		var u usageError
		if errors.As(err, &u) {
			if !u.reported {
				fmt.Fprintf(stderr, "qsubmr %s: %v\n", args[0], err)
			}
			return 2
		}
		fmt.Fprintf(stderr, "qsubmr %s: %v\n", args[0], err)
		return 1
	}
	return 0
}
