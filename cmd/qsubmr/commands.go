package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/nemanja-m/qsubmr/examples/squares"
	"github.com/nemanja-m/qsubmr/internal/inputs"
	"github.com/nemanja-m/qsubmr/internal/shared/config"
	"github.com/nemanja-m/qsubmr/internal/shared/logging"
	"github.com/nemanja-m/qsubmr/pkg/codec"
	"github.com/nemanja-m/qsubmr/pkg/core"
	"github.com/nemanja-m/qsubmr/pkg/jobs"
	"github.com/nemanja-m/qsubmr/pkg/qsub"
	"github.com/nemanja-m/qsubmr/pkg/scheduler"
)

// usageError reports bad command-line input. Flag parse errors are already
// printed by pflag.
type usageError struct {
	err      error
	reported bool
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

func newFlagSet(name string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError{err: err, reported: true}
	}
	if fs.NArg() > 0 {
		return usagef("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

// addSubmitFlags registers the flags shared by every submitting command.
// Unset flags fall back to the config file, QSUBMR_* variables and defaults.
func addSubmitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to config file")
	fs.String("scheduler", "", "scheduler backend: pbs or local")
	fs.String("queue", "", "scheduler queue")
	fs.String("extra-options", "", "extra options passed to qsub verbatim")
	fs.String("command-template", "", "qsub command template")
	fs.String("artifact-dir", "", "directory for input and output artifacts")
	fs.String("messages-dir", "", "directory for job stdout and stderr")
	fs.String("codec", "", "artifact codec: json or msgpack")
	fs.String("executable", "", "binary launcher scripts execute (default: this binary)")
	fs.String("script-dir", "", "directory for launcher scripts (default: system temp dir)")
	fs.Int("workers", 0, "concurrent jobs for the local scheduler")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.String("log-format", "", "log format: text or json")
	fs.Bool("verbose", false, "log every submission step")
	fs.Bool("wait", false, "wait for jobs to finish and print the result (local scheduler only)")
}

type env struct {
	logger logging.Logger
	sched  scheduler.Scheduler
	client *qsub.Client
	opts   qsub.Options
	wait   bool
}

func setup(fs *pflag.FlagSet, stderr io.Writer) (*env, error) {
	path, _ := fs.GetString("config")
	cfg, err := config.Load(path, fs)
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.New(stderr, level, cfg.Logging.Format)

	wait, _ := fs.GetBool("wait")
	if wait && cfg.Scheduler.Kind != scheduler.KindLocal {
		return nil, usagef("--wait requires --scheduler %s", scheduler.KindLocal)
	}

	sched, err := scheduler.New(cfg.SchedulerConfig(logger))
	if err != nil {
		return nil, err
	}
	opts, err := cfg.SubmitOptions()
	if err != nil {
		return nil, err
	}

	client := qsub.NewClient(sched,
		qsub.WithLogger(logger),
		qsub.WithLauncher(cfg.LauncherConfig()),
	)
	return &env{logger: logger, sched: sched, client: client, opts: opts, wait: wait}, nil
}

// close waits for jobs run by the local scheduler, which live only as long
// as this process.
func (e *env) close() {
	if l, ok := e.sched.(*scheduler.Local); ok {
		e.logger.Debug("Waiting for local jobs")
		l.Close()
	}
}

// finish prints the decoded output of the final job once it has run.
func (e *env) finish(stdout io.Writer, sub *core.Submission) error {
	if !e.wait {
		return nil
	}
	l := e.sched.(*scheduler.Local)
	l.Wait()
	state, err := l.Status(sub.JobID)
	if err != nil {
		return err
	}
	if state != scheduler.JobStateSucceeded {
		return fmt.Errorf("job %s (%s) finished as %s; see %s", sub.JobName, sub.JobID, state, e.opts.MessagesDir)
	}
	return printArtifact(stdout, sub.OutputPath)
}

func submitCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("submit", stderr)
	fn := fs.String("func", "", "registered function to call")
	rawArgs := fs.StringArray("arg", nil, "positional argument as JSON (repeatable)")
	rawKwargs := fs.StringArray("kwarg", nil, "keyword argument as name=JSON (repeatable)")
	addSubmitFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if *fn == "" {
		return usagef("--func is required")
	}
	callArgs, err := parseValues(*rawArgs)
	if err != nil {
		return err
	}
	callKwargs, err := parseKwargs(*rawKwargs)
	if err != nil {
		return err
	}

	e, err := setup(fs, stderr)
	if err != nil {
		return err
	}
	defer e.close()

	sub, err := e.client.Submit(ctx, *fn, callArgs, callKwargs, e.opts)
	if err != nil {
		return err
	}
	printSubmission(stdout, "job", sub)
	return e.finish(stdout, sub)
}

func mapReduceCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("mapreduce", stderr)
	mapper := fs.String("mapper", "", "registered mapper function")
	reducer := fs.String("reducer", "", "registered reducer function")
	rawInputs := fs.StringArray("input", nil, "mapper input as JSON (repeatable)")
	globs := fs.StringArray("inputs-glob", nil, "glob whose matching files become mapper inputs (repeatable, ** supported)")
	mapperArgs := fs.StringArray("mapper-arg", nil, "extra mapper argument as JSON (repeatable)")
	mapperKwargs := fs.StringArray("mapper-kwarg", nil, "mapper keyword argument as name=JSON (repeatable)")
	reducerArgs := fs.StringArray("reducer-arg", nil, "extra reducer argument as JSON (repeatable)")
	reducerKwargs := fs.StringArray("reducer-kwarg", nil, "reducer keyword argument as name=JSON (repeatable)")
	keep := fs.Bool("keep-intermediate", false, "keep mapper output artifacts after the reducer reads them")
	addSubmitFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if *mapper == "" || *reducer == "" {
		return usagef("--mapper and --reducer are required")
	}

	req := &qsub.MapReduceRequest{
		Mapper:           *mapper,
		Reducer:          *reducer,
		KeepIntermediate: *keep,
	}
	var err error
	if req.Inputs, err = parseValues(*rawInputs); err != nil {
		return err
	}
	files, err := inputs.Files(*globs)
	if err != nil {
		return err
	}
	for _, f := range files {
		req.Inputs = append(req.Inputs, f)
	}
	if req.MapperArgs, err = parseValues(*mapperArgs); err != nil {
		return err
	}
	if req.MapperKwargs, err = parseKwargs(*mapperKwargs); err != nil {
		return err
	}
	if req.ReducerArgs, err = parseValues(*reducerArgs); err != nil {
		return err
	}
	if req.ReducerKwargs, err = parseKwargs(*reducerKwargs); err != nil {
		return err
	}

	e, err := setup(fs, stderr)
	if err != nil {
		return err
	}
	defer e.close()
	return e.mapReduce(ctx, stdout, req)
}

func demoCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("demo", stderr)
	addSubmitFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	e, err := setup(fs, stderr)
	if err != nil {
		return err
	}
	defer e.close()
	return e.mapReduce(ctx, stdout, &qsub.MapReduceRequest{
		Mapper:  squares.Mapper,
		Reducer: squares.Reducer,
		Inputs:  []any{0},
	})
}

func (e *env) mapReduce(ctx context.Context, stdout io.Writer, req *qsub.MapReduceRequest) error {
	req.Options = e.opts
	res, err := e.client.MapReduce(ctx, req)
	if err != nil {
		return err
	}
	for _, m := range res.Mappers {
		printSubmission(stdout, "mapper", m)
	}
	printSubmission(stdout, "reducer", res.Reducer)
	return e.finish(stdout, res.Reducer)
}

func funcsCmd(_ context.Context, args []string, stdout, stderr io.Writer) error {
	if err := parse(newFlagSet("funcs", stderr), args); err != nil {
		return err
	}
	for _, name := range jobs.List() {
		fmt.Fprintln(stdout, name)
	}
	return nil
}

func resultCmd(_ context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("result", stderr)
	path := fs.String("path", "", "output artifact to decode")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *path == "" {
		return usagef("--path is required")
	}
	return printArtifact(stdout, *path)
}

func printSubmission(w io.Writer, role string, sub *core.Submission) {
	fmt.Fprintf(w, "%s\t%s\t%s\n", role, sub.JobID, sub.OutputPath)
}

func printArtifact(w io.Writer, path string) error {
	var v any
	if err := codec.ReadFile(path, &v); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// parseValues decodes each command-line value as JSON.
func parseValues(raw []string) ([]any, error) {
	values := make([]any, 0, len(raw))
	for _, s := range raw {
		var v any
		if err := (codec.JSON{}).Unmarshal([]byte(s), &v); err != nil {
			return nil, usagef("invalid JSON value %q: %v", s, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// parseKwargs decodes name=JSON pairs.
func parseKwargs(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	kwargs := make(map[string]any, len(raw))
	for _, s := range raw {
		name, value, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return nil, usagef("keyword argument %q is not name=JSON", s)
		}
		var v any
		if err := (codec.JSON{}).Unmarshal([]byte(value), &v); err != nil {
			return nil, usagef("invalid JSON for %s: %v", name, err)
		}
		kwargs[name] = v
	}
	return kwargs, nil
}
