// Package qsub submits registered Go functions as batch jobs and wires
// map/reduce pipelines through scheduler dependencies.
//
// Submission is synchronous: once Submit returns, the scheduler has the job
// and the caller knows where its output artifact will appear. Completion is
// never awaited; the caller reads the artifact once the scheduler reports the
// job as done.
package qsub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/nemanja-m/qsubmr/internal/shared/logging"
	"github.com/nemanja-m/qsubmr/pkg/artifact"
	"github.com/nemanja-m/qsubmr/pkg/codec"
	"github.com/nemanja-m/qsubmr/pkg/core"
	"github.com/nemanja-m/qsubmr/pkg/jobs"
	"github.com/nemanja-m/qsubmr/pkg/launcher"
	"github.com/nemanja-m/qsubmr/pkg/scheduler"
)

var (
	ErrInvalidOptions = errors.New("qsub: invalid options")
	ErrEncode         = errors.New("qsub: cannot encode call")
	ErrSubmit         = errors.New("qsub: submission failed")
)

type Client struct {
	registry  *jobs.Registry
	scheduler scheduler.Scheduler
	launcher  launcher.Config
	logger    logging.Logger
	now       func() time.Time
}

type ClientOption func(*Client)

// WithRegistry selects the registry functions are resolved in. The reduce
// wrapper is registered into it.
func WithRegistry(r *jobs.Registry) ClientOption {
	return func(c *Client) { c.registry = r }
}

func WithLauncher(cfg launcher.Config) ClientOption {
	return func(c *Client) { c.launcher = cfg }
}

func WithLogger(l logging.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

func NewClient(s scheduler.Scheduler, opts ...ClientOption) *Client {
	c := &Client{
		registry:  jobs.Default,
		scheduler: s,
		logger:    logging.New(os.Stdout, slog.LevelInfo, logging.FormatText),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	RegisterBuiltins(c.registry)
	return c
}

// Submit runs fn(args..., kwargs...) as a batch job. Everything that can fail
// locally (unknown function, unencodable argument) fails before any
// directory, file or process is created.
func (c *Client) Submit(ctx context.Context, fn string, args []any, kwargs map[string]any, opts Options) (*core.Submission, error) {
	return c.submit(ctx, &job{fn: fn, label: fn, args: args, kwargs: kwargs}, opts)
}

type job struct {
	fn     string
	label  string
	args   []any
	kwargs map[string]any
	after  []string
	gated  bool
}

func (c *Client) submit(ctx context.Context, j *job, opts Options) (*core.Submission, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	cd, err := codec.Get(opts.Codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if _, err := c.registry.Get(j.fn); err != nil {
		return nil, err
	}
	descriptor, err := encode(cd, j)
	if err != nil {
		return nil, err
	}

	name := core.NewJobName(j.label)
	c.trace(opts, "Starting submission", "job_name", name, "func", j.fn)

	if err := artifact.EnsureDir(opts.ArtifactDir, opts.MessagesDir); err != nil {
		return nil, err
	}

	store := artifact.NewStore(opts.ArtifactDir, cd)
	input, output := store.Paths(name, c.now())
	c.trace(opts, "Writing input artifact", "job_name", name, "path", input)
	if err := store.WriteDescriptor(input, descriptor); err != nil {
		return nil, err
	}

	script, err := launcher.WriteScript(c.launcher, input, output)
	if err != nil {
		return nil, err
	}
	c.trace(opts, "Wrote launcher script", "job_name", name, "script", script)

	req := &scheduler.Request{
		Name:         name,
		Script:       script,
		Queue:        opts.Queue,
		ExtraOptions: opts.ExtraOptions,
		MessagesDir:  opts.MessagesDir,
		After:        j.after,
		Gated:        j.gated,
	}
	if r, ok := c.scheduler.(interface {
		Command(*scheduler.Request) (string, error)
	}); ok {
		if command, err := r.Command(req); err == nil {
			c.trace(opts, "Submission command", "job_name", name, "command", command)
		}
	}

	jobID, err := c.scheduler.Submit(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmit, err)
	}
	c.trace(opts, "Job submitted", "job_name", name, "job_id", jobID, "output", output)

	return &core.Submission{
		JobID:      jobID,
		JobName:    name,
		InputPath:  input,
		OutputPath: output,
		ScriptPath: script,
	}, nil
}

func encode(cd codec.Codec, j *job) (*core.Descriptor, error) {
	d := &core.Descriptor{Func: j.fn, Codec: cd.Name()}
	for i, arg := range j.args {
		data, err := cd.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s argument %d: %w", ErrEncode, j.fn, i, err)
		}
		d.Args = append(d.Args, data)
	}
	// Sorted so the first failing keyword is the same on every run.
	for _, key := range slices.Sorted(maps.Keys(j.kwargs)) {
		data, err := cd.Marshal(j.kwargs[key])
		if err != nil {
			return nil, fmt.Errorf("%w: %s keyword argument %s: %w", ErrEncode, j.fn, key, err)
		}
		if d.Kwargs == nil {
			d.Kwargs = make(map[string][]byte, len(j.kwargs))
		}
		d.Kwargs[key] = data
	}
	return d, nil
}

func (c *Client) trace(opts Options, msg string, args ...any) {
	if opts.Verbose {
		c.logger.Info(msg, args...)
	} else {
		c.logger.Debug(msg, args...)
	}
}
