package scheduler

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"go.jetify.com/typeid/v2"

	"github.com/nemanja-m/qsubmr/internal/pool"
	"github.com/nemanja-m/qsubmr/internal/shared/logging"
)

type JobState string

const (
	JobStateQueued    JobState = "QUEUED"
	JobStateRunning   JobState = "RUNNING"
	JobStateSucceeded JobState = "SUCCEEDED"
	JobStateFailed    JobState = "FAILED"
	// JobStateSkipped marks a job whose prerequisites did not all succeed.
	JobStateSkipped JobState = "SKIPPED"
)

type localJob struct {
	id    string
	req   Request
	state JobState
	done  chan struct{}
}

// Local runs launcher scripts on this machine with afterok semantics: a job
// starts only once every job in its After list has succeeded, and is
// skipped if any of them failed, was skipped or is unknown. It stands in for
// a cluster during development and tests.
type Local struct {
	shell  string
	logger logging.Logger

	pool   *pool.Pool
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	jobs   map[string]*localJob
	closed bool
	wg     sync.WaitGroup
}

func NewLocal(cfg Config) *Local {
	shell := cfg.Shell
	if shell == "" {
		shell = DefaultShell
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Local{
		shell:  shell,
		logger: logger,
		pool:   pool.NewPool(cfg.Workers),
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*localJob),
	}
	l.pool.Start()
	return l
}

func (l *Local) Submit(ctx context.Context, req *Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tid, err := typeid.Generate("job")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	job := &localJob{
		id:    tid.String(),
		req:   *req,
		state: JobStateQueued,
		done:  make(chan struct{}),
	}
	job.req.After = append([]string(nil), req.After...)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return "", ErrSchedulerClose
	}
	l.jobs[job.id] = job
	l.wg.Add(1)
	l.mu.Unlock()

	l.logger.Debug("Job queued", "job_id", job.id, "job_name", req.Name, "after", req.After)
	l.pool.Submit(func() {
		defer l.wg.Done()
		defer close(job.done)
		l.run(job)
	})
	return job.id, nil
}

func (l *Local) run(job *localJob) {
	for _, dep := range job.req.After {
		state, err := l.await(dep)
		if err != nil || state != JobStateSucceeded {
			l.logger.Warn("Skipping job, prerequisite did not succeed",
				"job_id", job.id, "prerequisite", dep, "state", state)
			l.setState(job, JobStateSkipped)
			return
		}
	}

	l.setState(job, JobStateRunning)
	if err := l.exec(job); err != nil {
		l.logger.Error("Job failed", "job_id", job.id, "job_name", job.req.Name, "error", err)
		l.setState(job, JobStateFailed)
		return
	}
	l.logger.Debug("Job succeeded", "job_id", job.id, "job_name", job.req.Name)
	l.setState(job, JobStateSucceeded)
}

func (l *Local) exec(job *localJob) error {
	stdout, stderr, closeAll, err := l.outputs(job)
	if err != nil {
		return err
	}
	defer closeAll()

	cmd := exec.CommandContext(l.ctx, l.shell, job.req.Script)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// outputs opens <name>.o<id> and <name>.e<id> in the messages directory,
// following the PBS naming convention.
func (l *Local) outputs(job *localJob) (io.Writer, io.Writer, func(), error) {
	if job.req.MessagesDir == "" {
		return io.Discard, io.Discard, func() {}, nil
	}
	base := filepath.Join(job.req.MessagesDir, job.req.Name)
	stdout, err := os.Create(base + ".o" + job.id)
	if err != nil {
		return nil, nil, nil, err
	}
	stderr, err := os.Create(base + ".e" + job.id)
	if err != nil {
		stdout.Close()
		return nil, nil, nil, err
	}
	return stdout, stderr, func() {
		stdout.Close()
		stderr.Close()
	}, nil
}

func (l *Local) await(id string) (JobState, error) {
	l.mu.Lock()
	job, ok := l.jobs[id]
	l.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	select {
	case <-job.done:
	case <-l.ctx.Done():
		return "", l.ctx.Err()
	}
	return l.Status(id)
}

func (l *Local) setState(job *localJob, state JobState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	job.state = state
}

// Status reports the current state of a job submitted to this scheduler.
func (l *Local) Status(id string) (JobState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	job, ok := l.jobs[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	return job.state, nil
}

// Wait blocks until every submitted job has finished or been skipped.
func (l *Local) Wait() {
	l.wg.Wait()
}

// Close waits for submitted jobs and releases the workers. Jobs submitted
// after Close fail with ErrSchedulerClose.
func (l *Local) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.wg.Wait()
	l.pool.Close()
	l.cancel()
}
