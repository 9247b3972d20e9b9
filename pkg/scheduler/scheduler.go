// Package scheduler submits launcher scripts to a batch scheduler.
//
// The only capability the rest of the module relies on is "submit this
// script, optionally after these jobs have all succeeded". PBS implements it
// with qsub and afterok dependencies; Local emulates it on one machine.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/nemanja-m/qsubmr/internal/shared/logging"
)

var (
	ErrSubmitFailed   = errors.New("scheduler: submission failed")
	ErrEmptyJobID     = errors.New("scheduler: empty job id")
	ErrUnknownKind    = errors.New("scheduler: unknown kind")
	ErrUnknownJob     = errors.New("scheduler: unknown job")
	ErrSchedulerClose = errors.New("scheduler: closed")
)

// Request describes one job submission.
type Request struct {
	// Name is the human readable job label.
	Name string
	// Script is the path of an executable launcher script.
	Script string
	Queue  string
	// ExtraOptions are passed through to the scheduler verbatim.
	ExtraOptions string
	// MessagesDir receives the job's stdout and stderr.
	MessagesDir string
	// After lists jobs that must all finish successfully before this one
	// starts. A job whose prerequisite fails never runs.
	After []string
	// Gated marks dependency-gated jobs (the reduce phase). Gated jobs get
	// mail-on-abort/end and umask flags and an afterok clause over After.
	Gated bool
}

type Scheduler interface {
	// Submit hands the job to the scheduler and returns the identifier the
	// scheduler assigned. It does not wait for the job to run.
	Submit(ctx context.Context, req *Request) (string, error)
}

const (
	KindPBS   = "pbs"
	KindLocal = "local"
)

type Config struct {
	Kind string
	// CommandTemplate is the qsub command template (PBS only).
	CommandTemplate string
	// Shell runs the submission command (PBS) or the launcher scripts (Local).
	Shell string
	// Workers bounds concurrently running jobs (Local only).
	Workers int
	Logger  logging.Logger
}

// New builds the scheduler selected by cfg.Kind. An empty kind selects PBS.
func New(cfg Config) (Scheduler, error) {
	switch cfg.Kind {
	case KindPBS, "":
		return NewPBS(cfg)
	case KindLocal:
		return NewLocal(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}
