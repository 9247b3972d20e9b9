package qsub

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultQueue       = "express"
	DefaultArtifactDir = "qsub_pickles"
	DefaultMessagesDir = "qsub_messages"
)

// Options control a single submission.
type Options struct {
	// Queue is the scheduler queue jobs are sent to.
	Queue string
	// ExtraOptions are appended to the qsub command line verbatim.
	ExtraOptions string
	// ArtifactDir holds input and output artifacts. It must be visible to
	// both the submitting host and the compute nodes.
	ArtifactDir string
	// MessagesDir receives the jobs' stdout and stderr.
	MessagesDir string
	// Codec names the artifact encoding ("json" or "msgpack").
	Codec string
	// Verbose logs each submission step at info level instead of debug.
	Verbose bool
}

// DefaultOptions returns options rooted at the current working directory:
// <cwd>/qsub_pickles for artifacts and <cwd>/qsub_messages for messages.
func DefaultOptions() (Options, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Options{}, fmt.Errorf("resolve working directory: %w", err)
	}
	return Options{
		Queue:       DefaultQueue,
		ArtifactDir: filepath.Join(cwd, DefaultArtifactDir),
		MessagesDir: filepath.Join(cwd, DefaultMessagesDir),
	}, nil
}

func (o Options) validate() error {
	switch {
	case o.Queue == "":
		return fmt.Errorf("%w: queue is required", ErrInvalidOptions)
	case o.ArtifactDir == "":
		return fmt.Errorf("%w: artifact directory is required", ErrInvalidOptions)
	case o.MessagesDir == "":
		return fmt.Errorf("%w: messages directory is required", ErrInvalidOptions)
	}
	return nil
}
