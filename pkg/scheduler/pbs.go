package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"text/template"

	"github.com/kballard/go-shellquote"

	"github.com/nemanja-m/qsubmr/internal/shared/logging"
)

const (
	DefaultCommandTemplate = "qsub -q {{.Queue}} {{.ExtraOptions}} -N {{.Name}} {{.Script}}"
	DefaultShell           = "/bin/sh"

	gatedOptions = "-m ae -W umask=0133"
)

// PBS submits jobs to a PBS/TORQUE cluster through qsub.
type PBS struct {
	tmpl   *template.Template
	shell  string
	logger logging.Logger
}

func NewPBS(cfg Config) (*PBS, error) {
	text := cfg.CommandTemplate
	if text == "" {
		text = DefaultCommandTemplate
	}
	tmpl, err := template.New("qsub").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse command template: %w", err)
	}
	shell := cfg.Shell
	if shell == "" {
		shell = DefaultShell
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PBS{tmpl: tmpl, shell: shell, logger: logger}, nil
}

// Dependency returns the afterok clause over the given job identifiers, or
// an empty string when there are none.
func Dependency(after []string) string {
	if len(after) == 0 {
		return ""
	}
	return "depend=afterok:" + strings.Join(after, ":")
}

// ExtraOptions assembles the option string substituted into the template:
// the caller's options, the gating flags and the stdout/stderr targets.
func ExtraOptions(req *Request) string {
	var parts []string
	if opts := strings.TrimSpace(req.ExtraOptions); opts != "" {
		parts = append(parts, opts)
	}
	if req.Gated {
		w := gatedOptions
		if dep := Dependency(req.After); dep != "" {
			w += "," + dep
		}
		parts = append(parts, w)
	} else if dep := Dependency(req.After); dep != "" {
		parts = append(parts, "-W "+dep)
	}
	if req.MessagesDir != "" {
		target := shellquote.Join("localhost:" + req.MessagesDir)
		parts = append(parts, "-e "+target, "-o "+target)
	}
	return strings.Join(parts, " ")
}

// Command renders the shell command that submits req.
func (p *PBS) Command(req *Request) (string, error) {
	var buf bytes.Buffer
	err := p.tmpl.Execute(&buf, map[string]string{
		"Queue":        shellquote.Join(req.Queue),
		"ExtraOptions": ExtraOptions(req),
		"Name":         shellquote.Join(req.Name),
		"Script":       shellquote.Join(req.Script),
	})
	if err != nil {
		return "", fmt.Errorf("render command template: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (p *PBS) Submit(ctx context.Context, req *Request) (string, error) {
	command, err := p.Command(req)
	if err != nil {
		return "", err
	}
	p.logger.Debug("Running submission command", "job_name", req.Name, "command", command)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.shell, "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s: %v: %s", ErrSubmitFailed, req.Name, err, strings.TrimSpace(stderr.String()))
	}

	jobID := strings.TrimSpace(stdout.String())
	if jobID == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyJobID, req.Name)
	}
	return jobID, nil
}
