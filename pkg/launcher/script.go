// Package launcher generates the scripts handed to the scheduler and runs
// the job side of the artifact handshake.
//
// A launcher script re-executes the submitting binary with the run
// subcommand. The job process therefore shares the submitter's function
// registry and needs nothing else from the submitting process:
//
//	#!/bin/sh
//	exec /path/to/binary run --input <input artifact> --output <output artifact>
package launcher

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/kballard/go-shellquote"
)

// Subcommand is the first argument that switches a binary into job mode.
const Subcommand = "run"

const DefaultShell = "/bin/sh"

var scriptTemplate = template.Must(template.New("launcher").Parse(`#!{{.Shell}}
exec {{.Command}}
`))

// Config controls how launcher scripts are generated.
type Config struct {
	// Executable is the binary the job re-executes. Defaults to the
	// running executable.
	Executable string
	// Shell is the interpreter named on the #! line.
	Shell string
	// ScriptDir is where scripts are written. Defaults to os.TempDir().
	ScriptDir string
}

func (c Config) withDefaults() (Config, error) {
	if c.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return c, fmt.Errorf("resolve executable: %w", err)
		}
		c.Executable = exe
	}
	if c.Shell == "" {
		c.Shell = DefaultShell
	}
	if c.ScriptDir == "" {
		c.ScriptDir = os.TempDir()
	}
	return c, nil
}

type Script struct {
	Executable string
	Shell      string
	Input      string
	Output     string
}

func (s Script) Render() ([]byte, error) {
	var buf bytes.Buffer
	err := scriptTemplate.Execute(&buf, map[string]string{
		"Shell":   s.Shell,
		"Command": shellquote.Join(s.Executable, Subcommand, "--input", s.Input, "--output", s.Output),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteScript renders a launcher for the given artifacts into a new file in
// cfg.ScriptDir, marks it executable and returns its path.
func WriteScript(cfg Config, input, output string) (string, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return "", err
	}

	content, err := Script{
		Executable: cfg.Executable,
		Shell:      cfg.Shell,
		Input:      input,
		Output:     output,
	}.Render()
	if err != nil {
		return "", fmt.Errorf("render launcher script: %w", err)
	}

	f, err := os.CreateTemp(cfg.ScriptDir, "qsubmr-*.sh")
	if err != nil {
		return "", fmt.Errorf("create launcher script: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return "", fmt.Errorf("write launcher script: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write launcher script: %w", err)
	}

	if err := MakeExecutable(f.Name()); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// MakeExecutable grants execute permission wherever read permission is set.
func MakeExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	mode |= (mode & 0o444) >> 2
	return os.Chmod(path, mode)
}
