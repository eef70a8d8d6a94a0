// Package host is the execution environment the pipeline runs against:
// named file reads and writes plus command execution.
package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Host is the minimal surface the pipeline needs from its environment.
type Host interface {
	WriteFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	Run(ctx context.Context, name string, args ...string) (ExecResult, error)
}

// ExecResult captures a finished command.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandError is returned when a command exits non-zero or cannot start.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q failed (exit %d)", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Local runs commands with os/exec and keeps files on an afero filesystem.
type Local struct {
	Fs afero.Fs
	// Dir is the working directory for commands; empty means the process cwd.
	Dir string
}

// NewOS returns a Local host backed by the real filesystem.
func NewOS() *Local {
	return &Local{Fs: afero.NewOsFs()}
}

// NewSandbox returns a Local host whose file operations are confined to root
// and whose commands run inside it.
func NewSandbox(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create sandbox root: %w", err)
	}
	return &Local{Fs: afero.NewBasePathFs(afero.NewOsFs(), abs), Dir: abs}, nil
}

// NewMem returns a Local host on an in-memory filesystem.
func NewMem() *Local {
	return &Local{Fs: afero.NewMemMapFs()}
}

func (l *Local) WriteFile(name string, data []byte) error {
	if dir := filepath.Dir(name); dir != "." && dir != "" {
		if err := l.Fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(l.Fs, name, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (l *Local) ReadFile(name string) ([]byte, error) {
	b, err := afero.ReadFile(l.Fs, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

// Run executes a command and captures its output. A non-zero exit returns
// the result together with a *CommandError.
func (l *Local) Run(ctx context.Context, name string, args ...string) (ExecResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = l.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	res.ExitCode = -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}
	return res, &CommandError{
		Command:  strings.TrimSpace(name + " " + strings.Join(args, " ")),
		ExitCode: res.ExitCode,
		Stderr:   res.Stderr,
		Err:      err,
	}
}
