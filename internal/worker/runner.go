package worker

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"
)

// Runner starts a command and waits for it. A non-nil error means the
// command could not be run at all and has no exit status.
type Runner interface {
	Run(ctx context.Context, command string, args []string, out io.Writer) (int, error)
}

// ExecRunner runs commands directly (no shell) with stdout and stderr both
// written to out.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, command string, args []string, out io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitCode(exitErr), nil
	}
	return 0, err
}

// exitCode reports a signal-terminated process as the negated signal number.
func exitCode(exitErr *exec.ExitError) int {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return exitErr.ExitCode()
}
