// Package triage constructs and dispatches the external reproduction and
// reduction tool invocations.
package triage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// ErrTestcaseNotFound indicates the positional testcase argument does not
// name an existing file.
var ErrTestcaseNotFound = errors.New("testcase not found")

// ExitStatusError carries the non-zero exit status of an external tool. The
// dispatcher surfaces it without interpreting crash semantics.
type ExitStatusError int

func (e ExitStatusError) Error() string {
	return fmt.Sprintf("exited with status %d", int(e))
}

// Runner executes an external command and returns its exit status. Tests
// substitute a fake to capture constructed argv without spawning anything.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (int, error)
}

// ExecRunner runs commands via os/exec with stdio inherited from this
// process. Dispatch blocks until the external tool exits.
type ExecRunner struct {
	Logger *zap.Logger
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (int, error) {
	r.Logger.Debug("calling external tool", zap.String("command", name), zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("failed to run %s: %w", name, err)
	}
	return 0, nil
}

// validateTestcase checks the testcase file exists before dispatch.
func validateTestcase(testcase string) error {
	info, err := os.Stat(testcase)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrTestcaseNotFound, testcase)
	}
	return nil
}
