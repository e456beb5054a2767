package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// DefaultKillGrace is how long a process gets between SIGTERM and SIGKILL.
const DefaultKillGrace = 5 * time.Second

// ProcessResult captures a finished external process.
type ProcessResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes a Command and waits for it.
//
// Contract:
//   - A process that ran to completion returns a nil error whatever its exit
//     code; ExitCode carries the status.
//   - Spawn failures, timeouts, and cancellation return a non-nil error.
//   - Context: cancellation must terminate the process.
type Runner interface {
	Run(ctx context.Context, cmd Command) (ProcessResult, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Timeout bounds each run. Zero waits indefinitely.
	Timeout time.Duration

	// KillGrace is the delay between SIGTERM and SIGKILL.
	// Default: DefaultKillGrace
	KillGrace time.Duration
}

var _ Runner = (*ExecRunner)(nil)

// Run starts cmd, captures stdout and stderr, and waits for it to exit.
// On timeout or cancellation the process group is sent SIGTERM, then SIGKILL
// after the grace period.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (ProcessResult, error) {
	if cmd.Name == "" {
		return ProcessResult{}, ErrEmptyExecutable
	}

	// CommandContext would SIGKILL immediately; termination is managed below.
	proc := exec.Command(cmd.Name, cmd.Args...)
	proc.Dir = cmd.Dir
	setProcessGroup(proc)
	// Bounds Wait when grandchildren keep the output pipes open.
	proc.WaitDelay = r.killGrace()

	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	start := time.Now()
	if err := proc.Start(); err != nil {
		return ProcessResult{}, fmt.Errorf("start process: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- proc.Wait()
	}()

	var timeout <-chan time.Time
	if r.Timeout > 0 {
		timer := time.NewTimer(r.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	result := func() ProcessResult {
		return ProcessResult{
			ExitCode: proc.ProcessState.ExitCode(),
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Duration: time.Since(start),
		}
	}

	select {
	case err := <-waitErr:
		res := result()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) {
			return res, fmt.Errorf("wait for process: %w", err)
		}
		return res, nil

	case <-timeout:
		r.terminate(proc, waitErr)
		return result(), fmt.Errorf("%w after %v", ErrTimeout, r.Timeout)

	case <-ctx.Done():
		r.terminate(proc, waitErr)
		return result(), ctx.Err()
	}
}

// terminate stops proc and its process group and waits until Wait has
// returned.
func (r *ExecRunner) terminate(proc *exec.Cmd, waitErr <-chan error) {
	_ = signalGroup(proc, syscall.SIGTERM)

	timer := time.NewTimer(r.killGrace())
	defer timer.Stop()

	select {
	case <-waitErr:
	case <-timer.C:
		_ = signalGroup(proc, syscall.SIGKILL)
		<-waitErr
	}
}

func (r *ExecRunner) killGrace() time.Duration {
	if r.KillGrace > 0 {
		return r.KillGrace
	}
	return DefaultKillGrace
}
