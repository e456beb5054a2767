//go:build unix

package render

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExecRunnerTimeoutStopsChildProcesses(t *testing.T) {
	sh := requireShell(t)
	// A grandchild that survived would hold stdout open until WaitDelay
	// (the grace period) expired.
	r := &ExecRunner{Timeout: 50 * time.Millisecond, KillGrace: 3 * time.Second}

	start := time.Now()
	_, err := r.Run(context.Background(), Command{Name: sh, Args: []string{"-c", "sleep 30 & wait"}})
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestExecRunnerCancelStopsChildProcesses(t *testing.T) {
	sh := requireShell(t)
	r := &ExecRunner{KillGrace: 3 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, Command{Name: sh, Args: []string{"-c", "sleep 30 | cat"}})
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 2*time.Second)
}
