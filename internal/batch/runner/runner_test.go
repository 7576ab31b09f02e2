package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"batch-runner/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner() Runner {
	return NewProcessRunner(logger.NewNop())
}

func TestRunExitsZero(t *testing.T) {
	outcome, err := newTestRunner().Run(context.Background(), RunSpec{
		Args:    []string{"sh", "-c", "exit 0"},
		Timeout: 5 * time.Second,
	})

	require.NoError(t, err)
	assert.False(t, outcome.TimedOut)
	assert.Equal(t, 0, outcome.ExitCode)
}

func TestRunExitsNonZero(t *testing.T) {
	outcome, err := newTestRunner().Run(context.Background(), RunSpec{
		Args:    []string{"sh", "-c", "exit 3"},
		Timeout: 5 * time.Second,
	})

	require.NoError(t, err)
	assert.False(t, outcome.TimedOut)
	assert.Equal(t, 3, outcome.ExitCode)
}

func TestRunTimesOutAndKillsProcess(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "pid")

	start := time.Now()
	outcome, err := newTestRunner().Run(context.Background(), RunSpec{
		Args:    []string{"sh", "-c", "echo $$ > " + pidFile + "; sleep 30"},
		Timeout: 500 * time.Millisecond,
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, outcome.TimedOut)
	assert.Less(t, elapsed, 5*time.Second)

	// The shell recorded its own pid; after the forced kill it must be gone.
	raw, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	var pid int
	_, err = fmt.Sscan(string(raw), &pid)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return syscall.Kill(pid, 0) != nil
	}, 2*time.Second, 50*time.Millisecond, "process %d still running after timeout kill", pid)
}

func TestRunSpawnFailure(t *testing.T) {
	_, err := newTestRunner().Run(context.Background(), RunSpec{
		Args:    []string{"/nonexistent/command-that-does-not-exist"},
		Timeout: time.Second,
	})

	assert.Error(t, err)
}

func TestRunEmptyArgs(t *testing.T) {
	_, err := newTestRunner().Run(context.Background(), RunSpec{Timeout: time.Second})
	assert.Error(t, err)
}

func TestRunPassesEnvironmentAndWorkingDirectory(t *testing.T) {
	dir := t.TempDir()

	outcome, err := newTestRunner().Run(context.Background(), RunSpec{
		Args:             []string{"sh", "-c", `echo "$BATCH_TEST_VAR" > marker`},
		WorkingDirectory: dir,
		Environment:      map[string]string{"BATCH_TEST_VAR": "hello"},
		Timeout:          5 * time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, outcome.ExitCode)

	raw, err := os.ReadFile(filepath.Join(dir, "marker"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(raw))
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	_, err := newTestRunner().Run(ctx, RunSpec{
		Args:    []string{"sh", "-c", "sleep 30"},
		Timeout: time.Minute,
	})

	assert.ErrorIs(t, err, context.Canceled)
}
