package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"batch-runner/pkg/logger"
)

// RunSpec describes one external process invocation.
type RunSpec struct {
	Args             []string
	WorkingDirectory string
	Environment      map[string]string
	Timeout          time.Duration
}

// Outcome is the terminal result of a supervised process. TimedOut means the
// process was forcibly killed after exceeding the timeout; ExitCode is only
// meaningful when TimedOut is false.
type Outcome struct {
	ExitCode int
	TimedOut bool
}

// killGracePeriod bounds how long the runner waits for a killed process to
// actually exit before giving up on the drain.
const killGracePeriod = 10 * time.Second

// Runner supervises a single external process from spawn to termination.
type Runner interface {
	Run(ctx context.Context, spec RunSpec) (Outcome, error)
}

// NewProcessRunner creates an os/exec based runner.
func NewProcessRunner(log *logger.Logger) Runner {
	return &processRunner{logger: log}
}

type processRunner struct {
	logger *logger.Logger
}

// Run spawns the process described by spec, captures its output, and waits
// for it to exit within the timeout. An error is returned only when the
// process could not be spawned or waited on; a timeout is a regular outcome.
func (r *processRunner) Run(ctx context.Context, spec RunSpec) (Outcome, error) {
	if len(spec.Args) == 0 {
		return Outcome{}, errors.New("empty argument vector")
	}

	cmd := exec.Command(spec.Args[0], spec.Args[1:]...)
	cmd.Dir = spec.WorkingDirectory
	cmd.Env = mergedEnv(spec.Environment)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Outcome{}, fmt.Errorf("failed to start process: %w", err)
	}

	// Output capture is best-effort diagnostics. Each stream gets its own
	// reader so a stalled stdout cannot block stderr. The readers drain
	// until EOF, which the kill below also forces.
	go r.captureOutput("stdout", stdout)
	go r.captureOutput("stderr", stderr)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(spec.Timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return outcomeFromWait(err)
	case <-timer.C:
		r.kill(cmd)
		r.awaitExit(done, cmd)
		return Outcome{TimedOut: true}, nil
	case <-ctx.Done():
		r.kill(cmd)
		r.awaitExit(done, cmd)
		return Outcome{}, ctx.Err()
	}
}

// awaitExit drains the wait goroutine after a kill. The drain is bounded: if
// the process ignores the kill, the runner still returns so the execution
// record gets its terminal update instead of staying RUNNING forever.
func (r *processRunner) awaitExit(done <-chan error, cmd *exec.Cmd) {
	select {
	case <-done:
	case <-time.After(killGracePeriod):
		r.logger.Error("Process did not exit after kill", logger.IntField("pid", cmd.Process.Pid))
	}
}

func (r *processRunner) kill(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		r.logger.Warn("Failed to kill process", logger.ErrorField(err), logger.IntField("pid", cmd.Process.Pid))
	}
}

func (r *processRunner) captureOutput(stream string, pipe io.Reader) {
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		r.logger.Debug("Process output", logger.StringField("stream", stream), logger.StringField("line", scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		r.logger.Warn("Error reading process output", logger.StringField("stream", stream), logger.ErrorField(err))
	}
}

func outcomeFromWait(err error) (Outcome, error) {
	if err == nil {
		return Outcome{ExitCode: 0}, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Outcome{ExitCode: exitErr.ExitCode()}, nil
	}
	return Outcome{}, fmt.Errorf("failed to wait for process: %w", err)
}

func mergedEnv(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil // inherit the parent environment
	}
	env := os.Environ()
	for key, value := range extra {
		env = append(env, key+"="+value)
	}
	return env
}
