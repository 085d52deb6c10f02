package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

var _ ProcessRunner = (*shellRunner)(nil)

// Invocation is the raw outcome of one child process.
type Invocation struct {
	ExitCode int
	Elapsed  time.Duration
	Stdout   string
	Stderr   string
}

// ProcessRunner executes a command string and blocks until it exits.
// Timeouts are the business of the command itself.
type ProcessRunner interface {
	Run(ctx context.Context, command string) (*Invocation, error)
}

type shellRunner struct {
	shell   string
	workDir string
	log     log.Logger
}

// NewShellRunner returns a ProcessRunner that passes commands to shell -c,
// running them in workDir (the current directory when empty).
func NewShellRunner(shell string, workDir string, logger log.Logger) ProcessRunner {
	if shell == "" {
		shell = DefaultShell
	}
	if logger == nil {
		logger = log.New()
		logger.Error("No logger provided, using default")
	}
	return &shellRunner{
		shell:   shell,
		workDir: workDir,
		log:     logger,
	}
}

// Run implements ProcessRunner. A non-zero exit is not an error; failing to
// start the shell, or ctx ending while the child runs, is.
func (r *shellRunner) Run(ctx context.Context, command string) (*Invocation, error) {
	cmd := exec.CommandContext(ctx, r.shell, ShellCommandFlag, command)
	cmd.Dir = r.workDir
	// The verifier runs as a grandchild of the shell; kill the whole group.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = KillWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("Running command", "dir", cmd.Dir, "command", command)

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("command interrupted after %v: %w", elapsed, ctxErr)
	}

	inv := &Invocation{
		Elapsed: elapsed,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("failed to run command: %w", runErr)
		}
		inv.ExitCode = exitCode(exitErr)
	}

	r.log.Debug("Command finished", "exit_code", inv.ExitCode, "elapsed", elapsed)
	return inv, nil
}

// exitCode reports the child's exit status. Children killed by a signal
// report the negated signal number.
func exitCode(exitErr *exec.ExitError) int {
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return -int(status.Signal())
	}
	return exitErr.ExitCode()
}
