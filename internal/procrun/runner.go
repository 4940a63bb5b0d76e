package procrun

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"sdrprep/internal/services"
)

// Command describes one external invocation.
type Command struct {
	Path    string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

// Result captures the outcome of one invocation. A non-zero exit code is not
// an error; only a failure to launch the executable surfaces as one.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// Output returns stderr when present, stdout otherwise. Diagnostics from
// package managers tend to land on stderr.
func (r Result) Output() string {
	if out := strings.TrimSpace(r.Stderr); out != "" {
		return out
	}
	return strings.TrimSpace(r.Stdout)
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// New returns the exec-backed Runner.
func New() Runner {
	return execRunner{}
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, spec Command) (Result, error) {
	if strings.TrimSpace(spec.Path) == "" {
		return Result{}, services.Wrap(services.ErrLaunch, "", "run command", "executable path is empty", nil)
	}

	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = spec.Env
	}
	// Own process group so a timeout tears down the whole tree, not just the
	// immediate child.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, services.Wrap(services.ErrLaunch, "", "start "+spec.Path, "", err)
	}
	waitErr := cmd.Wait()

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.TimedOut = true
		result.ExitCode = -1
		return result, nil
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, services.Wrap(services.ErrLaunch, "", "wait "+spec.Path, "", waitErr)
	}

	result.ExitCode = 0
	return result, nil
}
