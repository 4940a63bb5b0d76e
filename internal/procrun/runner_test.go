package procrun_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"sdrprep/internal/procrun"
	"sdrprep/internal/services"
)

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	runner := procrun.New()

	res, err := runner.Run(context.Background(), procrun.Command{
		Path: "sh",
		Args: []string{"-c", "echo out; echo err >&2; exit 3"},
	})
	if err != nil {
		t.Fatalf("non-zero exit must not error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("unexpected exit code: %d", res.ExitCode)
	}
	if res.Stdout != "out\n" {
		t.Fatalf("unexpected stdout: %q", res.Stdout)
	}
	if res.Stderr != "err\n" {
		t.Fatalf("unexpected stderr: %q", res.Stderr)
	}
	if res.TimedOut {
		t.Fatal("unexpected timeout flag")
	}
}

func TestRunZeroExit(t *testing.T) {
	runner := procrun.New()

	res, err := runner.Run(context.Background(), procrun.Command{Path: "true"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("unexpected exit code: %d", res.ExitCode)
	}
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	runner := procrun.New()

	start := time.Now()
	res, err := runner.Run(context.Background(), procrun.Command{
		Path:    "sh",
		Args:    []string{"-c", "sleep 30"},
		Timeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("timeout must not error: %v", err)
	}
	if !res.TimedOut {
		t.Fatal("expected TimedOut")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout did not terminate process promptly: %s", elapsed)
	}
}

func TestRunLaunchErrorForMissingBinary(t *testing.T) {
	runner := procrun.New()

	_, err := runner.Run(context.Background(), procrun.Command{Path: "definitely-not-a-binary-sdrprep"})
	if err == nil {
		t.Fatal("expected launch error")
	}
	if !errors.Is(err, services.ErrLaunch) {
		t.Fatalf("expected ErrLaunch, got %v", err)
	}
}

func TestRunEmptyPath(t *testing.T) {
	runner := procrun.New()

	_, err := runner.Run(context.Background(), procrun.Command{})
	if !errors.Is(err, services.ErrLaunch) {
		t.Fatalf("expected ErrLaunch for empty path, got %v", err)
	}
}

func TestRunParentCancellation(t *testing.T) {
	runner := procrun.New()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := runner.Run(ctx, procrun.Command{
		Path: "sh",
		Args: []string{"-c", "sleep 30"},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestResultOutputPrefersStderr(t *testing.T) {
	res := procrun.Result{Stdout: "stdout text", Stderr: "stderr text"}
	if res.Output() != "stderr text" {
		t.Fatalf("unexpected output: %q", res.Output())
	}
	res.Stderr = "  "
	if res.Output() != "stdout text" {
		t.Fatalf("unexpected output: %q", res.Output())
	}
}
