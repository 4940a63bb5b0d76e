package probe_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"sdrprep/internal/probe"
	"sdrprep/internal/procrun"
	"sdrprep/internal/stagedef"
	"sdrprep/internal/testsupport"
)

func stageWithProbe(spec *stagedef.Probe) stagedef.Stage {
	return stagedef.Stage{ID: "test-stage", Verification: spec}
}

func TestCheckPassesOnZeroExit(t *testing.T) {
	runner := testsupport.NewFakeRunner()
	runner.ScriptExit("bladeRF-cli -p", 0)
	prober := probe.New(runner, nil)

	verdict, err := prober.Check(context.Background(), stageWithProbe(&stagedef.Probe{
		Argv: []string{"bladeRF-cli", "-p"},
	}), time.Minute)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !verdict.Passed {
		t.Fatalf("expected pass, got %q", verdict.Detail)
	}
}

func TestCheckFailsOnNonZeroExit(t *testing.T) {
	runner := testsupport.NewFakeRunner()
	runner.Script("bladeRF-cli -p", testsupport.RunnerResponse{
		Result: procrun.Result{ExitCode: 1, Stderr: "No bladeRF devices found"},
	})
	prober := probe.New(runner, nil)

	verdict, err := prober.Check(context.Background(), stageWithProbe(&stagedef.Probe{
		Argv: []string{"bladeRF-cli", "-p"},
	}), time.Minute)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if verdict.Passed {
		t.Fatal("expected failure")
	}
	if verdict.Result == nil || verdict.Result.Stderr == "" {
		t.Fatal("expected diagnostic output retained")
	}
}

func TestCheckTimeoutVerdict(t *testing.T) {
	runner := testsupport.NewFakeRunner()
	runner.Script("slow-probe", testsupport.RunnerResponse{
		Result: procrun.Result{ExitCode: -1, TimedOut: true},
	})
	prober := probe.New(runner, nil)

	verdict, err := prober.Check(context.Background(), stageWithProbe(&stagedef.Probe{
		Argv: []string{"slow-probe"},
	}), time.Second)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if verdict.Passed {
		t.Fatal("timed out probe must fail")
	}
}

func TestCheckMinVersionSatisfied(t *testing.T) {
	runner := testsupport.NewFakeRunner()
	runner.Script("gnuradio-companion --version", testsupport.RunnerResponse{
		Result: procrun.Result{ExitCode: 0, Stdout: "GNU Radio Companion 3.10.5.1"},
	})
	prober := probe.New(runner, nil)

	verdict, err := prober.Check(context.Background(), stageWithProbe(&stagedef.Probe{
		Argv:       []string{"gnuradio-companion", "--version"},
		MinVersion: "3.8",
	}), time.Minute)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !verdict.Passed {
		t.Fatalf("expected version to satisfy, got %q", verdict.Detail)
	}
}

func TestCheckMinVersionTooLow(t *testing.T) {
	runner := testsupport.NewFakeRunner()
	runner.Script("gnuradio-companion --version", testsupport.RunnerResponse{
		Result: procrun.Result{ExitCode: 0, Stdout: "GNU Radio Companion 3.7.14"},
	})
	prober := probe.New(runner, nil)

	verdict, err := prober.Check(context.Background(), stageWithProbe(&stagedef.Probe{
		Argv:       []string{"gnuradio-companion", "--version"},
		MinVersion: "3.8",
	}), time.Minute)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if verdict.Passed {
		t.Fatal("expected version below minimum to fail")
	}
}

func TestCheckMinVersionMissingFromOutput(t *testing.T) {
	runner := testsupport.NewFakeRunner()
	runner.Script("tool --version", testsupport.RunnerResponse{
		Result: procrun.Result{ExitCode: 0, Stdout: "no digits here"},
	})
	prober := probe.New(runner, nil)

	verdict, err := prober.Check(context.Background(), stageWithProbe(&stagedef.Probe{
		Argv:       []string{"tool", "--version"},
		MinVersion: "1.0",
	}), time.Minute)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if verdict.Passed {
		t.Fatal("expected missing version string to fail")
	}
}

func TestCheckNoProbePassesTrivially(t *testing.T) {
	prober := probe.New(testsupport.NewFakeRunner(), nil)
	verdict, err := prober.Check(context.Background(), stagedef.Stage{ID: "plain"}, time.Minute)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !verdict.Passed {
		t.Fatal("stage without probe must pass")
	}
}

func TestCheckLaunchErrorPropagates(t *testing.T) {
	runner := testsupport.NewFakeRunner()
	launchErr := errors.New("exec not found")
	runner.Script("ghost", testsupport.RunnerResponse{Err: launchErr})
	prober := probe.New(runner, nil)

	_, err := prober.Check(context.Background(), stageWithProbe(&stagedef.Probe{
		Argv: []string{"ghost"},
	}), time.Minute)
	if !errors.Is(err, launchErr) {
		t.Fatalf("expected launch error, got %v", err)
	}
}
