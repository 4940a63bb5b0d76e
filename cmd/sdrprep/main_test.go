package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q
scratch_dir = %q

[detector]
netlink_events = false
`,
		filepath.Join(base, "state"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "scratch"),
	)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}

func TestStagesCommandListsCatalog(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCLI(t, "--config", cfgPath, "stages")
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	for _, id := range []string{"system-update", "sdr-driver", "usb-permissions", "capture-verify"} {
		requireContains(t, out, id)
	}
}

func TestStatusCommandWithoutRuns(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCLI(t, "--config", cfgPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "No runs recorded yet")
	requireContains(t, out, "pending")
}

func TestRunDryRunExecutesNothing(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCLI(t, "--config", cfgPath, "run", "--dry-run")
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	requireContains(t, out, "system-update")
	requireContains(t, out, "pending")
}

func TestRunRejectsUnknownStage(t *testing.T) {
	cfgPath := writeTestConfig(t)
	_, err := runCLI(t, "--config", cfgPath, "run", "--stage", "nope")
	if err == nil {
		t.Fatal("expected unknown stage to error")
	}
	if code := exitCodeFor(err); code != exitConfiguration {
		t.Fatalf("expected configuration exit code, got %d", code)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowPrintsResolvedValues(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCLI(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "state_dir")
	requireContains(t, out, "[detector]")
}

func TestAckRebootWithoutPendingFails(t *testing.T) {
	cfgPath := writeTestConfig(t)
	_, err := runCLI(t, "--config", cfgPath, "ack-reboot")
	if err == nil {
		t.Fatal("expected ack-reboot with nothing pending to fail")
	}
}
