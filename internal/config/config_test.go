package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if path == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Detector.PollIntervalMS != defaultDetectorPollMS {
		t.Fatalf("unexpected poll interval: %d", cfg.Detector.PollIntervalMS)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadParsesAndExpandsPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`state_dir = "~/state"`,
		"[detector]",
		"poll_interval_ms = 250",
		"timeout_seconds = 5",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Paths.StateDir != filepath.Join(home, "state") {
		t.Fatalf("state dir not expanded: %q", cfg.Paths.StateDir)
	}
	if cfg.DevicePollInterval() != 250*time.Millisecond {
		t.Fatalf("unexpected poll interval: %s", cfg.DevicePollInterval())
	}
	if cfg.DeviceTimeout() != 5*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.DeviceTimeout())
	}
}

func TestValidateRejectsBadDetector(t *testing.T) {
	cfg := Default()
	cfg.Detector.PollIntervalMS = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero poll interval")
	}

	cfg = Default()
	cfg.Detector.PollIntervalMS = 10000
	cfg.Detector.TimeoutSeconds = 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when timeout is under one poll interval")
	}
}

func TestValidateRejectsBadRetry(t *testing.T) {
	cfg := Default()
	cfg.Retry.BackoffCapMS = cfg.Retry.BackoffBaseMS - 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when cap is under base")
	}
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "yaml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

func TestCheckpointAndLockPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.StateDir = "/tmp/sdrprep-test"
	if got := cfg.CheckpointPath(); got != "/tmp/sdrprep-test/checkpoint.db" {
		t.Fatalf("unexpected checkpoint path: %q", got)
	}
	if got := cfg.LockPath(); got != "/tmp/sdrprep-test/sdrprep.lock" {
		t.Fatalf("unexpected lock path: %q", got)
	}
}

func TestSampleConfigParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.toml")
	if err := os.WriteFile(path, []byte(SampleConfig()), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}
