package testsupport

import (
	"path/filepath"
	"testing"

	"sdrprep/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	// Keep device waits and retries short so tests stay fast.
	cfg.Detector.PollIntervalMS = 10
	cfg.Detector.TimeoutSeconds = 1
	cfg.Detector.NetlinkEvents = false
	cfg.Retry.BackoffBaseMS = 1
	cfg.Retry.BackoffCapMS = 5
	cfg.Runner.DefaultTimeoutSeconds = 5

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return &cfg
}
