package stagedef

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sdrprep/internal/hotplug"
)

// CheckKind enumerates the precondition probes the installer understands.
type CheckKind string

const (
	// CheckBinary passes when the target executable resolves on PATH.
	CheckBinary CheckKind = "binary"
	// CheckPackage passes when dpkg reports the target package installed.
	CheckPackage CheckKind = "package"
	// CheckFile passes when the target path exists.
	CheckFile CheckKind = "file"
	// CheckCapability passes when getcap reports a capability set on the
	// target binary.
	CheckCapability CheckKind = "capability"
	// CheckGroup passes when the invoking user belongs to the target group.
	CheckGroup CheckKind = "group"
	// CheckCommand passes when the argv exits zero.
	CheckCommand CheckKind = "command"
)

var knownCheckKinds = map[CheckKind]struct{}{
	CheckBinary:     {},
	CheckPackage:    {},
	CheckFile:       {},
	CheckCapability: {},
	CheckGroup:      {},
	CheckCommand:    {},
}

// Check is a declarative precondition. Target carries the binary, package,
// path, or group name depending on Kind; Argv is only used by CheckCommand.
type Check struct {
	Kind   CheckKind `toml:"kind"`
	Target string    `toml:"target"`
	Argv   []string  `toml:"argv"`
}

// Action is one install/configure command.
type Action struct {
	Argv []string `toml:"argv"`
}

// Probe is a verification command, optionally constrained to a minimum
// version parsed from its output.
type Probe struct {
	Argv           []string `toml:"argv"`
	MinVersion     string   `toml:"min_version"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Stage is one unit of provisioning work. Definitions are immutable after
// load; the orchestrator tracks progress in checkpoint state, never here.
type Stage struct {
	ID             string              `toml:"id"`
	Label          string              `toml:"label"`
	Precondition   *Check              `toml:"precondition"`
	Actions        []Action            `toml:"action"`
	Repair         []Action            `toml:"repair"`
	Verification   *Probe              `toml:"verification"`
	Device         *hotplug.Descriptor `toml:"device"`
	MaxAttempts    int                 `toml:"max_attempts"`
	TimeoutSeconds int                 `toml:"timeout_seconds"`
	Retryable      bool                `toml:"retryable"`
	RequiresReboot bool                `toml:"requires_reboot"`
}

// Timeout returns the per-attempt deadline, falling back to the supplied
// default when the stage does not declare one.
func (s Stage) Timeout(fallback time.Duration) time.Duration {
	if s.TimeoutSeconds > 0 {
		return time.Duration(s.TimeoutSeconds) * time.Second
	}
	return fallback
}

// ProbeTimeout returns the verification deadline for this stage.
func (s Stage) ProbeTimeout(fallback time.Duration) time.Duration {
	if s.Verification != nil && s.Verification.TimeoutSeconds > 0 {
		return time.Duration(s.Verification.TimeoutSeconds) * time.Second
	}
	return s.Timeout(fallback)
}

var labelCaser = cases.Title(language.English)

// DisplayLabel returns the configured label, or one derived from the id.
func (s Stage) DisplayLabel() string {
	if label := strings.TrimSpace(s.Label); label != "" {
		return label
	}
	return labelCaser.String(strings.ReplaceAll(s.ID, "-", " "))
}
