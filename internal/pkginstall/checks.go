package pkginstall

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strings"
	"time"

	"sdrprep/internal/procrun"
	"sdrprep/internal/stagedef"
)

const checkTimeout = 30 * time.Second

// Satisfied evaluates a precondition against local system state. A nil check
// never short-circuits. The detail string explains the verdict either way.
func (i *Installer) Satisfied(ctx context.Context, check *stagedef.Check) (bool, string, error) {
	if check == nil {
		return false, "no precondition declared", nil
	}
	switch check.Kind {
	case stagedef.CheckBinary:
		if path, err := i.lookPath(check.Target); err == nil {
			return true, fmt.Sprintf("binary %q at %s", check.Target, path), nil
		}
		return false, fmt.Sprintf("binary %q not found", check.Target), nil
	case stagedef.CheckFile:
		if _, err := os.Stat(check.Target); err == nil {
			return true, fmt.Sprintf("path %s exists", check.Target), nil
		}
		return false, fmt.Sprintf("path %s missing", check.Target), nil
	case stagedef.CheckPackage:
		return i.packageInstalled(ctx, check.Target)
	case stagedef.CheckCapability:
		return i.capabilitySet(ctx, check.Target)
	case stagedef.CheckGroup:
		return groupMembership(check.Target)
	case stagedef.CheckCommand:
		return i.commandPasses(ctx, check.Argv)
	default:
		return false, fmt.Sprintf("unknown precondition kind %q", check.Kind), nil
	}
}

func (i *Installer) packageInstalled(ctx context.Context, pkg string) (bool, string, error) {
	res, err := i.runner.Run(ctx, procrun.Command{
		Path:    "dpkg-query",
		Args:    []string{"-W", "-f=${Status}", pkg},
		Timeout: checkTimeout,
	})
	if err != nil {
		// dpkg missing entirely: treat as unsatisfied, the action decides.
		return false, fmt.Sprintf("dpkg-query unavailable: %v", err), nil
	}
	if res.ExitCode == 0 && strings.Contains(res.Stdout, "install ok installed") {
		return true, fmt.Sprintf("package %q installed", pkg), nil
	}
	return false, fmt.Sprintf("package %q not installed", pkg), nil
}

func (i *Installer) capabilitySet(ctx context.Context, target string) (bool, string, error) {
	res, err := i.runner.Run(ctx, procrun.Command{
		Path:    "getcap",
		Args:    []string{target},
		Timeout: checkTimeout,
	})
	if err != nil {
		return false, fmt.Sprintf("getcap unavailable: %v", err), nil
	}
	if res.ExitCode == 0 && strings.Contains(res.Stdout, "cap_") {
		return true, fmt.Sprintf("capability set on %s", target), nil
	}
	return false, fmt.Sprintf("no capability on %s", target), nil
}

func (i *Installer) commandPasses(ctx context.Context, argv []string) (bool, string, error) {
	if len(argv) == 0 {
		return false, "empty precondition argv", nil
	}
	res, err := i.runner.Run(ctx, procrun.Command{
		Path:    argv[0],
		Args:    argv[1:],
		Timeout: checkTimeout,
	})
	if err != nil {
		return false, fmt.Sprintf("precondition command unavailable: %v", err), nil
	}
	if res.TimedOut {
		return false, "precondition command timed out", nil
	}
	if res.ExitCode == 0 {
		return true, "precondition command passed", nil
	}
	return false, fmt.Sprintf("precondition command exited %d", res.ExitCode), nil
}

func groupMembership(group string) (bool, string, error) {
	name := invokingUser()
	if name == "" {
		return false, "cannot resolve invoking user", nil
	}
	u, err := user.Lookup(name)
	if err != nil {
		return false, fmt.Sprintf("user %q not found", name), nil
	}
	gids, err := u.GroupIds()
	if err != nil {
		return false, fmt.Sprintf("group lookup for %q failed: %v", name, err), nil
	}
	for _, gid := range gids {
		g, err := user.LookupGroupId(gid)
		if err != nil {
			continue
		}
		if g.Name == group {
			return true, fmt.Sprintf("user %q in group %q", name, group), nil
		}
	}
	return false, fmt.Sprintf("user %q not in group %q", name, group), nil
}

// invokingUser resolves the operator even when the orchestrator runs under
// sudo, matching the behaviour of the provisioning stages it drives.
func invokingUser() string {
	if su := strings.TrimSpace(os.Getenv("SUDO_USER")); su != "" {
		return su
	}
	if u := strings.TrimSpace(os.Getenv("USER")); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

func defaultLookPath(binary string) (string, error) {
	return exec.LookPath(binary)
}
