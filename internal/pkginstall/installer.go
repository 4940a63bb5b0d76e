package pkginstall

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sdrprep/internal/logging"
	"sdrprep/internal/procrun"
	"sdrprep/internal/stagedef"
)

// Disposition classifies the outcome of an Ensure call.
type Disposition int

const (
	// AlreadySatisfied means the precondition held and nothing ran.
	AlreadySatisfied Disposition = iota
	// Installed means every action completed with exit zero.
	Installed
	// InstallFailed means an action exited non-zero or timed out.
	InstallFailed
)

func (d Disposition) String() string {
	switch d {
	case AlreadySatisfied:
		return "already_satisfied"
	case Installed:
		return "installed"
	case InstallFailed:
		return "install_failed"
	default:
		return "unknown"
	}
}

// Outcome carries the disposition plus the diagnostics the orchestrator
// records in the run report.
type Outcome struct {
	Disposition Disposition
	Detail      string
	TimedOut    bool
	LastResult  *procrun.Result
}

// Installer executes stage actions idempotently.
type Installer struct {
	runner   procrun.Runner
	logger   *slog.Logger
	lookPath func(string) (string, error)
}

// Option configures an Installer.
type Option func(*Installer)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Installer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithLookPath overrides PATH resolution (tests).
func WithLookPath(fn func(string) (string, error)) Option {
	return func(i *Installer) {
		if fn != nil {
			i.lookPath = fn
		}
	}
}

// New constructs an Installer over the given command runner.
func New(runner procrun.Runner, opts ...Option) *Installer {
	inst := &Installer{
		runner:   runner,
		logger:   logging.NewNop(),
		lookPath: defaultLookPath,
	}
	for _, opt := range opts {
		opt(inst)
	}
	inst.logger = logging.NewComponentLogger(inst.logger, "installer")
	return inst
}

// Ensure brings a stage's install state about: it checks the precondition,
// short-circuits when already satisfied, and otherwise runs the stage's
// actions once in order. On a dpkg-style failure the stage's repair commands
// run once, then the failure is reported; retrying is the orchestrator's
// decision, not ours, so attempt counting stays centralized.
//
// The returned error is non-nil only for launch failures and context
// cancellation; a non-zero exit is reported through the Outcome.
func (i *Installer) Ensure(ctx context.Context, stage stagedef.Stage, timeout time.Duration) (Outcome, error) {
	satisfied, detail, err := i.Satisfied(ctx, stage.Precondition)
	if err != nil {
		return Outcome{}, err
	}
	if satisfied {
		i.logger.Debug("precondition satisfied",
			logging.String(logging.FieldStage, stage.ID),
			logging.String("detail", detail),
		)
		return Outcome{Disposition: AlreadySatisfied, Detail: detail}, nil
	}

	for idx, action := range stage.Actions {
		res, err := i.runner.Run(ctx, procrun.Command{
			Path:    action.Argv[0],
			Args:    action.Argv[1:],
			Timeout: timeout,
		})
		if err != nil {
			return Outcome{}, err
		}
		if res.TimedOut {
			return Outcome{
				Disposition: InstallFailed,
				Detail:      fmt.Sprintf("action %d (%s) timed out after %s", idx+1, action.Argv[0], timeout),
				TimedOut:    true,
				LastResult:  &res,
			}, nil
		}
		if res.ExitCode != 0 {
			i.runRepair(ctx, stage, timeout)
			return Outcome{
				Disposition: InstallFailed,
				Detail:      fmt.Sprintf("action %d (%s) exited %d: %s", idx+1, action.Argv[0], res.ExitCode, res.Output()),
				LastResult:  &res,
			}, nil
		}
	}

	return Outcome{Disposition: Installed, Detail: "actions completed"}, nil
}

// runRepair executes the stage's repair commands best-effort. Failures are
// logged and otherwise ignored; the original action failure is what gets
// reported.
func (i *Installer) runRepair(ctx context.Context, stage stagedef.Stage, timeout time.Duration) {
	for _, action := range stage.Repair {
		res, err := i.runner.Run(ctx, procrun.Command{
			Path:    action.Argv[0],
			Args:    action.Argv[1:],
			Timeout: timeout,
		})
		if err != nil {
			i.logger.Warn("repair command failed to run",
				logging.String(logging.FieldStage, stage.ID),
				logging.String("command", action.Argv[0]),
				logging.Error(err),
			)
			return
		}
		i.logger.Info("repair command finished",
			logging.String(logging.FieldStage, stage.ID),
			logging.String("command", action.Argv[0]),
			logging.Int("exit_code", res.ExitCode),
		)
	}
}
