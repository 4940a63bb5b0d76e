package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"sdrprep/internal/checkpoint"
	"sdrprep/internal/config"
	"sdrprep/internal/hotplug"
	"sdrprep/internal/logging"
	"sdrprep/internal/pkginstall"
	"sdrprep/internal/probe"
	"sdrprep/internal/procrun"
	"sdrprep/internal/report"
	"sdrprep/internal/services"
	"sdrprep/internal/stagedef"
)

// ErrLocked indicates another sdrprep process holds the run lock.
var ErrLocked = errors.New("another sdrprep run is in progress")

// ErrAwaitingReboot indicates a prior run handed off to the user for a
// reboot or relogin that has not been acknowledged yet.
var ErrAwaitingReboot = errors.New("reboot acknowledgement pending; run 'sdrprep ack-reboot' after logging back in")

// Orchestrator executes the stage catalog against the checkpoint store.
type Orchestrator struct {
	cfg       *config.Config
	stages    []stagedef.Stage
	store     *checkpoint.Store
	installer *pkginstall.Installer
	prober    *probe.Prober
	detector  *hotplug.Detector
	logger    *slog.Logger
	sleep     func(context.Context, time.Duration) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDetector overrides the USB device detector (tests inject a fake
// snapshot through this).
func WithDetector(detector *hotplug.Detector) Option {
	return func(o *Orchestrator) {
		if detector != nil {
			o.detector = detector
		}
	}
}

// WithSleep overrides the backoff sleeper (tests skip real delays).
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// WithInstaller overrides the package installer.
func WithInstaller(installer *pkginstall.Installer) Option {
	return func(o *Orchestrator) {
		if installer != nil {
			o.installer = installer
		}
	}
}

// New wires an orchestrator over the shared command runner.
func New(cfg *config.Config, stages []stagedef.Stage, store *checkpoint.Store, runner procrun.Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		stages: stages,
		store:  store,
		logger: logging.NewNop(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.installer == nil {
		o.installer = pkginstall.New(runner, pkginstall.WithLogger(o.logger))
	}
	o.prober = probe.New(runner, o.logger)
	if o.detector == nil {
		o.detector = hotplug.NewDetector(hotplug.NewSysfsSnapshot(""), hotplug.WithLogger(o.logger))
	}
	o.logger = logging.NewComponentLogger(o.logger, "orchestrator")
	return o
}

// Detector exposes the device detector so a netlink monitor can wake it.
func (o *Orchestrator) Detector() *hotplug.Detector {
	return o.detector
}

// RunOptions narrow or reset a run.
type RunOptions struct {
	// OnlyStage restricts execution to a single stage id.
	OnlyStage string
	// Force resets the targeted stage's checkpoint before running. With no
	// OnlyStage it resets every stage.
	Force bool
	// DryRun reports what would execute without running anything or touching
	// checkpoints.
	DryRun bool
}

// Run executes the catalog. Stage failures are reported through the returned
// RunReport, not the error; a non-nil error means the run could not proceed
// at all (lock held, bad stage id, storage failure, cancellation).
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*report.RunReport, error) {
	if opts.OnlyStage != "" {
		if _, ok := stagedef.ByID(o.stages, opts.OnlyStage); !ok {
			return nil, services.Wrap(services.ErrConfiguration, opts.OnlyStage, "run", "unknown stage id", nil)
		}
	}

	lock := flock.New(o.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	defer func() { _ = lock.Unlock() }()

	runID := report.NewRunID()
	ctx = services.WithRunID(ctx, runID)
	logger := o.logger.With(logging.String(logging.FieldRunID, runID))

	state, err := o.store.RunState(ctx)
	if err != nil {
		return nil, err
	}
	if state != nil && state.AwaitingReboot {
		if !opts.DryRun {
			return nil, ErrAwaitingReboot
		}
	}

	if !opts.DryRun {
		if err := o.store.NormalizeInterrupted(ctx); err != nil {
			return nil, err
		}
		if opts.Force {
			if err := o.forceReset(ctx, opts.OnlyStage); err != nil {
				return nil, err
			}
		}
	}

	recorded, err := o.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		return o.plan(recorded, state), nil
	}

	started := time.Now().UTC()
	if err := o.store.SetRunState(ctx, checkpoint.RunState{
		RunID:     runID,
		Status:    report.RunInProgress,
		StartedAt: started,
	}); err != nil {
		return nil, err
	}

	rep := &report.RunReport{RunID: runID, Status: report.RunInProgress, Started: started}
	awaitingReboot := false
	blockedBy := ""

	for _, stage := range o.stages {
		prior := recorded[stage.ID]

		switch {
		case opts.OnlyStage != "" && stage.ID != opts.OnlyStage:
			rep.Results = append(rep.Results, priorOrPending(stage.ID, prior))
			continue
		case awaitingReboot:
			rep.Results = append(rep.Results, priorOrPending(stage.ID, prior))
			continue
		case prior.Status.Done():
			logger.Info("stage already complete; skipping",
				logging.String(logging.FieldStage, stage.ID),
				logging.String("status", string(prior.Status)),
			)
			rep.Results = append(rep.Results, prior)
			continue
		case blockedBy != "":
			res := report.StageResult{
				StageID:    stage.ID,
				Status:     report.StageBlocked,
				ErrKind:    "blocked",
				ErrMessage: "blocked by failed stage " + blockedBy,
			}
			if err := o.store.Record(ctx, res); err != nil {
				return rep, err
			}
			rep.Results = append(rep.Results, res)
			continue
		}

		res, runErr := o.runStage(ctx, logger, stage)
		if runErr != nil {
			// Cancellation: leave an interrupted marker so the next run
			// rewinds this stage to pending.
			if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
				interruptCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = o.store.MarkInterrupted(interruptCtx)
				cancel()
				res.Status = report.StageInterrupted
				rep.Results = append(rep.Results, res)
			}
			return rep, runErr
		}

		// A successful grant that needs a new session carries the
		// permission_pending kind so the checkpoint records why the run
		// paused.
		if res.Status == report.StageSuccess && stage.RequiresReboot {
			res.ErrKind = services.Kind(services.ErrPermissionPending)
			res.ErrMessage = "takes effect after relogin or reboot"
		}

		if err := o.store.Record(ctx, res); err != nil {
			return rep, err
		}
		rep.Results = append(rep.Results, res)

		switch res.Status {
		case report.StageFailed, report.StageBlocked:
			blockedBy = stage.ID
		case report.StageSuccess:
			if stage.RequiresReboot {
				logger.Info("stage requires relogin or reboot; pausing run",
					logging.String(logging.FieldStage, stage.ID),
				)
				awaitingReboot = true
			}
		}
	}

	rep.Ended = time.Now().UTC()
	rep.Status = report.Summarize(rep.Results, awaitingReboot)
	if err := o.store.SetRunState(ctx, checkpoint.RunState{
		RunID:          runID,
		Status:         rep.Status,
		AwaitingReboot: awaitingReboot,
		StartedAt:      started,
	}); err != nil {
		return rep, err
	}
	return rep, nil
}

func (o *Orchestrator) forceReset(ctx context.Context, onlyStage string) error {
	if onlyStage != "" {
		return o.store.Reset(ctx, onlyStage)
	}
	for _, stage := range o.stages {
		if err := o.store.Reset(ctx, stage.ID); err != nil {
			return err
		}
	}
	return nil
}

// plan renders the would-run view for --dry-run without touching state.
func (o *Orchestrator) plan(recorded map[string]report.StageResult, state *checkpoint.RunState) *report.RunReport {
	rep := &report.RunReport{Status: report.RunInProgress}
	if state != nil {
		rep.RunID = state.RunID
	}
	for _, stage := range o.stages {
		rep.Results = append(rep.Results, priorOrPending(stage.ID, recorded[stage.ID]))
	}
	awaiting := state != nil && state.AwaitingReboot
	rep.Status = report.Summarize(rep.Results, awaiting)
	return rep
}

func priorOrPending(stageID string, prior report.StageResult) report.StageResult {
	if prior.StageID == "" {
		return report.StageResult{StageID: stageID, Status: report.StagePending}
	}
	return prior
}
