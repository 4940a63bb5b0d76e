package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"sdrprep/internal/hotplug"
	"sdrprep/internal/logging"
	"sdrprep/internal/pkginstall"
	"sdrprep/internal/report"
	"sdrprep/internal/services"
	"sdrprep/internal/stagedef"
)

// runStage executes one stage with its retry budget. The returned error is
// non-nil only for cancellation or storage failures; stage-level failures are
// folded into the StageResult. An exhausted retry budget is terminal: the
// stage ends blocked, never failed.
func (o *Orchestrator) runStage(ctx context.Context, logger *slog.Logger, stage stagedef.Stage) (report.StageResult, error) {
	ctx = services.WithStage(ctx, stage.ID)
	stageLogger := logger.With(logging.String(logging.FieldStage, stage.ID))

	var lastErr error
	for attempt := 1; attempt <= stage.MaxAttempts; attempt++ {
		if err := o.store.Record(ctx, report.StageResult{
			StageID:  stage.ID,
			Status:   report.StageRunning,
			Attempts: attempt - 1,
		}); err != nil {
			return report.StageResult{StageID: stage.ID}, err
		}

		stageLogger.Info("stage attempt starting",
			logging.Int(logging.FieldAttempt, attempt),
			logging.Int("max_attempts", stage.MaxAttempts),
		)

		status, err := o.attempt(ctx, stageLogger, stage)
		if err == nil {
			stageLogger.Info("stage complete",
				logging.String("status", string(status)),
				logging.Int(logging.FieldAttempt, attempt),
			)
			return report.StageResult{
				StageID:  stage.ID,
				Status:   status,
				Attempts: attempt,
			}, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return report.StageResult{StageID: stage.ID, Attempts: attempt}, err
		}

		lastErr = err
		stageLogger.Warn("stage attempt failed",
			logging.Int(logging.FieldAttempt, attempt),
			logging.String("err_kind", services.Kind(err)),
			logging.Error(err),
		)

		if !stage.Retryable || services.Terminal(err) {
			return report.StageResult{
				StageID:    stage.ID,
				Status:     report.StageBlocked,
				Attempts:   attempt,
				ErrKind:    services.Kind(err),
				ErrMessage: err.Error(),
			}, nil
		}

		// Checkpoint the failed attempt so status reflects progress mid-run.
		if recErr := o.store.Record(ctx, report.StageResult{
			StageID:    stage.ID,
			Status:     report.StageFailed,
			Attempts:   attempt,
			ErrKind:    services.Kind(err),
			ErrMessage: err.Error(),
		}); recErr != nil {
			return report.StageResult{StageID: stage.ID}, recErr
		}

		if attempt < stage.MaxAttempts {
			delay := backoffDelay(o.cfg.BackoffBase(), o.cfg.BackoffCap(), attempt)
			stageLogger.Info("backing off before retry",
				logging.Duration("delay", delay),
			)
			if sleepErr := o.sleep(ctx, delay); sleepErr != nil {
				return report.StageResult{StageID: stage.ID, Attempts: attempt}, sleepErr
			}
		}
	}

	return report.StageResult{
		StageID:    stage.ID,
		Status:     report.StageBlocked,
		Attempts:   stage.MaxAttempts,
		ErrKind:    services.Kind(lastErr),
		ErrMessage: lastErr.Error(),
	}, nil
}

// attempt performs one pass through the stage: device wait, install,
// verification. A satisfied precondition short-circuits the whole pass; the
// precondition is the evidence, so no probe runs.
func (o *Orchestrator) attempt(ctx context.Context, logger *slog.Logger, stage stagedef.Stage) (report.StageStatus, error) {
	if stage.Device != nil {
		outcome, err := o.detector.WaitFor(ctx, *stage.Device, o.cfg.DevicePollInterval(), o.cfg.DeviceTimeout())
		if err != nil {
			return "", err
		}
		if outcome != hotplug.Found {
			return "", services.Wrap(services.ErrDeviceNotFound, stage.ID, "device wait",
				"no device matching "+stage.Device.String()+" within "+o.cfg.DeviceTimeout().String(), nil)
		}
	}

	installOutcome, err := o.installer.Ensure(ctx, stage, stage.Timeout(o.cfg.DefaultCommandTimeout()))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", services.Wrap(services.ErrLaunch, stage.ID, "install", "", err)
	}
	switch installOutcome.Disposition {
	case pkginstall.AlreadySatisfied:
		return report.StageSatisfied, nil
	case pkginstall.InstallFailed:
		marker := services.ErrInstall
		if installOutcome.TimedOut {
			marker = services.ErrTimeout
		}
		return "", services.Wrap(marker, stage.ID, "install", installOutcome.Detail, nil)
	}

	verdict, err := o.prober.Check(ctx, stage, stage.ProbeTimeout(o.cfg.DefaultCommandTimeout()))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", services.Wrap(services.ErrLaunch, stage.ID, "verify", "", err)
	}
	if !verdict.Passed {
		marker := services.ErrVerification
		if verdict.Result != nil && verdict.Result.TimedOut {
			marker = services.ErrTimeout
		}
		return "", services.Wrap(marker, stage.ID, "verify", verdict.Detail, nil)
	}

	logger.Debug("verification passed", logging.String("detail", verdict.Detail))
	return report.StageSuccess, nil
}
