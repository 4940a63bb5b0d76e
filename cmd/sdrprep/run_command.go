package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sdrprep/internal/config"
	"sdrprep/internal/hotplug"
	"sdrprep/internal/notifications"
	"sdrprep/internal/orchestrator"
	"sdrprep/internal/procrun"
	"sdrprep/internal/report"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var stageFlag string
	var force bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the provisioning stages in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			stages, err := ctx.loadStages()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			orch := orchestrator.New(cfg, stages, store, procrun.New(),
				orchestrator.WithLogger(logger),
			)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Detector.NetlinkEvents && !dryRun {
				monitor := hotplug.NewNetlinkMonitor(orch.Detector(), logger)
				_ = monitor.Start(runCtx)
				defer monitor.Stop()
			}

			rep, runErr := orch.Run(runCtx, orchestrator.RunOptions{
				OnlyStage: stageFlag,
				Force:     force,
				DryRun:    dryRun,
			})

			out := cmd.OutOrStdout()
			if rep != nil {
				colorize := shouldColorize(out)
				results := resultsByStage(rep)
				writeStageTable(out, stages, results, colorize)
				writeFailureDetails(out, stages, results)
				writeRunSummary(out, rep, colorize)
				if force && stageFlag != "" && !dryRun {
					fmt.Fprintf(out, "Note: only %s was reset; later stage checkpoints may reflect its previous result\n", stageFlag)
				}
			}
			if runErr != nil {
				return runErr
			}

			if !dryRun {
				notifyRunOutcome(cmd, cfg, rep)
			}

			switch rep.Status {
			case report.RunAwaitingUser:
				return &exitError{
					code:    exitAwaitingUser,
					message: "log out and back in (or reboot), then run 'sdrprep ack-reboot' to continue",
				}
			case report.RunFailed:
				return &exitError{code: exitFailed, message: "one or more stages failed"}
			default:
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&stageFlag, "stage", "", "Run only the named stage")
	cmd.Flags().BoolVar(&force, "force", false, "Reset the targeted stage's checkpoint before running")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would run without executing anything")
	return cmd
}

// notifyRunOutcome pushes the run result to the configured ntfy topic.
// Delivery problems are reported but never change the run outcome.
func notifyRunOutcome(cmd *cobra.Command, cfg *config.Config, rep *report.RunReport) {
	svc := notifications.NewService(cfg)
	var err error
	switch rep.Status {
	case report.RunCompleted:
		err = svc.NotifyRunCompleted(cmd.Context(), rep)
	case report.RunFailed:
		err = svc.NotifyRunFailed(cmd.Context(), rep)
	case report.RunAwaitingUser:
		stageID := ""
		for _, res := range rep.Results {
			if res.Status == report.StageSuccess {
				stageID = res.StageID
			}
		}
		err = svc.NotifyRebootRequired(cmd.Context(), stageID)
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "notification delivery failed: %v\n", err)
	}
}

func resultsByStage(rep *report.RunReport) map[string]report.StageResult {
	out := make(map[string]report.StageResult, len(rep.Results))
	for _, res := range rep.Results {
		out[res.StageID] = res
	}
	return out
}
