package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show checkpointed stage progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := ctx.loadStages()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			results, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			state, err := store.RunState(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			writeStageTable(out, stages, results, colorize)
			writeFailureDetails(out, stages, results)

			if state == nil {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			fmt.Fprintf(out, "Last run %s: %s\n", state.RunID, state.Status)
			if state.AwaitingReboot {
				fmt.Fprintln(out, "Reboot acknowledgement pending: run 'sdrprep ack-reboot' after logging back in")
			}
			return nil
		},
	}
}
