package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the stage catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := ctx.loadStages()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(stages))
			for _, stage := range stages {
				device := ""
				if stage.Device != nil {
					device = stage.Device.String()
				}
				rows = append(rows, []string{
					stage.ID,
					stage.DisplayLabel(),
					fmt.Sprintf("%d", stage.MaxAttempts),
					yesNo(stage.Retryable),
					yesNo(stage.RequiresReboot),
					device,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Stage", "Label", "Max Attempts", "Retryable", "Needs Reboot", "Device"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
