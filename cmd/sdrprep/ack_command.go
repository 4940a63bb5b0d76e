package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAckRebootCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ack-reboot",
		Short: "Confirm the requested reboot or relogin happened",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.AckReboot(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Acknowledged; run 'sdrprep run' to continue provisioning")
			return nil
		},
	}
}
