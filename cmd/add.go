package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func AddCmd(a *app) *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add <command> [args...]",
		Short: "Add a command to the end of the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.open()
			if err != nil {
				return err
			}
			defer a.close()

			job, err := q.Add(cmd.Context(), args[0], args[1:])
			if err != nil {
				return fmt.Errorf("failed to add job: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job added: ID=%d\n", job.ID)
			fmt.Fprintf(out, "Command: %s\n", job.CommandLine())
			return nil
		},
	}
	// Everything after the command belongs to the job, including flags.
	addCmd.Flags().SetInterspersed(false)
	return addCmd
}
