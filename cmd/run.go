package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunadarake/jobq/internal/worker"
)

func RunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the next pending job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.open()
			if err != nil {
				return err
			}
			defer a.close()

			outcome, err := worker.NewEngine(q).RunNext(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch outcome.Result {
			case worker.Busy:
				fmt.Fprintln(out, "Another job is running.")
			case worker.NoJob:
				fmt.Fprintln(out, "No job to run.")
			case worker.Ran:
				fmt.Fprintf(out, "Job ID %d finished: %s (exit code: %d)\n", outcome.JobID, outcome.Status, outcome.ExitCode)
				fmt.Fprintf(out, "Log: %s\n", outcome.LogPath)
			}
			return nil
		},
	}
}
