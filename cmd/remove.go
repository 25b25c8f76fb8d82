package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunadarake/jobq/internal/queue"
)

func RemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job_id>",
		Short: "Remove a pending job from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			q, err := a.open()
			if err != nil {
				return err
			}
			defer a.close()

			job, err := q.Remove(cmd.Context(), id)
			switch {
			case errors.Is(err, queue.ErrJobNotFound):
				return fmt.Errorf("job ID %d not found", id)
			case errors.Is(err, queue.ErrNotPending):
				return fmt.Errorf("job ID %d cannot be removed (status: %s)", id, job.Status)
			case err != nil:
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job ID %d removed.\n", id)
			return nil
		},
	}
}
