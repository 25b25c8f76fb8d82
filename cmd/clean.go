package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func CleanCmd(a *app) *cobra.Command {
	var keepDays int

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete finished jobs older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keepDays < 0 {
				return fmt.Errorf("--keep-days must not be negative")
			}
			q, err := a.open()
			if err != nil {
				return err
			}
			defer a.close()

			purged, err := q.Clean(cmd.Context(), time.Duration(keepDays)*24*time.Hour)
			if err != nil {
				return fmt.Errorf("failed to clean queue: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s) finished more than %d day(s) ago.\n", purged, keepDays)
			return nil
		},
	}
	cmd.Flags().IntVar(&keepDays, "keep-days", a.cfg.KeepDays, "days to keep finished jobs")
	return cmd
}
