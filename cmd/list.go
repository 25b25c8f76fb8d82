package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sunadarake/jobq/internal/queue"
)

const maxCommandWidth = 40

func ListCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending and running jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.open()
			if err != nil {
				return err
			}
			defer a.close()

			jobs, err := q.List(cmd.Context(), all)
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				if all {
					fmt.Fprintln(out, "The queue is empty.")
				} else {
					fmt.Fprintln(out, "No pending or running jobs (use --all to include finished jobs).")
				}
				return nil
			}

			fmt.Fprintf(out, "%-16s %-10s %-20s %s\n", "ID", "STATUS", "REGISTERED", "COMMAND")
			fmt.Fprintln(out, strings.Repeat("-", 80))
			for _, job := range jobs {
				line := truncate(job.CommandLine(), maxCommandWidth)
				fmt.Fprintf(out, "%-16d %-10s %-20s %s\n",
					job.ID, job.Status, job.RegisteredAt.Local().Format(time.DateTime), line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include completed and failed jobs")
	return cmd
}

func DetailCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detail <job_id>",
		Short: "Show every field of a job",
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

			job, err := q.Get(cmd.Context(), id)
			if errors.Is(err, queue.ErrJobNotFound) {
				return fmt.Errorf("job ID %d not found", id)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			argText := "(none)"
			if len(job.Args) > 0 {
				argText = strings.Join(job.Args, " ")
			}
			fmt.Fprintf(out, "Job ID:      %d\n", job.ID)
			fmt.Fprintf(out, "Command:     %s\n", job.Command)
			fmt.Fprintf(out, "Args:        %s\n", argText)
			fmt.Fprintf(out, "Status:      %s\n", job.Status)
			fmt.Fprintf(out, "Registered:  %s\n", job.RegisteredAt.Local().Format(time.RFC3339))
			fmt.Fprintf(out, "Started:     %s\n", formatTime(job.StartedAt, "(not run)"))
			fmt.Fprintf(out, "Finished:    %s\n", formatTime(job.FinishedAt, "(not finished)"))
			if job.ExitCode != nil {
				fmt.Fprintf(out, "Exit code:   %d\n", *job.ExitCode)
			} else {
				fmt.Fprintln(out, "Exit code:   (not finished)")
			}
			if job.RunnerID != "" {
				fmt.Fprintf(out, "Runner:      %s\n", job.RunnerID)
			}

			logPath := q.LogPath(job.ID)
			if _, err := os.Stat(logPath); err == nil {
				fmt.Fprintf(out, "\nLog file: %s\n", logPath)
			}
			return nil
		},
	}
}

// truncate shortens s to at most width characters, ending in "...".
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

func formatTime(t *time.Time, missing string) string {
	if t == nil {
		return missing
	}
	return t.Local().Format(time.RFC3339)
}
