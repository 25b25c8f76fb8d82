package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sunadarake/jobq/internal/worker"
)

func WorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run jobs until the queue is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.open()
			if err != nil {
				return err
			}
			defer a.close()

			// Canceled on SIGINT/SIGTERM. The job in progress still runs to
			// completion; the worker stops before claiming the next one.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case sig := <-sigCh:
					a.logger.Info("received signal, stopping after the current job", slog.String("signal", sig.String()))
					cancel()
				case <-ctx.Done():
				}
			}()

			w := worker.New(q, worker.NewEngine(q), a.cfg.PollInterval)
			sum, err := w.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queue is empty. Ran %d job(s): %d completed, %d failed.\n",
				sum.Ran, sum.Completed, sum.Failed)
			return nil
		},
	}
}
