package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sunadarake/jobq/internal/config"
	"github.com/sunadarake/jobq/internal/queue"
	"github.com/sunadarake/jobq/internal/storage"
)

// app carries the settings shared by every subcommand. The queue is opened
// lazily so that commands such as `config show` work without a queue
// directory.
type app struct {
	cfg       *config.Config
	queueDir  string
	storeKind string
	verbose   bool

	logger *slog.Logger
	queue  *queue.Queue
}

func (a *app) open() (*queue.Queue, error) {
	if a.queue != nil {
		return a.queue, nil
	}
	// The sqlite backend needs the directory before it can open.
	if err := os.MkdirAll(a.queueDir, 0o755); err != nil {
		return nil, fmt.Errorf("create queue directory: %w", err)
	}
	store, err := storage.Open(a.storeKind, a.queueDir)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.storeKind, err)
	}
	q, err := queue.Open(a.queueDir, store, queue.WithLogger(a.logger))
	if err != nil {
		store.Close()
		return nil, err
	}
	a.queue = q
	return q, nil
}

func (a *app) close() {
	if a.queue != nil {
		a.queue.Close()
		a.queue = nil
	}
}

func NewRootCmd(cfg *config.Config) *cobra.Command {
	a := &app{cfg: cfg}

	rootCmd := &cobra.Command{
		Use:   "jobq",
		Short: "Run registered commands one at a time, in the order they were added",
		Example: `  jobq add /opt/scripts/backup.sh
  jobq add python3 /opt/scripts/process.py --input data.csv
  jobq list --all
  jobq run
  jobq worker
  jobq detail <job_id>
  jobq remove <job_id>
  jobq clean --keep-days 3`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.queueDir, "queue-dir", cfg.QueueDir, "queue directory")
	flags.StringVar(&a.storeKind, "store", cfg.Store, "queue store backend (json, sqlite)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(AddCmd(a))
	rootCmd.AddCommand(ListCmd(a))
	rootCmd.AddCommand(DetailCmd(a))
	rootCmd.AddCommand(RemoveCmd(a))
	rootCmd.AddCommand(RunCmd(a))
	rootCmd.AddCommand(WorkerCmd(a))
	rootCmd.AddCommand(CleanCmd(a))
	rootCmd.AddCommand(ConfigCmd(cfg))
	return rootCmd
}

func Execute(cfg *config.Config) {
	rootCmd := NewRootCmd(cfg)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func parseJobID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid job id %q", s)
	}
	return id, nil
}
