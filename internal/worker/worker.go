package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/sunadarake/jobq/internal/model"
	"github.com/sunadarake/jobq/internal/queue"
)

const DefaultPollInterval = 1 * time.Second

// Summary counts what one Worker.Run executed.
type Summary struct {
	Ran       int
	Completed int
	Failed    int
}

type Worker struct {
	engine       *Engine
	queue        *queue.Queue
	pollInterval time.Duration
	logger       *slog.Logger
}

func New(q *queue.Queue, engine *Engine, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Worker{
		engine:       engine,
		queue:        q,
		pollInterval: pollInterval,
		logger:       q.Logger(),
	}
}

// Run executes jobs one after another until no pending job remains. When the
// engine finds nothing to do or another runner holds the lock, it waits one
// poll interval and stops if the queue has no pending work left.
// Cancelling ctx stops the loop between jobs; a running job is never killed.
func (w *Worker) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	w.logger.Info("worker started", slog.String("runner_id", w.engine.RunnerID()))

	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("worker stopping", slog.String("reason", err.Error()))
			return sum, nil
		}

		out, err := w.engine.RunNext(ctx)
		if err != nil {
			return sum, err
		}

		if out.Result == Ran {
			sum.Ran++
			if out.Status == model.StatusCompleted {
				sum.Completed++
			} else {
				sum.Failed++
			}
			continue
		}

		if out.Result == Busy {
			w.logger.Debug("queue busy, waiting", slog.Duration("interval", w.pollInterval))
		}

		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping", slog.String("reason", ctx.Err().Error()))
			return sum, nil
		case <-time.After(w.pollInterval):
		}

		pending, err := w.queue.PendingCount(ctx)
		if err != nil {
			return sum, err
		}
		if pending == 0 {
			w.logger.Info("queue drained",
				slog.Int("ran", sum.Ran),
				slog.Int("failed", sum.Failed),
			)
			return sum, nil
		}
	}
}
