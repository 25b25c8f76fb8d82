// Package worker provides the execution engine: an Engine that claims and
// runs the next pending job, and a Worker that keeps calling it until the
// queue drains.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/sunadarake/jobq/internal/lock"
	"github.com/sunadarake/jobq/internal/model"
	"github.com/sunadarake/jobq/internal/queue"
)

type Result int

const (
	// Ran means a job was claimed and reached a terminal status.
	Ran Result = iota
	// NoJob means the lock was free but nothing was pending.
	NoJob
	// Busy means another runner holds the queue lock.
	Busy
)

func (r Result) String() string {
	switch r {
	case Ran:
		return "ran"
	case NoJob:
		return "no-job"
	case Busy:
		return "busy"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

type Outcome struct {
	Result   Result
	JobID    int64
	Status   model.Status
	ExitCode int
	LogPath  string
}

// Engine runs one job per RunNext call.
//
// The queue lock is held for the whole time the child process runs. That is
// what makes execution exclusive across every runner on the host: a second
// runner fails its non-blocking acquisition and reports Busy until the first
// child exits. Narrowing the lock to the bookkeeping steps would let two jobs
// run at once.
type Engine struct {
	queue    *queue.Queue
	runner   Runner
	runnerID string
	logger   *slog.Logger
}

type EngineOption func(*Engine)

func WithRunner(r Runner) EngineOption {
	return func(e *Engine) { e.runner = r }
}

// WithRunnerID sets the id recorded on jobs this engine claims.
func WithRunnerID(id string) EngineOption {
	return func(e *Engine) { e.runnerID = id }
}

func NewEngine(q *queue.Queue, opts ...EngineOption) *Engine {
	e := &Engine{
		queue:    q,
		runner:   ExecRunner{},
		runnerID: uuid.NewString(),
		logger:   q.Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) RunnerID() string { return e.runnerID }

// RunNext claims the earliest pending job, runs it and records the result.
// Command failures are recorded on the job; the returned error is reserved
// for storage and lock failures.
func (e *Engine) RunNext(ctx context.Context) (Outcome, error) {
	out := Outcome{Result: NoJob}

	err := e.queue.Exclusive(ctx, false, func(s *queue.Session) error {
		jobs, err := s.Load(ctx)
		if err != nil {
			return err
		}
		i := model.FirstPending(jobs)
		if i < 0 {
			return nil
		}

		job := &jobs[i]
		if err := job.Start(e.queue.Now(), e.runnerID); err != nil {
			return err
		}
		if err := s.Save(ctx, jobs); err != nil {
			return fmt.Errorf("mark job %d running: %w", job.ID, err)
		}

		claimed := *job
		logPath := e.queue.LogPath(claimed.ID)
		e.logger.Info("running job",
			slog.Int64("job_id", claimed.ID),
			slog.String("command", claimed.CommandLine()),
			slog.String("log", logPath),
		)

		code := e.execute(ctx, claimed, logPath)

		finished, err := e.finish(ctx, s, claimed.ID, code)
		if err != nil {
			e.logger.Error("job left in running state",
				slog.Int64("job_id", claimed.ID),
				slog.Int("exit_code", code),
				slog.String("error", err.Error()),
			)
			return err
		}

		out = Outcome{
			Result:   Ran,
			JobID:    finished.ID,
			Status:   finished.Status,
			ExitCode: code,
			LogPath:  logPath,
		}
		e.logger.Info("job finished",
			slog.Int64("job_id", finished.ID),
			slog.String("status", string(finished.Status)),
			slog.Int("exit_code", code),
		)
		return nil
	})
	if errors.Is(err, lock.ErrBusy) {
		return Outcome{Result: Busy}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// execute runs the job with its output captured to logPath and returns the
// exit code to record. It never fails: a command that cannot be started is
// recorded as ExitSpawnFailed with the error appended to the log.
func (e *Engine) execute(ctx context.Context, job model.Job, logPath string) int {
	code, runErr := e.spawn(ctx, job, logPath)
	if runErr == nil {
		return code
	}

	e.logger.Warn("job could not be executed",
		slog.Int64("job_id", job.ID),
		slog.String("error", runErr.Error()),
	)
	if err := appendLog(logPath, fmt.Sprintf("\nerror: %v\n", runErr)); err != nil {
		e.logger.Error("write job log",
			slog.Int64("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
	return model.ExitSpawnFailed
}

func (e *Engine) spawn(ctx context.Context, job model.Job, logPath string) (int, error) {
	logFile, err := os.Create(logPath)
	if err != nil {
		return 0, fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()

	// A claimed job always runs to completion; cancelling ctx does not
	// kill it.
	return e.runner.Run(context.WithoutCancel(ctx), job.Command, job.Args, logFile)
}

// finish reloads the queue, records the terminal status on the job with the
// given id and saves.
func (e *Engine) finish(ctx context.Context, s *queue.Session, id int64, code int) (model.Job, error) {
	// Finalizing must not be skipped because the caller gave up waiting.
	ctx = context.WithoutCancel(ctx)

	jobs, err := s.Load(ctx)
	if err != nil {
		return model.Job{}, fmt.Errorf("reload queue for job %d: %w", id, err)
	}
	i := model.Find(jobs, id)
	if i < 0 {
		return model.Job{}, fmt.Errorf("finish job %d: %w", id, queue.ErrJobNotFound)
	}
	if err := jobs[i].Finish(e.queue.Now(), code); err != nil {
		return model.Job{}, fmt.Errorf("finish job %d: %w", id, err)
	}
	if err := s.Save(ctx, jobs); err != nil {
		return model.Job{}, fmt.Errorf("save result of job %d: %w", id, err)
	}
	return jobs[i], nil
}

func appendLog(path, text string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
