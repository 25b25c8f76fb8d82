// Package queue implements the producer and maintenance side of the job
// queue: registering, inspecting, removing and sweeping jobs in one queue
// directory. Every mutation is a load, mutate, save cycle run while holding
// the directory's lock.
package queue

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sunadarake/jobq/internal/lock"
	"github.com/sunadarake/jobq/internal/model"
	"github.com/sunadarake/jobq/internal/storage"
)

const (
	lockFileName = "jobq.lock"
	logDirName   = "logs"
)

type Queue struct {
	dir    string
	store  storage.Store
	gate   *lock.Gate
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Queue)

func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// Open prepares dir (and its log directory) and returns a Queue backed by
// store.
func Open(dir string, store storage.Store, opts ...Option) (*Queue, error) {
	if err := os.MkdirAll(filepath.Join(dir, logDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create queue directory: %w", err)
	}
	q := &Queue{
		dir:    dir,
		store:  store,
		gate:   lock.New(filepath.Join(dir, lockFileName)),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

func (q *Queue) Now() time.Time { return q.now() }

func (q *Queue) Logger() *slog.Logger { return q.logger }

func (q *Queue) Close() error { return q.store.Close() }

// LogPath is the output file of the job with the given id.
func (q *Queue) LogPath(id int64) string {
	return filepath.Join(q.dir, logDirName, strconv.FormatInt(id, 10)+".log")
}

// Session is the view of the store available while the lock is held.
type Session struct {
	q *Queue
}

// Load reads the whole sequence. A missing or corrupt document yields an
// empty sequence; corruption is logged since the next Save discards it.
func (s *Session) Load(ctx context.Context) ([]model.Job, error) {
	return s.q.load(ctx)
}

// Save replaces the whole sequence.
func (s *Session) Save(ctx context.Context, jobs []model.Job) error {
	return s.q.store.Save(ctx, jobs)
}

// Exclusive runs fn while holding the queue lock and releases it on every
// return path. With blocking false it returns lock.ErrBusy immediately if
// another process holds the lock.
func (q *Queue) Exclusive(ctx context.Context, blocking bool, fn func(*Session) error) error {
	lease, err := q.gate.Acquire(blocking)
	if err != nil {
		return err
	}
	defer func() {
		if err := lease.Release(); err != nil {
			q.logger.Error("release queue lock", slog.String("error", err.Error()))
		}
	}()
	return fn(&Session{q: q})
}

func (q *Queue) load(ctx context.Context) ([]model.Job, error) {
	snap, err := q.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snap.State == storage.LoadCorrupt {
		q.logger.Warn("queue document is unreadable, starting from an empty queue",
			slog.String("dir", q.dir),
			slog.String("error", snap.Cause.Error()),
		)
	}
	return snap.Jobs, nil
}

// Add registers a pending job at the end of the queue.
func (q *Queue) Add(ctx context.Context, command string, args []string) (model.Job, error) {
	if command == "" {
		return model.Job{}, ErrEmptyCommand
	}

	var job model.Job
	err := q.Exclusive(ctx, true, func(s *Session) error {
		jobs, err := s.Load(ctx)
		if err != nil {
			return err
		}
		now := q.now()
		job = model.New(nextID(jobs, now), command, args, now)
		return s.Save(ctx, append(jobs, job))
	})
	if err != nil {
		return model.Job{}, err
	}

	q.logger.Debug("job added",
		slog.Int64("job_id", job.ID),
		slog.String("command", job.CommandLine()),
	)
	return job, nil
}

// nextID derives the id from the registration time in microseconds, bumped
// past the largest existing id so ids stay unique and increasing even when
// two adds land in the same clock tick.
func nextID(jobs []model.Job, now time.Time) int64 {
	id := now.UnixMicro()
	for i := range jobs {
		if jobs[i].ID >= id {
			id = jobs[i].ID + 1
		}
	}
	return id
}

// Get reads one job without taking the lock.
func (q *Queue) Get(ctx context.Context, id int64) (model.Job, error) {
	jobs, err := q.load(ctx)
	if err != nil {
		return model.Job{}, err
	}
	i := model.Find(jobs, id)
	if i < 0 {
		return model.Job{}, fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	return jobs[i], nil
}

// List returns pending and running jobs in queue order, or every job when
// all is set. It does not take the lock, so the result may be slightly
// stale.
func (q *Queue) List(ctx context.Context, all bool) ([]model.Job, error) {
	jobs, err := q.load(ctx)
	if err != nil {
		return nil, err
	}
	if all {
		return jobs, nil
	}
	active := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if !j.Status.Terminal() {
			active = append(active, j)
		}
	}
	return active, nil
}

func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	jobs, err := q.load(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, j := range jobs {
		if j.Status == model.StatusPending {
			n++
		}
	}
	return n, nil
}

// Remove deletes a pending job. A job in any other status is left untouched
// and ErrNotPending is returned together with the job as found.
func (q *Queue) Remove(ctx context.Context, id int64) (model.Job, error) {
	var removed model.Job
	err := q.Exclusive(ctx, true, func(s *Session) error {
		jobs, err := s.Load(ctx)
		if err != nil {
			return err
		}
		i := model.Find(jobs, id)
		if i < 0 {
			return fmt.Errorf("%w: %d", ErrJobNotFound, id)
		}
		removed = jobs[i]
		if !removed.Removable() {
			return fmt.Errorf("%w: job %d is %s", ErrNotPending, id, removed.Status)
		}
		return s.Save(ctx, append(jobs[:i:i], jobs[i+1:]...))
	})
	if err != nil {
		return removed, err
	}

	q.logger.Debug("job removed", slog.Int64("job_id", id))
	return removed, nil
}

// Clean purges completed and failed jobs that finished before now-retain,
// along with their log files, and returns how many were purged. Pending and
// running jobs are always kept.
func (q *Queue) Clean(ctx context.Context, retain time.Duration) (int, error) {
	purged := 0
	err := q.Exclusive(ctx, true, func(s *Session) error {
		jobs, err := s.Load(ctx)
		if err != nil {
			return err
		}
		cutoff := q.now().Add(-retain)

		keep := make([]model.Job, 0, len(jobs))
		var gone []int64
		for _, j := range jobs {
			if expired(j, cutoff) {
				gone = append(gone, j.ID)
				continue
			}
			keep = append(keep, j)
		}
		if len(gone) == 0 {
			return nil
		}

		if err := s.Save(ctx, keep); err != nil {
			return err
		}
		purged = len(gone)

		for _, id := range gone {
			if err := removeIfExists(q.LogPath(id)); err != nil {
				q.logger.Warn("remove job log",
					slog.Int64("job_id", id),
					slog.String("error", err.Error()),
				)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	q.logger.Debug("queue cleaned",
		slog.Int("purged", purged),
		slog.Duration("retain", retain),
	)
	return purged, nil
}

func expired(j model.Job, cutoff time.Time) bool {
	if !j.Status.Terminal() || j.FinishedAt == nil {
		return false
	}
	return j.FinishedAt.Before(cutoff)
}

// removeIfExists deletes path; a file that is already gone is not an error.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
