package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sunadarake/jobq/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteFileName = "jobq.db"

// SQLiteStore keeps the sequence in a single table keyed by position. It
// follows the same whole-sequence rewrite contract as JSONStore; SQLite's own
// locking only protects individual statements, not the queue's
// load/mutate/save cycle.
type SQLiteStore struct {
	Db *sql.DB
}

func (s *SQLiteStore) Init() error {
	createJobTable := `create table if not exists jobs(
		position integer primary key,
		id integer not null unique,
		command text not null,
		args text not null default '[]',
		status text not null default 'pending',
		registered_at DATETIME not null,
		started_at DATETIME,
		finished_at DATETIME,
		exit_code integer,
		runner_id text not null default ''
	);`
	_, err := s.Db.Exec(createJobTable)
	return err
}

func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	dbPath := filepath.Join(dir, sqliteFileName)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	store := &SQLiteStore{
		Db: db,
	}
	if err := store.Init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init %s: %w", dbPath, err)
	}
	return store, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	statement := `select id, command, args, status, registered_at, started_at, finished_at, exit_code, runner_id
		from jobs order by position asc`
	rows, err := s.Db.QueryContext(ctx, statement)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		var (
			job        model.Job
			argsText   string
			startedAt  sql.NullTime
			finishedAt sql.NullTime
			exitCode   sql.NullInt64
		)
		if err := rows.Scan(
			&job.ID,
			&job.Command,
			&argsText,
			&job.Status,
			&job.RegisteredAt,
			&startedAt,
			&finishedAt,
			&exitCode,
			&job.RunnerID,
		); err != nil {
			return corrupt(err), nil
		}
		if err := json.Unmarshal([]byte(argsText), &job.Args); err != nil {
			return corrupt(fmt.Errorf("job %d args: %w", job.ID, err)), nil
		}
		if job.Args == nil {
			job.Args = []string{}
		}
		if !job.Status.Valid() {
			return corrupt(fmt.Errorf("job %d: unknown status %q", job.ID, job.Status)), nil
		}
		if startedAt.Valid {
			t := startedAt.Time
			job.StartedAt = &t
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			job.FinishedAt = &t
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			job.ExitCode = &code
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate jobs: %w", err)
	}
	return Snapshot{Jobs: jobs, State: LoadOK}, nil
}

// Save replaces every row inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, jobs []model.Job) error {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `delete from jobs`); err != nil {
		return fmt.Errorf("clear jobs: %w", err)
	}

	statement := `insert into jobs (
		position, id, command, args, status, registered_at, started_at, finished_at, exit_code, runner_id
		) values (?,?,?,?,?,?,?,?,?,?);`
	insert, err := tx.PrepareContext(ctx, statement)
	if err != nil {
		return err
	}
	defer insert.Close()

	for i, job := range jobs {
		args := job.Args
		if args == nil {
			args = []string{}
		}
		argsText, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encode args of job %d: %w", job.ID, err)
		}
		var exitCode sql.NullInt64
		if job.ExitCode != nil {
			exitCode = sql.NullInt64{Int64: int64(*job.ExitCode), Valid: true}
		}
		if _, err := insert.ExecContext(ctx,
			i,
			job.ID,
			job.Command,
			string(argsText),
			string(job.Status),
			job.RegisteredAt,
			nullTime(job.StartedAt),
			nullTime(job.FinishedAt),
			exitCode,
			job.RunnerID,
		); err != nil {
			return fmt.Errorf("insert job %d: %w", job.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.Db.Close()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
