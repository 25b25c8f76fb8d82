package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ExitSpawnFailed is recorded when the command could not be started or
// produced no OS exit status.
const ExitSpawnFailed = -1

var ErrInvalidTransition = errors.New("jobq: invalid status transition")

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

type Job struct {
	ID           int64      `json:"id"`
	Command      string     `json:"command"`
	Args         []string   `json:"args"`
	Status       Status     `json:"status"`
	RegisteredAt time.Time  `json:"registered_at"`
	StartedAt    *time.Time `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	ExitCode     *int       `json:"exit_code"`
	RunnerID     string     `json:"runner_id,omitempty"`
}

// New returns a pending job registered at now.
func New(id int64, command string, args []string, now time.Time) Job {
	if args == nil {
		args = []string{}
	}
	return Job{
		ID:           id,
		Command:      command,
		Args:         args,
		Status:       StatusPending,
		RegisteredAt: now,
	}
}

// Start moves a pending job to running.
func (j *Job) Start(now time.Time, runnerID string) error {
	if j.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, StatusRunning)
	}
	j.Status = StatusRunning
	j.StartedAt = &now
	j.RunnerID = runnerID
	return nil
}

// Finish moves a running job to completed when exitCode is zero and to
// failed otherwise.
func (j *Job) Finish(now time.Time, exitCode int) error {
	if j.Status != StatusRunning {
		return fmt.Errorf("%w: %s -> terminal", ErrInvalidTransition, j.Status)
	}
	if exitCode == 0 {
		j.Status = StatusCompleted
	} else {
		j.Status = StatusFailed
	}
	j.FinishedAt = &now
	j.ExitCode = &exitCode
	return nil
}

func (j *Job) Removable() bool {
	return j.Status == StatusPending
}

// CommandLine joins the command and its args for display.
func (j Job) CommandLine() string {
	return strings.TrimSpace(j.Command + " " + strings.Join(j.Args, " "))
}

// Find returns the index of the job with the given id, or -1.
func Find(jobs []Job, id int64) int {
	for i := range jobs {
		if jobs[i].ID == id {
			return i
		}
	}
	return -1
}

// FirstPending returns the index of the earliest registered pending job, or -1.
func FirstPending(jobs []Job) int {
	for i := range jobs {
		if jobs[i].Status == StatusPending {
			return i
		}
	}
	return -1
}
