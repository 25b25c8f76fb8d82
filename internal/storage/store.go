// Package storage persists the ordered job sequence. A Store rewrites the
// whole sequence on every Save and provides no isolation of its own: callers
// hold the queue lock across every Load, mutate, Save cycle.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/sunadarake/jobq/internal/model"
)

// LoadState tags how a Snapshot was produced.
type LoadState int

const (
	LoadOK LoadState = iota
	// LoadMissing means the backing document does not exist yet.
	LoadMissing
	// LoadCorrupt means the document exists but could not be decoded. The
	// queue starts fresh from an empty sequence and the next Save
	// overwrites the bad content.
	LoadCorrupt
)

func (s LoadState) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadMissing:
		return "missing"
	case LoadCorrupt:
		return "corrupt"
	}
	return fmt.Sprintf("LoadState(%d)", int(s))
}

// Snapshot is the result of a Load. Jobs is empty unless State is LoadOK.
type Snapshot struct {
	Jobs  []model.Job
	State LoadState
	// Cause holds the decode error for LoadCorrupt.
	Cause error
}

// Empty reports whether the load fell back to an empty sequence.
func (s Snapshot) Empty() bool { return s.State != LoadOK }

type Store interface {
	// Load reads the full ordered sequence. A missing or malformed
	// document yields an empty Snapshot, not an error; only unexpected I/O
	// failures are returned.
	Load(ctx context.Context) (Snapshot, error)
	// Save replaces the stored sequence with jobs.
	Save(ctx context.Context, jobs []model.Job) error
	Close() error
}

const (
	KindJSON   = "json"
	KindSQLite = "sqlite"
)

var ErrUnknownKind = errors.New("jobq: unknown store kind")

// Open returns the Store of the given kind rooted in dir.
func Open(kind, dir string) (Store, error) {
	switch kind {
	case "", KindJSON:
		return NewJSONStore(dir), nil
	case KindSQLite:
		return NewSQLiteStore(dir)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func corrupt(cause error) Snapshot {
	return Snapshot{Jobs: []model.Job{}, State: LoadCorrupt, Cause: cause}
}

func missing() Snapshot {
	return Snapshot{Jobs: []model.Job{}, State: LoadMissing}
}
