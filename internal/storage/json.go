package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sunadarake/jobq/internal/model"
)

const jsonFileName = "jobq.json"

// JSONStore keeps the sequence as one indented JSON array.
type JSONStore struct {
	path string
}

func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{path: filepath.Join(dir, jsonFileName)}
}

func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) Load(_ context.Context) (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return missing(), nil
		}
		return Snapshot{}, fmt.Errorf("read queue %s: %w", s.path, err)
	}

	var jobs []model.Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return corrupt(err), nil
	}
	if jobs == nil {
		// "null" decodes without error.
		jobs = []model.Job{}
	}
	for i := range jobs {
		if !jobs[i].Status.Valid() {
			return corrupt(fmt.Errorf("job %d: unknown status %q", jobs[i].ID, jobs[i].Status)), nil
		}
	}
	return Snapshot{Jobs: jobs, State: LoadOK}, nil
}

// Save writes to a temporary file next to the document and renames it into
// place, so readers that skip the lock see the old or the new sequence.
func (s *JSONStore) Save(_ context.Context, jobs []model.Job) error {
	if jobs == nil {
		jobs = []model.Job{}
	}
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), jsonFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp queue file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write queue: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod queue: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close queue: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace queue %s: %w", s.path, err)
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }
