// Package lock guards the queue directory with an exclusive advisory lock on
// a dedicated lock file. Producers and the retention sweep wait for it;
// runners only try it, so a second runner reports busy instead of queueing.
package lock

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gofrs/flock"
)

// ErrBusy is returned by a non-blocking acquisition while another holder
// has the lock.
var ErrBusy = errors.New("jobq: queue is locked by another runner")

type Gate struct {
	path string
}

func New(path string) *Gate {
	return &Gate{path: path}
}

// Lease is one held acquisition. Every Acquire opens its own descriptor, so
// two leases in the same process contend exactly like two processes do.
type Lease struct {
	fl   *flock.Flock
	once sync.Once
	err  error
}

// Acquire takes the exclusive lock. A blocking acquisition waits without a
// bound; a non-blocking one returns ErrBusy when the lock is held elsewhere.
func (g *Gate) Acquire(blocking bool) (*Lease, error) {
	fl := flock.New(g.path)

	if blocking {
		if err := fl.Lock(); err != nil {
			return nil, fmt.Errorf("lock %s: %w", g.path, err)
		}
		return &Lease{fl: fl}, nil
	}

	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("try lock %s: %w", g.path, err)
	}
	if !ok {
		_ = fl.Close()
		return nil, ErrBusy
	}
	return &Lease{fl: fl}, nil
}

// Release unlocks and closes the descriptor. Safe to call more than once.
func (l *Lease) Release() error {
	l.once.Do(func() {
		l.err = l.fl.Unlock()
	})
	return l.err
}
