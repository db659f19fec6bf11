package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
)

// Gate admits one pipeline run at a time. The in-process flag covers
// concurrent calls on one Session; the lock file covers separate processes.
type Gate struct {
	busy     atomic.Bool
	lockPath string
}

// NewGate returns a gate backed by lockPath. An empty path keeps the gate
// process-local.
func NewGate(lockPath string) *Gate {
	return &Gate{lockPath: lockPath}
}

// Acquire claims the gate or returns ErrInProgress. The returned release
// function is safe to call more than once.
func (g *Gate) Acquire() (release func(), err error) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, ErrInProgress
	}
	if g.lockPath == "" {
		var once sync.Once
		return func() { once.Do(func() { g.busy.Store(false) }) }, nil
	}

	if err := os.MkdirAll(filepath.Dir(g.lockPath), 0o755); err != nil {
		g.busy.Store(false)
		return nil, fmt.Errorf("%w: create lock dir: %w", ErrUnexpected, err)
	}
	lock := flock.New(g.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		g.busy.Store(false)
		return nil, fmt.Errorf("%w: acquire lock: %w", ErrUnexpected, err)
	}
	if !ok {
		g.busy.Store(false)
		return nil, ErrInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = lock.Unlock()
			g.busy.Store(false)
		})
	}, nil
}

// Busy reports whether a run currently holds the gate in this process.
func (g *Gate) Busy() bool { return g.busy.Load() }
