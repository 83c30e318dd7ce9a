// Package syncx provides the lock used by the in-memory stores.
package syncx

import (
	"errors"
	"sync"
)

// ErrPoisoned is returned by every Do call after a previous critical section
// panicked. The protected state may be half-updated and must not be used.
var ErrPoisoned = errors.New("syncx: lock poisoned by an earlier panic")

// Guard is an exclusive lock that remembers panics inside its critical section.
// The zero value is ready to use.
type Guard struct {
	mu       sync.Mutex
	poisoned bool
}

// Do runs fn while holding the lock. If fn panics the guard is poisoned and
// the panic continues to propagate.
func (g *Guard) Do(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.poisoned {
		return ErrPoisoned
	}

	completed := false
	defer func() {
		if !completed {
			g.poisoned = true
		}
	}()
	err := fn()
	completed = true
	return err
}

// Poisoned reports whether a critical section has panicked.
func (g *Guard) Poisoned() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.poisoned
}
