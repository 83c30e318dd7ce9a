// Package kv holds the flat key-value map in memory and writes every change
// through to the persistence adapter.
package kv

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rzbill/pigeon/internal/status"
	"github.com/rzbill/pigeon/internal/syncx"
	logpkg "github.com/rzbill/pigeon/pkg/log"
)

// ErrNotFound is returned by Get and Delete for absent keys.
var ErrNotFound = status.ErrNotFound

// Persister is the write-through target for key-value state.
type Persister interface {
	SaveKeyValue(key string, value []byte) error
	DeleteKeyValue(key string) error
	KeyValueKeys() ([]string, error)
	Flush() error
}

// Options tunes store behaviour.
type Options struct {
	// FlushOnDelete forces a durability flush after each delete so a deleted
	// key cannot reappear after a crash.
	FlushOnDelete bool
	Logger        logpkg.Logger
}

// Store maps keys to values.
type Store struct {
	guard         syncx.Guard
	values        map[string][]byte
	dirty         map[string]struct{} // keys whose last save failed
	kept          map[string]struct{}
	p             Persister
	flushOnDelete bool
	log           logpkg.Logger
}

// New builds a store seeded with initial. The store takes ownership of the
// initial values.
func New(p Persister, initial map[string][]byte, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	values := make(map[string][]byte, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Store{
		values:        values,
		dirty:         make(map[string]struct{}),
		kept:          make(map[string]struct{}),
		p:             p,
		flushOnDelete: opts.FlushOnDelete,
		log:           logger.WithComponent("kv"),
	}
}

// Set creates or overwrites key and persists it. The in-memory value is kept
// even when persisting fails.
func (s *Store) Set(key string, value []byte) error {
	return s.guard.Do(func() error {
		v := append([]byte{}, value...)
		s.values[key] = v
		if err := s.p.SaveKeyValue(key, v); err != nil {
			s.dirty[key] = struct{}{}
			return err
		}
		delete(s.dirty, key)
		return nil
	})
}

// Preserve stops Resync from deleting the records of keys, typically records
// the startup load skipped as unreadable.
func (s *Store) Preserve(keys ...string) error {
	return s.guard.Do(func() error {
		for _, k := range keys {
			s.kept[k] = struct{}{}
		}
		return nil
	})
}

// Poisoned reports whether a panic has left the store unusable.
func (s *Store) Poisoned() bool { return s.guard.Poisoned() }

// Get returns a copy of key's value.
func (s *Store) Get(key string) ([]byte, error) {
	var out []byte
	err := s.guard.Do(func() error {
		v, ok := s.values[key]
		if !ok {
			return fmt.Errorf("key %q: %w", key, ErrNotFound)
		}
		out = append([]byte{}, v...)
		return nil
	})
	return out, err
}

// Delete removes key from memory and from the durable store. The in-memory
// delete stands even when the durable delete or flush fails.
func (s *Store) Delete(key string) error {
	return s.guard.Do(func() error {
		if _, ok := s.values[key]; !ok {
			return fmt.Errorf("key %q: %w", key, ErrNotFound)
		}
		delete(s.values, key)
		delete(s.dirty, key)
		if err := s.p.DeleteKeyValue(key); err != nil {
			return err
		}
		if s.flushOnDelete {
			return s.p.Flush()
		}
		return nil
	})
}

// Keys returns the keys starting with prefix, sorted.
func (s *Store) Keys(prefix string) ([]string, error) {
	var out []string
	err := s.guard.Do(func() error {
		out = make([]string, 0, len(s.values))
		for k := range s.values {
			if strings.HasPrefix(k, prefix) {
				out = append(out, k)
			}
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

// Len returns the number of keys.
func (s *Store) Len() (int, error) {
	var n int
	err := s.guard.Do(func() error {
		n = len(s.values)
		return nil
	})
	return n, err
}

// Resync rewrites the records of keys whose write-through save failed and
// removes records of keys that are no longer in memory, except preserved
// ones. Keys saved successfully are not rewritten. It keeps going after
// individual failures and returns the first one.
func (s *Store) Resync() error {
	return s.guard.Do(func() error {
		var errs []error
		dirty := make([]string, 0, len(s.dirty))
		for k := range s.dirty {
			dirty = append(dirty, k)
		}
		sort.Strings(dirty)
		for _, k := range dirty {
			v, ok := s.values[k]
			if !ok {
				delete(s.dirty, k)
				continue
			}
			if err := s.p.SaveKeyValue(k, v); err != nil {
				s.log.Warn("kv resync failed", logpkg.Str("key", k), logpkg.Err(err))
				errs = append(errs, err)
				continue
			}
			delete(s.dirty, k)
		}
		persisted, err := s.p.KeyValueKeys()
		if err != nil {
			s.log.Warn("kv resync listing failed", logpkg.Err(err))
			errs = append(errs, err)
		}
		for _, k := range persisted {
			if _, ok := s.values[k]; ok {
				continue
			}
			if _, ok := s.kept[k]; ok {
				continue
			}
			if err := s.p.DeleteKeyValue(k); err != nil {
				s.log.Warn("kv resync failed", logpkg.Str("key", k), logpkg.Err(err))
				errs = append(errs, err)
			}
		}
		if len(errs) == 0 {
			return nil
		}
		return errs[0]
	})
}
