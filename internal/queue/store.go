// Package queue holds named FIFO topics in memory and writes every change
// through to the persistence adapter.
package queue

import (
	"fmt"
	"sort"

	"github.com/rzbill/pigeon/internal/status"
	"github.com/rzbill/pigeon/internal/syncx"
	logpkg "github.com/rzbill/pigeon/pkg/log"
)

// ErrNotFound is returned by Consume when the topic has no messages.
var ErrNotFound = status.ErrNotFound

// Persister is the write-through target for topic state.
type Persister interface {
	// CheckMessage rejects messages the record encoding cannot round-trip.
	CheckMessage(msg []byte) error
	SaveQueue(topic string, msgs [][]byte) error
	DeleteQueue(topic string) error
	QueueTopics() ([]string, error)
}

// Store maps topic names to their pending messages, oldest first. A topic
// with no messages is never present in the map.
type Store struct {
	guard  syncx.Guard
	topics map[string][][]byte
	// kept holds topics whose records Resync must not treat as orphans.
	kept map[string]struct{}
	p    Persister
	log  logpkg.Logger
}

// New builds a store seeded with initial, typically the result of a startup
// load. Empty entries in initial are dropped. The store takes ownership of
// the message slices.
func New(p Persister, initial map[string][][]byte, logger logpkg.Logger) *Store {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	topics := make(map[string][][]byte, len(initial))
	for t, msgs := range initial {
		if len(msgs) > 0 {
			topics[t] = msgs
		}
	}
	return &Store{
		topics: topics,
		kept:   make(map[string]struct{}),
		p:      p,
		log:    logger.WithComponent("queue"),
	}
}

// Preserve stops Resync from deleting the records of topics, typically
// records the startup load skipped as unreadable. A later publish or consume
// on such a topic still rewrites or removes its record.
func (s *Store) Preserve(topics ...string) error {
	return s.guard.Do(func() error {
		for _, t := range topics {
			s.kept[t] = struct{}{}
		}
		return nil
	})
}

// Poisoned reports whether a panic has left the store unusable.
func (s *Store) Poisoned() bool { return s.guard.Poisoned() }

// Publish appends msg to the tail of topic, creating the topic if needed, and
// persists the topic's full sequence. If persisting fails the message stays
// queued in memory and the returned error wraps persist.ErrPersistence. A
// message the persister cannot encode is rejected with status.ErrInvalidArgument
// before anything changes.
func (s *Store) Publish(topic string, msg []byte) error {
	if err := s.p.CheckMessage(msg); err != nil {
		return fmt.Errorf("topic %q: %w: %w", topic, err, status.ErrInvalidArgument)
	}
	return s.guard.Do(func() error {
		msgs := append(s.topics[topic], append([]byte{}, msg...))
		s.topics[topic] = msgs
		return s.p.SaveQueue(topic, msgs)
	})
}

// Consume removes and returns the oldest message of topic. A topic that has
// no messages yields ErrNotFound and nothing changes. Persistence failures
// after the removal are logged and do not fail the call.
func (s *Store) Consume(topic string) ([]byte, error) {
	var msg []byte
	err := s.guard.Do(func() error {
		msgs := s.topics[topic]
		if len(msgs) == 0 {
			return fmt.Errorf("topic %q: %w", topic, ErrNotFound)
		}
		msg = msgs[0]
		msgs[0] = nil
		msgs = msgs[1:]

		var perr error
		if len(msgs) == 0 {
			delete(s.topics, topic)
			perr = s.p.DeleteQueue(topic)
		} else {
			s.topics[topic] = msgs
			perr = s.p.SaveQueue(topic, msgs)
		}
		if perr != nil {
			s.log.Warn("persist after consume failed", logpkg.Str("topic", topic), logpkg.Err(perr))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Length returns the number of pending messages in topic, 0 when it does not
// exist.
func (s *Store) Length(topic string) (int, error) {
	var n int
	err := s.guard.Do(func() error {
		n = len(s.topics[topic])
		return nil
	})
	return n, err
}

// Overview returns a snapshot of every topic and its length.
func (s *Store) Overview() (map[string]int, error) {
	var out map[string]int
	err := s.guard.Do(func() error {
		out = make(map[string]int, len(s.topics))
		for t, msgs := range s.topics {
			out[t] = len(msgs)
		}
		return nil
	})
	return out, err
}

// Resync rewrites every topic's record and removes records of topics that are
// no longer in memory, except preserved ones. It keeps going after individual failures and returns
// the first one.
func (s *Store) Resync() error {
	return s.guard.Do(func() error {
		var first error
		note := func(err error, topic string) {
			s.log.Warn("queue resync failed", logpkg.Str("topic", topic), logpkg.Err(err))
			if first == nil {
				first = err
			}
		}

		names := make([]string, 0, len(s.topics))
		for t := range s.topics {
			names = append(names, t)
		}
		sort.Strings(names)
		for _, t := range names {
			if err := s.p.SaveQueue(t, s.topics[t]); err != nil {
				note(err, t)
			}
		}

		persisted, err := s.p.QueueTopics()
		if err != nil {
			note(err, "")
			return first
		}
		for _, t := range persisted {
			if _, ok := s.topics[t]; ok {
				continue
			}
			if _, ok := s.kept[t]; ok {
				continue
			}
			if err := s.p.DeleteQueue(t); err != nil {
				note(err, t)
			}
		}
		return first
	})
}
