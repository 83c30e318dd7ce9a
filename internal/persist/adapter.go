package persist

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"
)

// ErrPersistence marks a failure of the durable store during a write-through
// save, delete or flush. Callers test for it with errors.Is.
var ErrPersistence = errors.New("persistence failure")

// Durable is the subset of the storage engine the adapter needs.
type Durable interface {
	Set(key, value []byte) error
	Delete(key []byte) error
	Scan(prefix []byte, fn func(key, value []byte) error) error
	Flush() error
}

// SkippedRecord describes a persisted record that Load could not use.
type SkippedRecord struct {
	Key    []byte
	Reason string
}

// State is the in-memory image reconstructed from the durable store.
type State struct {
	Queues  map[string][][]byte
	Values  map[string][]byte
	Skipped []SkippedRecord
}

// SkippedNames returns the names under prefix (QueuePrefix or KVPrefix) of the
// skipped records whose keys are valid UTF-8.
func (st State) SkippedNames(prefix string) []string {
	var out []string
	for _, s := range st.Skipped {
		if !utf8.Valid(s.Key) {
			continue
		}
		if p, name, ok := splitKey(string(s.Key)); ok && p == prefix {
			out = append(out, name)
		}
	}
	return out
}

// Adapter maps queue and key-value state onto durable records.
type Adapter struct {
	db  Durable
	enc Encoding
}

// New returns an adapter writing queue records with enc. Records are always
// decoded by inspecting their first byte, so either encoding can read data
// written by the other.
func New(db Durable, enc Encoding) *Adapter {
	if enc == "" {
		enc = EncodingFramed
	}
	return &Adapter{db: db, enc: enc}
}

// Encoding reports the encoding used for writes.
func (a *Adapter) Encoding() Encoding { return a.enc }

// Load scans the whole store once. Records that cannot be decoded are
// reported in State.Skipped and do not abort the load; only a failing scan
// does.
func (a *Adapter) Load() (State, error) {
	st := State{
		Queues: make(map[string][][]byte),
		Values: make(map[string][]byte),
	}
	skip := func(k []byte, reason string) {
		st.Skipped = append(st.Skipped, SkippedRecord{Key: append([]byte(nil), k...), Reason: reason})
	}
	err := a.db.Scan(nil, func(k, v []byte) error {
		if !utf8.Valid(k) {
			skip(k, "key is not valid UTF-8")
			return nil
		}
		prefix, name, ok := splitKey(string(k))
		if !ok {
			return nil
		}
		if name == "" {
			skip(k, "empty name")
			return nil
		}
		switch prefix {
		case QueuePrefix:
			msgs, err := decodeMessages(v)
			if err != nil {
				skip(k, err.Error())
				return nil
			}
			if len(msgs) == 0 {
				skip(k, "queue record holds no messages")
				return nil
			}
			st.Queues[name] = msgs
		case KVPrefix:
			st.Values[name] = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return State{}, fmt.Errorf("persist: load: %w", err)
	}
	return st, nil
}

// CheckMessage reports whether msg can be stored in a queue record and read
// back by Load. Only the newline encoding rejects anything.
func (a *Adapter) CheckMessage(msg []byte) error {
	return checkMessage(a.enc, msg)
}

// SaveQueue replaces topic's record with msgs.
func (a *Adapter) SaveQueue(topic string, msgs [][]byte) error {
	if err := a.db.Set(QueueKey(topic), encodeMessages(a.enc, msgs)); err != nil {
		return fmt.Errorf("%w: save queue %q: %w", ErrPersistence, topic, err)
	}
	return nil
}

// DeleteQueue removes topic's record. Missing records are not an error.
func (a *Adapter) DeleteQueue(topic string) error {
	if err := a.db.Delete(QueueKey(topic)); err != nil {
		return fmt.Errorf("%w: delete queue %q: %w", ErrPersistence, topic, err)
	}
	return nil
}

// SaveKeyValue replaces key's record with value.
func (a *Adapter) SaveKeyValue(key string, value []byte) error {
	if err := a.db.Set(KVKey(key), value); err != nil {
		return fmt.Errorf("%w: save key %q: %w", ErrPersistence, key, err)
	}
	return nil
}

// DeleteKeyValue removes key's record. Missing records are not an error.
func (a *Adapter) DeleteKeyValue(key string) error {
	if err := a.db.Delete(KVKey(key)); err != nil {
		return fmt.Errorf("%w: delete key %q: %w", ErrPersistence, key, err)
	}
	return nil
}

// Flush makes every write so far durable.
func (a *Adapter) Flush() error {
	if err := a.db.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrPersistence, err)
	}
	return nil
}

// QueueTopics lists the topics that currently have a record, sorted.
func (a *Adapter) QueueTopics() ([]string, error) {
	return a.names(QueuePrefix)
}

// KeyValueKeys lists the keys that currently have a record, sorted.
func (a *Adapter) KeyValueKeys() ([]string, error) {
	return a.names(KVPrefix)
}

func (a *Adapter) names(prefix string) ([]string, error) {
	var out []string
	err := a.db.Scan([]byte(prefix), func(k, _ []byte) error {
		if utf8.Valid(k) {
			out = append(out, string(k[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s: %w", ErrPersistence, prefix, err)
	}
	sort.Strings(out)
	return out, nil
}
