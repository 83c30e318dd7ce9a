package kv

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/pigeon/internal/persist"
	pebblestore "github.com/rzbill/pigeon/internal/storage/pebble"
	"github.com/rzbill/pigeon/internal/syncx"
)

type memPersister struct {
	mu       sync.Mutex
	records  map[string][]byte
	flushes  int
	failSet  error
	failDel  error
	failSync error
	panicKey string
	saves    int
}

func newMemPersister() *memPersister {
	return &memPersister{records: map[string][]byte{}}
}

func (m *memPersister) SaveKeyValue(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key == m.panicKey {
		panic("persister blew up")
	}
	if m.failSet != nil {
		return m.failSet
	}
	m.saves++
	m.records[key] = append([]byte{}, value...)
	return nil
}

func (m *memPersister) DeleteKeyValue(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDel != nil {
		return m.failDel
	}
	delete(m.records, key)
	return nil
}

func (m *memPersister) KeyValueKeys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.records {
		out = append(out, k)
	}
	return out, nil
}

func (m *memPersister) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSync != nil {
		return m.failSync
	}
	m.flushes++
	return nil
}

func TestSetGetOverwrite(t *testing.T) {
	p := newMemPersister()
	s := New(p, nil, Options{})

	require.NoError(t, s.Set("color", []byte("red")))
	require.NoError(t, s.Set("color", []byte("blue")))

	got, err := s.Get("color")
	require.NoError(t, err)
	assert.Equal(t, "blue", string(got))
	assert.Equal(t, "blue", string(p.records["color"]))
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := New(newMemPersister(), nil, Options{})
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	s := New(newMemPersister(), map[string][]byte{"k": []byte("v")}, Options{})
	got, err := s.Get("k")
	require.NoError(t, err)
	got[0] = 'x'
	again, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(again))
}

func TestDeleteIsIdempotentAndFlushes(t *testing.T) {
	p := newMemPersister()
	s := New(p, nil, Options{FlushOnDelete: true})
	require.NoError(t, s.Set("k", []byte("v")))

	require.NoError(t, s.Delete("k"))
	assert.Equal(t, 1, p.flushes)
	_, ok := p.records["k"]
	assert.False(t, ok)

	assert.ErrorIs(t, s.Delete("k"), ErrNotFound)
	assert.Equal(t, 1, p.flushes, "a missing key must not flush")
	_, err := s.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteWithoutForcedFlush(t *testing.T) {
	p := newMemPersister()
	s := New(p, map[string][]byte{"k": []byte("v")}, Options{})
	require.NoError(t, s.Delete("k"))
	assert.Zero(t, p.flushes)
}

func TestDeleteFailuresAreReturned(t *testing.T) {
	p := newMemPersister()
	s := New(p, map[string][]byte{"a": nil, "b": nil}, Options{FlushOnDelete: true})

	p.failDel = errors.New("disk full")
	assert.ErrorIs(t, s.Delete("a"), p.failDel)
	p.failDel = nil

	p.failSync = errors.New("sync failed")
	assert.ErrorIs(t, s.Delete("b"), p.failSync)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Zero(t, n, "in-memory deletes stand after persistence failures")
}

func TestSetPersistFailureKeepsValue(t *testing.T) {
	p := newMemPersister()
	p.failSet = errors.New("disk full")
	s := New(p, nil, Options{})

	assert.ErrorIs(t, s.Set("k", []byte("v")), p.failSet)
	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestKeysByPrefix(t *testing.T) {
	s := New(newMemPersister(), map[string][]byte{
		"user:2": nil, "user:1": nil, "order:1": nil,
	}, Options{})

	keys, err := s.Keys("user:")
	require.NoError(t, err)
	assert.Equal(t, []string{"user:1", "user:2"}, keys)

	all, err := s.Keys("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPanicPoisonsStore(t *testing.T) {
	p := newMemPersister()
	p.panicKey = "boom"
	s := New(p, nil, Options{})

	assert.Panics(t, func() { _ = s.Set("boom", nil) })
	_, err := s.Get("other")
	assert.ErrorIs(t, err, syncx.ErrPoisoned)
	assert.ErrorIs(t, s.Delete("other"), syncx.ErrPoisoned)
}

func TestResyncDeletesOrphans(t *testing.T) {
	p := newMemPersister()
	p.records["stale"] = []byte("x")
	p.records["live"] = []byte("v")
	s := New(p, map[string][]byte{"live": []byte("v")}, Options{})

	require.NoError(t, s.Resync())
	assert.Equal(t, map[string][]byte{"live": []byte("v")}, p.records)
	assert.Zero(t, p.saves, "clean keys are not rewritten")
}

func TestResyncRewritesOnlyFailedSaves(t *testing.T) {
	p := newMemPersister()
	s := New(p, nil, Options{})
	require.NoError(t, s.Set("ok", []byte("1")))

	p.failSet = errors.New("disk full")
	require.ErrorIs(t, s.Set("late", []byte("2")), p.failSet)
	require.ErrorIs(t, s.Resync(), p.failSet)

	p.failSet = nil
	before := p.saves
	require.NoError(t, s.Resync())
	assert.Equal(t, before+1, p.saves)
	assert.Equal(t, []byte("2"), p.records["late"])

	require.NoError(t, s.Resync())
	assert.Equal(t, before+1, p.saves, "repaired key is clean again")
}

func TestResyncKeepsPreservedRecords(t *testing.T) {
	p := newMemPersister()
	p.records["unreadable"] = []byte("x")
	p.records["stale"] = []byte("y")
	s := New(p, nil, Options{})
	require.NoError(t, s.Preserve("unreadable"))

	require.NoError(t, s.Resync())
	assert.Equal(t, map[string][]byte{"unreadable": []byte("x")}, p.records)
}

func TestStoreOverPebbleSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever})
	require.NoError(t, err)
	a := persist.New(db, persist.EncodingFramed)
	s := New(a, nil, Options{FlushOnDelete: true})

	require.NoError(t, s.Set("keep", []byte("1")))
	require.NoError(t, s.Set("drop", []byte("2")))
	require.NoError(t, s.Delete("drop"))
	require.NoError(t, a.Flush())
	require.NoError(t, db.Close())

	db, err = pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever})
	require.NoError(t, err)
	defer db.Close()
	st, err := persist.New(db, persist.EncodingFramed).Load()
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"keep": []byte("1")}, st.Values)
}
