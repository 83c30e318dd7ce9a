package pebblestore

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

type testMetrics struct {
	wrote   int
	read    int
	deletes int
	flushes int
}

func (m *testMetrics) ObserveWrite(d time.Duration, bytes int) { m.wrote += bytes }
func (m *testMetrics) ObserveRead(d time.Duration, bytes int)  { m.read += bytes }
func (m *testMetrics) ObserveDelete(d time.Duration)           { m.deletes++ }
func (m *testMetrics) ObserveFlush(d time.Duration, err error) {
	if err == nil {
		m.flushes++
	}
}

// lookup finds key with a prefix scan.
func lookup(t *testing.T, db *DB, key []byte) ([]byte, bool) {
	t.Helper()
	var out []byte
	found := false
	err := db.Scan(key, func(k, v []byte) error {
		if bytes.Equal(k, key) {
			out = append([]byte(nil), v...)
			found = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out, found
}

func newTestDB(t *testing.T) (*DB, *testMetrics) {
	t.Helper()
	dir := t.TempDir()
	metrics := &testMetrics{}
	db, err := Open(Options{
		DataDir:       dir,
		Fsync:         FsyncModeInterval,
		FsyncInterval: 2 * time.Millisecond,
		Metrics:       metrics,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, metrics
}

func TestCRUD(t *testing.T) {
	db, metrics := newTestDB(t)

	key := []byte("k1")
	val := []byte("v1")
	if err := db.Set(key, val); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok := lookup(t, db, key)
	if !ok {
		t.Fatalf("key missing after set")
	}
	if string(got) != string(val) {
		t.Fatalf("got %q want %q", got, val)
	}
	if metrics.read == 0 || metrics.wrote == 0 {
		t.Fatalf("expected read/write metrics to record bytes")
	}

	if err := db.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := lookup(t, db, key); ok {
		t.Fatalf("key still present after delete")
	}
	if metrics.deletes != 1 {
		t.Fatalf("want 1 delete, got %d", metrics.deletes)
	}
}

func TestScanPrefix(t *testing.T) {
	db, _ := newTestDB(t)

	for _, k := range []string{"kv_a", "kv_b", "queue_x", "kw_z", "kv_"} {
		if err := db.Set([]byte(k), []byte(k)); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	var keys []string
	if err := db.Scan([]byte("kv_"), func(k, v []byte) error {
		if string(k) != string(v) {
			t.Fatalf("value mismatch for %s", k)
		}
		keys = append(keys, string(k))
		return nil
	}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []string{"kv_", "kv_a", "kv_b"}
	if len(keys) != len(want) {
		t.Fatalf("got %v want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v want %v", keys, want)
		}
	}

	total := 0
	if err := db.Scan(nil, func(k, v []byte) error { total++; return nil }); err != nil {
		t.Fatalf("full scan: %v", err)
	}
	if total != 5 {
		t.Fatalf("full scan saw %d keys", total)
	}
}

func TestScanStopsOnCallbackError(t *testing.T) {
	db, _ := newTestDB(t)
	_ = db.Set([]byte("a"), nil)
	_ = db.Set([]byte("b"), nil)

	stop := errors.New("stop")
	seen := 0
	err := db.Scan(nil, func(k, v []byte) error {
		seen++
		return stop
	})
	if !errors.Is(err, stop) || seen != 1 {
		t.Fatalf("err=%v seen=%d", err, seen)
	}
}

func TestFlushAndReopen(t *testing.T) {
	dir := t.TempDir()
	metrics := &testMetrics{}
	db, err := Open(Options{DataDir: dir, Fsync: FsyncModeNever, Metrics: metrics})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Set([]byte("queue_t"), []byte("a")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if metrics.flushes != 1 {
		t.Fatalf("flush not observed")
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err = Open(Options{DataDir: dir, Fsync: FsyncModeNever})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	got, ok := lookup(t, db, []byte("queue_t"))
	if !ok || string(got) != "a" {
		t.Fatalf("after reopen got %q found %v", got, ok)
	}
	if err := db.CheckHealth(); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestPrefixUpperBound(t *testing.T) {
	tests := []struct {
		in   []byte
		want []byte
	}{
		{[]byte("kv_"), []byte("kv`")},
		{[]byte{'a', 0xff}, []byte{'b'}},
		{[]byte{0xff, 0xff}, nil},
	}
	for _, tt := range tests {
		got := prefixUpperBound(tt.in)
		if string(got) != string(tt.want) {
			t.Fatalf("prefixUpperBound(%q) = %q want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFsyncMode(t *testing.T) {
	if m, err := ParseFsyncMode("never"); err != nil || m != FsyncModeNever {
		t.Fatalf("never: %v %v", m, err)
	}
	if _, err := ParseFsyncMode("sometimes"); err == nil {
		t.Fatalf("expected error")
	}
}
