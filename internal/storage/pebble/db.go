package pebblestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	logpkg "github.com/rzbill/pigeon/pkg/log"
)


// FsyncMode defines durability behavior for write operations.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways requests a WAL fsync on each committed batch/write.
	FsyncModeAlways
	// FsyncModeInterval enables group-commit by allowing Pebble to coalesce WAL
	// syncs for operations within the configured interval.
	FsyncModeInterval
	// FsyncModeNever avoids forcing WAL syncs from the application. Writes
	// become durable on the next Flush call or when Pebble syncs on its own.
	FsyncModeNever
)

// ParseFsyncMode maps always|interval|never to a FsyncMode.
func ParseFsyncMode(s string) (FsyncMode, error) {
	switch s {
	case "always":
		return FsyncModeAlways, nil
	case "interval":
		return FsyncModeInterval, nil
	case "never":
		return FsyncModeNever, nil
	default:
		return FsyncModeUnspecified, fmt.Errorf("invalid fsync mode %q; use always|interval|never", s)
	}
}

// Options configures the Pebble store wrapper.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval controls group-commit when Fsync=FsyncModeInterval.
	FsyncInterval time.Duration
	// PebbleOptions allows advanced tuning of Pebble. If nil, defaults are used.
	PebbleOptions *pebble.Options
	// Metrics allows observing read/write/flush latencies and sizes. Optional.
	Metrics MetricsHook
	// Logger receives Pebble's internal log output. Optional.
	Logger logpkg.Logger
}

// MetricsHook is a minimal hook surface for storage observations.
type MetricsHook interface {
	ObserveWrite(elapsed time.Duration, bytes int)
	ObserveRead(elapsed time.Duration, bytes int)
	ObserveDelete(elapsed time.Duration)
	ObserveFlush(elapsed time.Duration, err error)
}

// NoopMetrics is used when no metrics hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObserveWrite(time.Duration, int)   {}
func (NoopMetrics) ObserveRead(time.Duration, int)    {}
func (NoopMetrics) ObserveDelete(time.Duration)       {}
func (NoopMetrics) ObserveFlush(time.Duration, error) {}

// DB wraps a Pebble database instance with fsync policy and basic helpers.
type DB struct {
	inner     *pebble.DB
	writeSync bool
	metrics   MetricsHook
}

// Open creates or opens a Pebble database with the provided options.
func Open(opts Options) (*DB, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebble: Options.DataDir is required")
	}

	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}
	if opts.Logger != nil {
		po.Logger = pebbleLogger{l: opts.Logger.WithComponent("pebble")}
	}

	switch opts.Fsync {
	case FsyncModeAlways:
		// Sync is requested per write in commit.
	case FsyncModeInterval:
		if opts.FsyncInterval <= 0 {
			opts.FsyncInterval = 5 * time.Millisecond
		}
		po.WALMinSyncInterval = func() time.Duration { return opts.FsyncInterval }
	case FsyncModeNever:
	default:
		po.WALMinSyncInterval = func() time.Duration { return 5 * time.Millisecond }
	}

	inner, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, err
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}

	return &DB{
		inner:     inner,
		writeSync: opts.Fsync == FsyncModeAlways,
		metrics:   metrics,
	}, nil
}

// Close closes the Pebble database.
func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	return db.inner.Close()
}

func (db *DB) writeOptions() *pebble.WriteOptions {
	if db.writeSync {
		return pebble.Sync
	}
	return pebble.NoSync
}

// commit applies a single-op batch with the configured fsync policy.
func (db *DB) commit(_ context.Context, fill func(b *pebble.Batch) error) error {
	b := db.inner.NewBatch()
	defer b.Close()
	if err := fill(b); err != nil {
		return err
	}
	return b.Commit(db.writeOptions())
}

// Set writes key=value.
func (db *DB) Set(key, value []byte) error {
	start := time.Now()
	err := db.commit(context.Background(), func(b *pebble.Batch) error {
		return b.Set(key, value, nil)
	})
	if err == nil {
		db.metrics.ObserveWrite(time.Since(start), len(key)+len(value))
	}
	return err
}

// Delete removes key. Deleting a missing key is not an error.
func (db *DB) Delete(key []byte) error {
	start := time.Now()
	err := db.commit(context.Background(), func(b *pebble.Batch) error {
		return b.Delete(key, nil)
	})
	if err == nil {
		db.metrics.ObserveDelete(time.Since(start))
	}
	return err
}

// Scan visits every key starting with prefix in ascending order. An empty
// prefix visits the whole keyspace. key and value are only valid during the
// callback. Returning an error from fn stops the scan and returns that error.
func (db *DB) Scan(prefix []byte, fn func(key, value []byte) error) error {
	var iopts *pebble.IterOptions
	if len(prefix) > 0 {
		iopts = &pebble.IterOptions{LowerBound: prefix, UpperBound: prefixUpperBound(prefix)}
	}
	start := time.Now()
	it, err := db.inner.NewIter(iopts)
	if err != nil {
		return err
	}
	read := 0
	for ok := it.First(); ok; ok = it.Next() {
		read += len(it.Key()) + len(it.Value())
		if err := fn(it.Key(), it.Value()); err != nil {
			_ = it.Close()
			return err
		}
	}
	if err := it.Error(); err != nil {
		_ = it.Close()
		return err
	}
	db.metrics.ObserveRead(time.Since(start), read)
	return it.Close()
}

// Flush forces every write committed so far to stable storage by syncing the WAL.
func (db *DB) Flush() error {
	start := time.Now()
	err := db.inner.LogData(nil, pebble.Sync)
	db.metrics.ObserveFlush(time.Since(start), err)
	return err
}

// CheckHealth opens and closes an iterator to verify the store is usable.
func (db *DB) CheckHealth() error {
	if db == nil || db.inner == nil {
		return errors.New("db not open")
	}
	it, err := db.inner.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// prefixUpperBound returns the smallest key greater than every key with prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
