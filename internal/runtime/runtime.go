package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	cfgpkg "github.com/rzbill/pigeon/internal/config"
	"github.com/rzbill/pigeon/internal/flush"
	"github.com/rzbill/pigeon/internal/kv"
	"github.com/rzbill/pigeon/internal/persist"
	"github.com/rzbill/pigeon/internal/queue"
	pebblestore "github.com/rzbill/pigeon/internal/storage/pebble"
	"github.com/rzbill/pigeon/internal/syncx"
	logpkg "github.com/rzbill/pigeon/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        logpkg.Logger
}

// Runtime wires storage, config, and the in-memory stores for a single-node
// instance.
type Runtime struct {
	db      *pebblestore.DB
	adapter *persist.Adapter
	queues  *queue.Store
	kv      *kv.Store
	flusher *flush.Scheduler
	metrics *storageMetrics
	config  cfgpkg.Config
	log     logpkg.Logger
	started time.Time
	skipped int
}

// Open initializes the underlying storage, loads persisted state into memory
// and returns a Runtime. Nothing is served until Open returns.
func Open(opts Options) (*Runtime, error) {
	cfg := opts.Config
	if cfg == (cfgpkg.Config{}) {
		cfg = cfgpkg.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("runtime: invalid config: %w", err)
	}
	enc, err := persist.ParseEncoding(cfg.QueueEncoding)
	if err != nil {
		return nil, err
	}
	base := opts.Logger
	if base == nil {
		base = logpkg.NewNopLogger()
	}
	logger := base.WithComponent("runtime")

	metrics := &storageMetrics{}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Metrics:       metrics,
		Logger:        base,
	})
	if err != nil {
		return nil, err
	}

	adapter := persist.New(db, enc)
	start := time.Now()
	state, err := adapter.Load()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, s := range state.Skipped {
		logger.Warn("skipping unreadable record", logpkg.Str("key", fmt.Sprintf("%q", s.Key)), logpkg.Str("reason", s.Reason))
	}

	rt := &Runtime{
		db:      db,
		adapter: adapter,
		queues:  queue.New(adapter, state.Queues, base),
		kv:      kv.New(adapter, state.Values, kv.Options{FlushOnDelete: cfg.DeleteForcesFlush, Logger: base}),
		metrics: metrics,
		config:  cfg,
		log:     logger,
		started: time.Now(),
		skipped: len(state.Skipped),
	}
	// Skipped records stay on disk for inspection; resync must not remove them.
	if err := rt.queues.Preserve(state.SkippedNames(persist.QueuePrefix)...); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := rt.kv.Preserve(state.SkippedNames(persist.KVPrefix)...); err != nil {
		_ = db.Close()
		return nil, err
	}
	rt.flusher = flush.New(flush.Options{
		Interval:  cfg.FlushInterval(),
		Syncer:    adapter,
		Resyncers: []flush.Resyncer{rt.queues, rt.kv},
		Logger:    base,
	})

	logger.Info("state loaded",
		logpkg.Int("topics", len(state.Queues)),
		logpkg.Int("keys", len(state.Values)),
		logpkg.Int("skipped", len(state.Skipped)),
		logpkg.Str("encoding", string(enc)),
		logpkg.Duration("took", time.Since(start)),
	)
	return rt, nil
}

// Close flushes outstanding writes and closes underlying resources. The flush
// scheduler must have stopped before Close is called.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	ferr := r.adapter.Flush()
	if ferr != nil {
		r.log.Warn("flush on close failed", logpkg.Err(ferr))
	}
	err := r.db.Close()
	r.db = nil
	return errors.Join(ferr, err)
}

// CheckHealth verifies the store is usable and neither in-memory store is
// poisoned.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.db.CheckHealth(); err != nil {
		return err
	}
	if r.queues.Poisoned() {
		return fmt.Errorf("queue store: %w", syncx.ErrPoisoned)
	}
	if r.kv.Poisoned() {
		return fmt.Errorf("kv store: %w", syncx.ErrPoisoned)
	}
	return nil
}

// Stats is a point-in-time view of the instance.
type Stats struct {
	Topics   int           `json:"topics"`
	Messages int           `json:"messages"`
	Keys     int           `json:"keys"`
	Skipped  int           `json:"skippedOnLoad"`
	Uptime   string        `json:"uptime"`
	Encoding string        `json:"queueEncoding"`
	Flush    flush.Stats   `json:"flush"`
	Storage  StorageCounts `json:"storage"`
}

// Stats collects counters from the stores, the scheduler and the storage hook.
func (r *Runtime) Stats() (Stats, error) {
	ov, err := r.queues.Overview()
	if err != nil {
		return Stats{}, err
	}
	keys, err := r.kv.Len()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Topics:   len(ov),
		Keys:     keys,
		Skipped:  r.skipped,
		Uptime:   time.Since(r.started).Truncate(time.Second).String(),
		Encoding: string(r.adapter.Encoding()),
		Flush:    r.flusher.Stats(),
		Storage:  r.metrics.snapshot(),
	}
	for _, n := range ov {
		st.Messages += n
	}
	return st, nil
}

// Queues returns the topic store.
func (r *Runtime) Queues() *queue.Store { return r.queues }

// KV returns the key-value store.
func (r *Runtime) KV() *kv.Store { return r.kv }

// Flusher returns the flush scheduler. The caller runs it.
func (r *Runtime) Flusher() *flush.Scheduler { return r.flusher }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
