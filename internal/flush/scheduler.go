// Package flush runs the periodic durability pass over the in-memory stores.
package flush

import (
	"context"
	"errors"
	"sync"
	"time"

	logpkg "github.com/rzbill/pigeon/pkg/log"
)

// DefaultInterval is used when Options.Interval is not positive.
const DefaultInterval = 5 * time.Second

// Syncer makes previously written records durable.
type Syncer interface {
	Flush() error
}

// Resyncer rewrites a store's records from its in-memory state.
type Resyncer interface {
	Resync() error
}

// Options configures a Scheduler.
type Options struct {
	Interval time.Duration
	Syncer   Syncer
	// Resyncers run in order before every flush.
	Resyncers []Resyncer
	Logger    logpkg.Logger
}

// Stats describes the scheduler's activity so far.
type Stats struct {
	Ticks     uint64    `json:"ticks"`
	Failures  uint64    `json:"failures"`
	LastFlush time.Time `json:"lastFlush"`
	LastError string    `json:"lastError,omitempty"`
}

// Scheduler resyncs the stores and flushes the durable store on a fixed
// interval. Failures are logged and never stop the loop.
type Scheduler struct {
	interval  time.Duration
	syncer    Syncer
	resyncers []Resyncer
	log       logpkg.Logger

	tickMu sync.Mutex // serializes ticks from Run and FlushNow

	mu    sync.Mutex
	stats Stats
}

// New returns a scheduler. It does nothing until Run or FlushNow is called.
func New(opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewNopLogger()
	}
	return &Scheduler{
		interval:  opts.Interval,
		syncer:    opts.Syncer,
		resyncers: opts.Resyncers,
		log:       opts.Logger.WithComponent("flush"),
	}
}

// Interval returns the tick interval.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Run ticks until ctx is done, then performs one final tick and returns.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	s.log.Debug("flush scheduler started", logpkg.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			if err := s.FlushNow(); err != nil {
				s.log.Error("final flush failed", logpkg.Err(err))
			} else {
				s.log.Info("final flush complete")
			}
			return
		case <-t.C:
			_ = s.FlushNow()
		}
	}
}

// FlushNow runs one tick synchronously: every resyncer, then the durable
// flush. It returns the joined failures of that tick.
func (s *Scheduler) FlushNow() error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	start := time.Now()
	var errs []error
	for _, r := range s.resyncers {
		if err := r.Resync(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.syncer != nil {
		if err := s.syncer.Flush(); err != nil {
			s.log.Warn("flush failed", logpkg.Err(err))
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)

	s.mu.Lock()
	s.stats.Ticks++
	s.stats.LastFlush = start
	if err != nil {
		s.stats.Failures++
		s.stats.LastError = err.Error()
	} else {
		s.stats.LastError = ""
	}
	s.mu.Unlock()

	s.log.Debug("flush tick", logpkg.Duration("took", time.Since(start)), logpkg.Bool("ok", err == nil))
	return err
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
