package runtime

import (
	"sync/atomic"
	"time"
)

// StorageCounts summarizes durable store activity since Open.
type StorageCounts struct {
	Writes        uint64 `json:"writes"`
	BytesWritten  uint64 `json:"bytesWritten"`
	Reads         uint64 `json:"reads"`
	Deletes       uint64 `json:"deletes"`
	Flushes       uint64 `json:"flushes"`
	FlushFailures uint64 `json:"flushFailures"`
	LastFlushUs   int64  `json:"lastFlushMicros"`
}

// storageMetrics implements pebblestore.MetricsHook with atomic counters.
type storageMetrics struct {
	writes, bytesWritten, reads, deletes atomic.Uint64
	flushes, flushFailures               atomic.Uint64
	lastFlushUs                          atomic.Int64
}

func (m *storageMetrics) ObserveWrite(_ time.Duration, bytes int) {
	m.writes.Add(1)
	m.bytesWritten.Add(uint64(bytes))
}

func (m *storageMetrics) ObserveRead(time.Duration, int) { m.reads.Add(1) }

func (m *storageMetrics) ObserveDelete(time.Duration) { m.deletes.Add(1) }

func (m *storageMetrics) ObserveFlush(elapsed time.Duration, err error) {
	if err != nil {
		m.flushFailures.Add(1)
		return
	}
	m.flushes.Add(1)
	m.lastFlushUs.Store(elapsed.Microseconds())
}

func (m *storageMetrics) snapshot() StorageCounts {
	return StorageCounts{
		Writes:        m.writes.Load(),
		BytesWritten:  m.bytesWritten.Load(),
		Reads:         m.reads.Load(),
		Deletes:       m.deletes.Load(),
		Flushes:       m.flushes.Load(),
		FlushFailures: m.flushFailures.Load(),
		LastFlushUs:   m.lastFlushUs.Load(),
	}
}
