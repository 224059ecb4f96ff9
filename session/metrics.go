package session

import (
	"sync"
	"time"
)

// MetricsSnapshot reports buffer-callback timing, adapted from the
// teacher's latency-tracking fields on Dispatcher (lastOperationDuration
// / maxOperationDuration) and scoped here to HardwareCallback instead
// of topology changes.
type MetricsSnapshot struct {
	BuffersRendered int64
	BuffersSilenced int64 // rendered as silence due to an internal ProcessBuffer error
	LastDuration    time.Duration
	MaxDuration     time.Duration
}

type metrics struct {
	mu   sync.Mutex
	snap MetricsSnapshot
}

func newMetrics() *metrics { return &metrics{} }

func (m *metrics) recordBuffer(d time.Duration, silenced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.BuffersRendered++
	if silenced {
		m.snap.BuffersSilenced++
	}
	m.snap.LastDuration = d
	if d > m.snap.MaxDuration {
		m.snap.MaxDuration = d
	}
}

func (m *metrics) snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}
