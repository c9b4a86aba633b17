// Package state implements the State Manager: a bounded dual-cap ring
// buffer of committed snapshots, single-writer/many-reader, evicting the
// oldest entry whenever either the max_count or max_bytes cap is
// exceeded.
package state

import (
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/arobi/kpp-kernel/internal/snapshot"
)

// Manager owns the committed snapshot history. Writers call Commit under
// a brief mutex; readers call Latest/Range acquiring only a read lock, and
// never block the writer for longer than a slice copy.
type Manager struct {
	mu          sync.RWMutex
	entries     []*snapshot.Snapshot
	totalBytes  int
	maxCount    int
	maxBytes    int
}

// New creates a state manager with the given bounds.
func New(maxCount, maxBytes int) *Manager {
	return &Manager{
		entries:  make([]*snapshot.Snapshot, 0, maxCount),
		maxCount: maxCount,
		maxBytes: maxBytes,
	}
}

// Commit appends a snapshot and evicts the oldest entries until both caps
// are satisfied. Single-writer only.
func (m *Manager) Commit(s *snapshot.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, s)
	m.totalBytes += s.EstimatedBytes()

	for (len(m.entries) > m.maxCount || m.totalBytes > m.maxBytes) && len(m.entries) > 0 {
		evicted := m.entries[0]
		m.totalBytes -= evicted.EstimatedBytes()
		m.entries = m.entries[1:]
	}
}

// Latest returns the most recently committed snapshot, or nil if none yet.
func (m *Manager) Latest() *snapshot.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

// Range returns a coherent slice of up to limit entries ending at the most
// recent committed snapshot, starting no earlier than fromIndex.
func (m *Manager) Range(fromIndex uint64, limit int) []*snapshot.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 || limit <= 0 {
		return nil
	}

	start := 0
	for i, e := range m.entries {
		if e.StepIndex >= fromIndex {
			start = i
			break
		}
		start = len(m.entries)
	}
	if start >= len(m.entries) {
		return nil
	}

	end := len(m.entries)
	if end-start > limit {
		start = end - limit
	}

	out := make([]*snapshot.Snapshot, end-start)
	copy(out, m.entries[start:end])
	return out
}

// Stats reports the current ring buffer occupancy for snapshot status
// blocks and metrics.
func (m *Manager) Stats() (count, bytes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), m.totalBytes
}

// RollingVelocityStats computes the mean and standard deviation of chain
// linear velocity over the last n committed snapshots, for operator
// diagnostics alongside the raw stream.
func (m *Manager) RollingVelocityStats(n int) (mean, stddev float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return 0, 0
	}
	if n > len(m.entries) {
		n = len(m.entries)
	}
	window := m.entries[len(m.entries)-n:]
	values := make([]float64, len(window))
	for i, e := range window {
		values[i] = e.Chain.LinearVelocity
	}
	mean = stat.Mean(values, nil)
	stddev = stat.StdDev(values, nil)
	return mean, stddev
}
