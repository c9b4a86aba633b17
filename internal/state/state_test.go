package state

import (
	"testing"

	"github.com/arobi/kpp-kernel/internal/snapshot"
)

func mkSnapshot(step uint64, v float64) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		StepIndex: step,
		Chain:     snapshot.ChainView{LinearVelocity: v},
	}
}

func TestCommitAndLatest(t *testing.T) {
	m := New(100, 1<<20)
	m.Commit(mkSnapshot(1, 1.0))
	m.Commit(mkSnapshot(2, 2.0))

	latest := m.Latest()
	if latest == nil || latest.StepIndex != 2 {
		t.Fatalf("expected latest step 2, got %+v", latest)
	}
}

func TestEvictsOldestOnMaxCount(t *testing.T) {
	m := New(3, 1<<20)
	for i := uint64(1); i <= 5; i++ {
		m.Commit(mkSnapshot(i, 0))
	}

	count, _ := m.Stats()
	if count != 3 {
		t.Fatalf("expected ring buffer capped at 3 entries, got %d", count)
	}

	latest := m.Latest()
	if latest.StepIndex != 5 {
		t.Fatalf("expected latest step 5, got %d", latest.StepIndex)
	}
}

func TestEvictsOnMaxBytes(t *testing.T) {
	s := mkSnapshot(1, 0)
	oneSize := s.EstimatedBytes()

	m := New(1000, oneSize*2)
	for i := uint64(1); i <= 5; i++ {
		m.Commit(mkSnapshot(i, 0))
	}

	_, bytes := m.Stats()
	if bytes > oneSize*2 {
		t.Fatalf("byte cap exceeded: %d > %d", bytes, oneSize*2)
	}
}

func TestRangeReturnsCoherentSlice(t *testing.T) {
	m := New(100, 1<<20)
	for i := uint64(1); i <= 10; i++ {
		m.Commit(mkSnapshot(i, 0))
	}

	got := m.Range(5, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	// the 3 most recent entries at or after step 5 are steps 8, 9, 10
	if got[0].StepIndex != 8 {
		t.Fatalf("expected range to start at step 8, got %d", got[0].StepIndex)
	}
}

func TestStepIndicesStrictlyMonotonic(t *testing.T) {
	m := New(100, 1<<20)
	for i := uint64(1); i <= 10; i++ {
		m.Commit(mkSnapshot(i, 0))
	}

	all := m.Range(0, 100)
	for i := 1; i < len(all); i++ {
		if all[i].StepIndex <= all[i-1].StepIndex {
			t.Fatalf("step indices not strictly monotonic at %d", i)
		}
	}
}

func TestRollingVelocityStats(t *testing.T) {
	m := New(100, 1<<20)
	m.Commit(mkSnapshot(1, 2.0))
	m.Commit(mkSnapshot(2, 4.0))

	mean, _ := m.RollingVelocityStats(2)
	if mean != 3.0 {
		t.Fatalf("expected mean 3.0, got %v", mean)
	}
}
