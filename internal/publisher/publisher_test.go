package publisher

import (
	"testing"

	"github.com/arobi/kpp-kernel/internal/logx"
	"github.com/arobi/kpp-kernel/internal/snapshot"
)

func TestSubscribeAndPublishDelivers(t *testing.T) {
	p := New(logx.Noop(), 30, 4)
	sub := p.Subscribe(0)

	s := &snapshot.Snapshot{StepIndex: 1}
	p.Publish(s)

	got := <-sub.Channel()
	if got.StepIndex != 1 {
		t.Fatalf("expected step 1, got %d", got.StepIndex)
	}
}

func TestSlowSubscriberDropsOldestNeverBlocks(t *testing.T) {
	p := New(logx.Noop(), 30, 2)
	sub := p.Subscribe(2)

	for i := uint64(1); i <= 5; i++ {
		p.Publish(&snapshot.Snapshot{StepIndex: i})
	}

	if sub.Drops() == 0 {
		t.Fatal("expected drops to have occurred for an unconsumed subscriber")
	}

	// buffer holds the 2 most recent: drain and check we got the latest, not stale data
	var last uint64
	for i := 0; i < 2; i++ {
		s := <-sub.Channel()
		last = s.StepIndex
	}
	if last != 5 {
		t.Fatalf("expected most recent frame to survive drop-oldest, last seen %d", last)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	p := New(logx.Noop(), 30, 2)
	sub := p.Subscribe(2)
	p.Unsubscribe(sub.ID())

	_, ok := <-sub.Channel()
	if ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
}
