// Package publisher owns the canonical tick loop: drain commands, step the
// simulation, commit a snapshot, and fan it out to subscribers over
// per-subscriber bounded channels with drop-oldest backpressure.
package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/arobi/kpp-kernel/internal/metrics"
	"github.com/arobi/kpp-kernel/internal/snapshot"
)

// Subscriber is one registered snapshot stream.
type Subscriber struct {
	id     string
	ch     chan *snapshot.Snapshot
	drops  int
}

// ID returns the subscriber's handle.
func (s *Subscriber) ID() string { return s.id }

// Channel returns the read-only stream of snapshots for this subscriber.
func (s *Subscriber) Channel() <-chan *snapshot.Snapshot { return s.ch }

// Drops returns the number of frames dropped for this subscriber due to a
// full buffer.
func (s *Subscriber) Drops() int { return s.drops }

// StepFunc executes one simulation tick (command drain + physics step +
// pipeline evaluation) and returns the snapshot to commit and publish. A
// snapshot is returned even when the mode is not RUNNING/STARTING and no
// step was taken (e.g. PAUSED).
type StepFunc func() (*snapshot.Snapshot, error)

// Publisher runs the fixed-rate tick loop.
type Publisher struct {
	mu          sync.Mutex
	subscribers map[string]*Subscriber
	nextID      int

	rateHz             float64
	subscriberBufSize  int
	metrics            *metrics.Metrics
	log                *logrus.Logger
}

// New creates a publisher at the given tick rate.
func New(log *logrus.Logger, rateHz float64, subscriberBufSize int) *Publisher {
	return &Publisher{
		subscribers:       make(map[string]*Subscriber),
		rateHz:            rateHz,
		subscriberBufSize: subscriberBufSize,
		metrics:           metrics.Get(),
		log:               log,
	}
}

// Subscribe registers a new snapshot stream with the given buffer size
// (0 uses the publisher's configured default).
func (p *Publisher) Subscribe(bufferSize int) *Subscriber {
	p.mu.Lock()
	defer p.mu.Unlock()

	if bufferSize <= 0 {
		bufferSize = p.subscriberBufSize
	}
	p.nextID++
	sub := &Subscriber{id: uuid.NewString(), ch: make(chan *snapshot.Snapshot, bufferSize)}
	p.subscribers[sub.id] = sub
	p.metrics.ActiveSubscribers.Set(float64(len(p.subscribers)))
	return sub
}

// Unsubscribe removes a subscriber by handle.
func (p *Publisher) Unsubscribe(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sub, ok := p.subscribers[id]; ok {
		close(sub.ch)
		delete(p.subscribers, id)
	}
	p.metrics.ActiveSubscribers.Set(float64(len(p.subscribers)))
}

// Publish fans a committed snapshot out to every subscriber, dropping the
// oldest undelivered frame for any subscriber whose buffer is full
// (non-blocking; never stalls the tick loop).
func (p *Publisher) Publish(s *snapshot.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sub := range p.subscribers {
		select {
		case sub.ch <- s:
		default:
			select {
			case <-sub.ch:
				sub.drops++
				p.metrics.SubscriberDrops.WithLabelValues(sub.id).Inc()
			default:
			}
			select {
			case sub.ch <- s:
			default:
			}
		}
	}
}

// Run executes the fixed-rate tick loop until ctx is cancelled. step is
// invoked once per tick to advance and commit; publish is called with the
// committed snapshot for fan-out. Ticks are scheduled against an absolute
// deadline rather than a fixed-period ticker: a tick that overruns its
// interval fires the next one immediately instead of waiting out a full
// interval on top of the overrun, so drift from a slow step doesn't
// compound tick after tick.
func (p *Publisher) Run(ctx context.Context, step StepFunc, publish func(*snapshot.Snapshot)) {
	interval := time.Duration(float64(time.Second) / p.rateHz)
	last := time.Now()
	next := last.Add(interval)

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	var lastStepIndex uint64

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			now := time.Now()
			actual := now.Sub(last)
			last = now

			if actual > interval+interval/2 {
				p.log.WithFields(logrus.Fields{
					"target_interval": interval,
					"actual_interval": actual,
				}).Warn("tick interval exceeded target by more than 50%, catching up")
			}

			start := time.Now()
			p.metrics.TicksTotal.Inc()

			s, err := step()
			if err != nil {
				p.log.WithError(err).Error("tick step failed")
			} else if s != nil {
				publish(s)
				if s.StepIndex > lastStepIndex {
					p.metrics.StepsExecuted.Add(float64(s.StepIndex - lastStepIndex))
					lastStepIndex = s.StepIndex
				}
			}

			p.metrics.TickDuration.Observe(time.Since(start).Seconds())

			next = next.Add(interval)
			wait := time.Until(next)
			if wait <= 0 {
				next = time.Now()
				wait = 0
			}
			timer.Reset(wait)
		}
	}
}
