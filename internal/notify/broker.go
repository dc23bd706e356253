// Package notify is the in-process fan-out for state-change events. Publishing
// enqueues to every live subscriber before returning, so a caller that sees an
// operation succeed knows its watchers have been notified. Clients that were
// disconnected converge through the reconcile snapshot, not by replay.
package notify

import (
	"sync"

	"github.com/mohdshadink/spotshare/internal/domain"
	"github.com/mohdshadink/spotshare/internal/metrics"
)

// SpotTopic is the topic carrying events for one spot.
func SpotTopic(spotID string) string {
	return "spot:" + spotID
}

// SubjectTopic is the topic carrying events addressed to one driver or owner.
func SubjectTopic(subjectID string) string {
	return "subject:" + subjectID
}

const defaultBuffer = 64

type Broker struct {
	mu      sync.RWMutex
	topics  map[string]map[*Subscription]struct{}
	buffer  int
	metrics *metrics.Metrics
}

type Option func(*Broker)

// WithBuffer sets the per-subscriber channel capacity.
func WithBuffer(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithMetrics wires publish/drop/subscriber counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Broker) {
		b.metrics = m
	}
}

func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		topics:  make(map[string]map[*Subscription]struct{}),
		buffer:  defaultBuffer,
		metrics: metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscription receives events for the topics it was subscribed to on C.
type Subscription struct {
	C      <-chan domain.Event
	ch     chan domain.Event
	topics []string
	broker *Broker
	once   sync.Once
}

// Subscribe registers a new subscriber on the given topics.
func (b *Broker) Subscribe(topics ...string) *Subscription {
	ch := make(chan domain.Event, b.buffer)
	sub := &Subscription{C: ch, ch: ch, topics: topics, broker: b}

	b.mu.Lock()
	for _, topic := range topics {
		set := b.topics[topic]
		if set == nil {
			set = make(map[*Subscription]struct{})
			b.topics[topic] = set
		}
		set[sub] = struct{}{}
	}
	b.mu.Unlock()

	b.metrics.Subscribers.Inc()
	return sub
}

// Close unsubscribes from all topics. Safe to call more than once; C is never
// closed so in-flight readers simply stop receiving.
func (s *Subscription) Close() {
	s.once.Do(func() {
		b := s.broker
		b.mu.Lock()
		for _, topic := range s.topics {
			if set := b.topics[topic]; set != nil {
				delete(set, s)
				if len(set) == 0 {
					delete(b.topics, topic)
				}
			}
		}
		b.mu.Unlock()
		b.metrics.Subscribers.Dec()
	})
}

// Publish enqueues ev to every subscriber of the given topics before
// returning. A subscriber registered on several of the topics receives the
// event once. When a subscriber's buffer is full the oldest queued event is
// dropped to make room, so publishers never block on a slow reader.
func (b *Broker) Publish(ev domain.Event, topics ...string) {
	b.mu.RLock()
	seen := make(map[*Subscription]struct{})
	for _, topic := range topics {
		for sub := range b.topics[topic] {
			if _, dup := seen[sub]; dup {
				continue
			}
			seen[sub] = struct{}{}
			b.enqueue(sub, ev)
		}
	}
	b.mu.RUnlock()

	b.metrics.EventsPublished.WithLabelValues(string(ev.Type)).Inc()
}

func (b *Broker) enqueue(sub *Subscription, ev domain.Event) {
	for {
		select {
		case sub.ch <- ev:
			return
		default:
		}
		select {
		case <-sub.ch:
			b.metrics.EventsDropped.Inc()
		default:
		}
	}
}
