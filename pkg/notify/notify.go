package notify

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Steel-tech/fabtrack/pkg/models"
)

// Publisher receives engine events after a successful commit. Delivery and
// fan-out are entirely the publisher's concern; the engine never blocks on
// or retries a publish.
type Publisher interface {
	Publish(event models.Event)
}

// Subscription is one subscriber's handle on a Broker. The caller owns it:
// read events from C and call Unsubscribe when done. There is no implicit
// cleanup of dangling subscriptions.
type Subscription struct {
	C      <-chan models.Event
	id     string
	broker *Broker
	events chan models.Event
	once   sync.Once
}

// Unsubscribe detaches the subscription and closes C. Safe to call twice.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.remove(s.id)
	})
}

// Broker is an in-process event fan-out. Slow subscribers whose buffer is
// full have events dropped rather than stalling the publisher.
type Broker struct {
	mu      sync.RWMutex
	subs    map[string]*Subscription
	bufSize int
}

// NewBroker creates a Broker whose subscriptions buffer bufSize events.
func NewBroker(bufSize int) *Broker {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &Broker{
		subs:    make(map[string]*Subscription),
		bufSize: bufSize,
	}
}

// Subscribe registers a new subscriber and returns its Subscription.
func (b *Broker) Subscribe() *Subscription {
	events := make(chan models.Event, b.bufSize)
	sub := &Subscription{
		C:      events,
		id:     uuid.New().String(),
		broker: b,
		events: events,
	}
	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

// Publish fans the event out to all current subscribers, best effort.
func (b *Broker) Publish(event models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.events <- event:
		default:
			// subscriber buffer full, drop
		}
	}
}

func (b *Broker) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.events)
	}
}
