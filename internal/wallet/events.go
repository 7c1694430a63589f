package wallet

import (
	"errors"
	"sync"

	klog "github.com/Klingon-tech/cisp-wallet/internal/log"
	"github.com/Klingon-tech/cisp-wallet/pkg/types"
)

// ErrBrokerClosed is returned by Subscribe after the broker was closed.
var ErrBrokerClosed = errors.New("event broker closed")

// subscriberBuffer is the number of undelivered events a subscriber may
// hold before further events to it are dropped.
const subscriberBuffer = 64

// EventKind classifies a store change.
type EventKind int

const (
	EventCreated EventKind = iota + 1
	EventUpdated
	EventDeleted
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventUpdated:
		return "updated"
	case EventDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event announces a committed change to a wallet record. Revision is the
// record revision after the change, or the last revision for deletions.
type Event struct {
	Kind     EventKind
	Address  types.Address
	Revision uint64
}

// Subscription receives events from a Broker.
type Subscription struct {
	id      uint64
	updates chan Event
	quit    chan struct{}
	broker  *Broker
	once    sync.Once
}

// Updates returns the channel events are delivered on.
func (s *Subscription) Updates() <-chan Event {
	return s.updates
}

// Quit is closed when the subscription ends, either by Cancel or because the
// broker closed.
func (s *Subscription) Quit() <-chan struct{} {
	return s.quit
}

// Cancel ends the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.broker.remove(s.id)
}

func (s *Subscription) stop() {
	s.once.Do(func() { close(s.quit) })
}

// Broker fans store change events out to subscribers. Publish never blocks;
// a subscriber that falls more than subscriberBuffer events behind misses
// events and must re-read the store.
type Broker struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a new subscriber.
func (b *Broker) Subscribe() (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}
	b.nextID++
	sub := &Subscription{
		id:      b.nextID,
		updates: make(chan Event, subscriberBuffer),
		quit:    make(chan struct{}),
		broker:  b,
	}
	b.subs[sub.id] = sub
	return sub, nil
}

// Publish delivers ev to every current subscriber.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		select {
		case sub.updates <- ev:
		default:
			klog.Store.Warn().
				Uint64("subscriber", sub.id).
				Str("address", ev.Address.String()).
				Msg("Subscriber lagging, event dropped")
		}
	}
}

// Close ends all subscriptions and rejects new ones.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		sub.stop()
		delete(b.subs, id)
	}
}

func (b *Broker) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		sub.stop()
		delete(b.subs, id)
	}
}
