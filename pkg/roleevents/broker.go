// Package roleevents delivers role transitions to a core as a typed
// RoleEvent tagged union over a channel, generalized from a listener
// interface hierarchy per the design notes: no BecamePrimary/BecameBack/
// BecameMirror/LostPrimary no-op default methods, just one Subscriber
// channel per interested party.
package roleevents

import (
	"sync"

	"github.com/cuemby/ridgedb/pkg/types"
)

// Subscriber is a channel that receives role events.
type Subscriber chan types.RoleEvent

// Broker manages role-event subscriptions and distribution for one core.
// The storage core publishes to it each role event it applies; anything
// that cares about the core's role transitions subscribes.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
	eventCh     chan types.RoleEvent
	stopCh      chan struct{}
}

// NewBroker creates a new role-event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan types.RoleEvent, 16),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns its channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 8)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish delivers event to every subscriber.
func (b *Broker) Publish(event types.RoleEvent) {
	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event types.RoleEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full: this event is dropped for that
			// subscriber, and the events already buffered are kept.
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
