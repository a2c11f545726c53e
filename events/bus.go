package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CheckoutCompleted is published when a booking's check-out photo set reaches
// all four sides. Settlement subscribes; the photo gate never calls it
// directly, keeping the trigger testable without transport.
type CheckoutCompleted struct {
	BookingID uuid.UUID
	At        time.Time
}

// Bus is a minimal in-process publish/subscribe channel fan-out for the
// checkout-completed trigger. Outward-facing lifecycle events go to Kafka;
// this bus only carries the local settlement trigger.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan CheckoutCompleted
	closed bool
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe returns a buffered channel receiving every subsequent publish.
func (b *Bus) Subscribe() <-chan CheckoutCompleted {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan CheckoutCompleted, 16)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers the event to every subscriber. Blocks if a subscriber's
// buffer is full rather than dropping the trigger.
func (b *Bus) Publish(e CheckoutCompleted) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		ch <- e
	}
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
}
