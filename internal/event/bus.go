package event

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/Iron-Ham/conflux/internal/logging"
)

// Wildcard is the event type used by SubscribeAll.
const Wildcard = "*"

// Handler is a function that handles an event.
type Handler func(Event)

type subscription struct {
	id      string
	handler Handler
}

// Bus is a synchronous pub-sub event bus.
// Handlers run on the publisher's goroutine; publishing never holds the
// bus lock while a handler executes.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription // eventType -> subscriptions
	nextID        atomic.Uint64
	logger        *logging.Logger
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBusLogger sets the logger that receives handler panics.
func WithBusLogger(l *logging.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBus creates a new event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subscriptions: make(map[string][]subscription),
		logger:        logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for a specific event type.
// Returns a subscription ID that can be used to unsubscribe.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))
	b.subscriptions[eventType] = append(b.subscriptions[eventType], subscription{id: id, handler: handler})
	return id
}

// SubscribeAll registers a handler for all event types.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(Wildcard, handler)
}

// Unsubscribe removes a subscription by ID.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id != id {
				continue
			}
			rest := make([]subscription, 0, len(subs)-1)
			rest = append(rest, subs[:i]...)
			b.subscriptions[eventType] = append(rest, subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish dispatches an event to all registered handlers.
// Handlers subscribed to the event type run first, then wildcard handlers,
// each group in registration order. A panicking handler is logged and
// skipped; delivery continues to the rest.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	specific := append([]subscription(nil), b.subscriptions[e.EventType()]...)
	wildcard := append([]subscription(nil), b.subscriptions[Wildcard]...)
	b.mu.RUnlock()

	for _, sub := range specific {
		b.safeCall(sub.handler, e)
	}
	for _, sub := range wildcard {
		b.safeCall(sub.handler, e)
	}
}

func (b *Bus) safeCall(handler Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event_type", e.EventType(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	handler(e)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = make(map[string][]subscription)
}

// SubscriptionCount returns the total number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subscriptions {
		count += len(subs)
	}
	return count
}
