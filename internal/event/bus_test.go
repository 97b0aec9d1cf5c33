package event

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/conflux/internal/logging"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus()

	called := false
	id := bus.Subscribe(TypeConflictResolved, func(e Event) {
		called = true
	})

	if id == "" {
		t.Error("Subscribe should return a non-empty ID")
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("Expected 1 subscription, got %d", bus.SubscriptionCount())
	}
	if called {
		t.Error("Handler should not be called until an event is published")
	}
}

func TestBus_Publish(t *testing.T) {
	bus := NewBus()

	var received Event
	bus.Subscribe(TypeConflictResolved, func(e Event) {
		received = e
	})
	bus.Subscribe(TypeConflictEscalated, func(e Event) {
		t.Error("handler for another type should not be called")
	})

	bus.Publish(NewConflictResolvedEvent("acme", "c-1", "server_wins", 7))

	r, ok := received.(ConflictResolvedEvent)
	if !ok {
		t.Fatalf("received %T, want ConflictResolvedEvent", received)
	}
	if r.ConflictID != "c-1" || r.Strategy != "server_wins" || r.ProcessingTimeMs != 7 {
		t.Errorf("unexpected payload: %+v", r)
	}
	if r.Timestamp().IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestBus_Ordering(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "wild") })
	bus.Subscribe(TypeWorkflowCompleted, func(e Event) { order = append(order, "first") })
	bus.Subscribe(TypeWorkflowCompleted, func(e Event) { order = append(order, "second") })

	bus.Publish(NewWorkflowCompletedEvent("acme", "wf-1", "c-1"))

	want := "first,second,wild"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	count := 0
	id := bus.Subscribe(TypeNotification, func(e Event) { count++ })
	bus.Subscribe(TypeNotification, func(e Event) { count += 10 })

	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe should find the subscription")
	}
	if bus.Unsubscribe(id) {
		t.Error("second Unsubscribe should report false")
	}

	bus.Publish(NewNotificationEvent("acme", "hi", "info"))
	if count != 10 {
		t.Errorf("count = %d, want 10", count)
	}

	bus.Clear()
	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount after Clear = %d", bus.SubscriptionCount())
	}
}

func TestBus_PanicRecovery(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(WithBusLogger(logging.NewWriterLogger(&buf, logging.LevelDebug)))

	reached := false
	bus.Subscribe(TypeConflictDetected, func(e Event) { panic("boom") })
	bus.Subscribe(TypeConflictDetected, func(e Event) { reached = true })

	bus.Publish(NewConflictDetectedEvent("acme", "c-1", "data_mismatch", "none", "low"))

	if !reached {
		t.Error("handler after a panicking one should still run")
	}
	if !strings.Contains(buf.String(), "event handler panicked") {
		t.Errorf("panic not logged: %q", buf.String())
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	seen := 0
	bus.SubscribeAll(func(e Event) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewConflictEscalatedEvent("acme", "c-1", "low", "medium", "age", true))
		}()
	}
	wg.Wait()

	if seen != 50 {
		t.Errorf("seen = %d, want 50", seen)
	}
}

func TestStepTransitionEvent_Type(t *testing.T) {
	e := NewStepTransitionEvent(TypeStepRejected, "acme", "wf-1", "s-1", "finance", "no")
	if e.EventType() != TypeStepRejected {
		t.Errorf("EventType() = %q", e.EventType())
	}
}
