// Package event provides a pub-sub event bus for decoupled communication
// between conflux components.
//
// The resolution engine, approval engine, and escalation policy publish
// domain events; the orchestrator, notification sinks, and CLI subscribe to
// them without any of those packages importing each other.
//
// # Main Types
//
//   - [Event]: interface providing EventType() and Timestamp()
//   - [Bus]: synchronous, thread-safe dispatcher
//   - [Handler]: func(Event)
//
// # Event Categories
//
// Conflict lifecycle:
//   - [ConflictDetectedEvent]
//   - [ConflictResolvedEvent]
//   - [ResolutionRejectedEvent]
//   - [ConflictEscalatedEvent]
//
// Approval workflows:
//   - [WorkflowRegisteredEvent]
//   - [StepTransitionEvent]
//   - [WorkflowStatusEvent]
//
// Notifications:
//   - [NotificationEvent]
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers are called synchronously on the
// publishing goroutine, outside the bus lock, and a panicking handler does
// not prevent delivery to the others.
//
// # Usage
//
//	bus := event.NewBus()
//	id := bus.Subscribe(event.TypeConflictResolved, func(e event.Event) {
//	    r := e.(event.ConflictResolvedEvent)
//	    fmt.Println("resolved", r.ConflictID)
//	})
//	defer bus.Unsubscribe(id)
package event
