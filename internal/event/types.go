package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier (e.g., "conflict.resolved").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeConflictDetected   = "conflict.detected"
	TypeConflictResolved   = "conflict.resolved"
	TypeConflictEscalated  = "conflict.escalated"
	TypeResolutionRejected = "conflict.resolution_rejected"
	TypeWorkflowRegistered = "workflow.registered"
	TypeStepApproved       = "workflow.step_approved"
	TypeStepRejected       = "workflow.step_rejected"
	TypeStepSkipped        = "workflow.step_skipped"
	TypeWorkflowCompleted  = "workflow.completed"
	TypeWorkflowBlocked    = "workflow.blocked"
	TypeNotification       = "notification.sent"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Conflict Events
// -----------------------------------------------------------------------------

// ConflictDetectedEvent is emitted when the detector persists a new conflict.
type ConflictDetectedEvent struct {
	baseEvent
	TenantID     string
	ConflictID   string
	ConflictType string
	Impact       string
	Priority     string
}

// NewConflictDetectedEvent creates a ConflictDetectedEvent.
func NewConflictDetectedEvent(tenantID, conflictID, conflictType, impact, priority string) ConflictDetectedEvent {
	return ConflictDetectedEvent{
		baseEvent:    newBaseEvent(TypeConflictDetected),
		TenantID:     tenantID,
		ConflictID:   conflictID,
		ConflictType: conflictType,
		Impact:       impact,
		Priority:     priority,
	}
}

// ConflictResolvedEvent is emitted after a resolution commits.
type ConflictResolvedEvent struct {
	baseEvent
	TenantID         string
	ConflictID       string
	Strategy         string
	ProcessingTimeMs int64
}

// NewConflictResolvedEvent creates a ConflictResolvedEvent.
func NewConflictResolvedEvent(tenantID, conflictID, strategy string, processingMs int64) ConflictResolvedEvent {
	return ConflictResolvedEvent{
		baseEvent:        newBaseEvent(TypeConflictResolved),
		TenantID:         tenantID,
		ConflictID:       conflictID,
		Strategy:         strategy,
		ProcessingTimeMs: processingMs,
	}
}

// ResolutionRejectedEvent is emitted when a resolve call is refused by the
// admission guard.
type ResolutionRejectedEvent struct {
	baseEvent
	TenantID   string
	ConflictID string
	Reason     string
}

// NewResolutionRejectedEvent creates a ResolutionRejectedEvent.
func NewResolutionRejectedEvent(tenantID, conflictID, reason string) ResolutionRejectedEvent {
	return ResolutionRejectedEvent{
		baseEvent:  newBaseEvent(TypeResolutionRejected),
		TenantID:   tenantID,
		ConflictID: conflictID,
		Reason:     reason,
	}
}

// ConflictEscalatedEvent is emitted when a conflict's priority is raised.
type ConflictEscalatedEvent struct {
	baseEvent
	TenantID   string
	ConflictID string
	From       string
	To         string
	Reason     string
	Automatic  bool // raised by an age sweep rather than a caller
}

// NewConflictEscalatedEvent creates a ConflictEscalatedEvent.
func NewConflictEscalatedEvent(tenantID, conflictID, from, to, reason string, automatic bool) ConflictEscalatedEvent {
	return ConflictEscalatedEvent{
		baseEvent:  newBaseEvent(TypeConflictEscalated),
		TenantID:   tenantID,
		ConflictID: conflictID,
		From:       from,
		To:         to,
		Reason:     reason,
		Automatic:  automatic,
	}
}

// -----------------------------------------------------------------------------
// Workflow Events
// -----------------------------------------------------------------------------

// WorkflowRegisteredEvent is emitted when a workflow is bound to a conflict.
type WorkflowRegisteredEvent struct {
	baseEvent
	TenantID   string
	WorkflowID string
	ConflictID string
}

// NewWorkflowRegisteredEvent creates a WorkflowRegisteredEvent.
func NewWorkflowRegisteredEvent(tenantID, workflowID, conflictID string) WorkflowRegisteredEvent {
	return WorkflowRegisteredEvent{
		baseEvent:  newBaseEvent(TypeWorkflowRegistered),
		TenantID:   tenantID,
		WorkflowID: workflowID,
		ConflictID: conflictID,
	}
}

// StepTransitionEvent is emitted when an approval step leaves pending.
// Its EventType is one of the workflow.step_* constants.
type StepTransitionEvent struct {
	baseEvent
	TenantID   string
	WorkflowID string
	StepID     string
	Role       string
	Comments   string
}

// NewStepTransitionEvent creates a StepTransitionEvent of the given type.
func NewStepTransitionEvent(eventType, tenantID, workflowID, stepID, role, comments string) StepTransitionEvent {
	return StepTransitionEvent{
		baseEvent:  newBaseEvent(eventType),
		TenantID:   tenantID,
		WorkflowID: workflowID,
		StepID:     stepID,
		Role:       role,
		Comments:   comments,
	}
}

// WorkflowStatusEvent is emitted when a workflow becomes complete or blocked.
type WorkflowStatusEvent struct {
	baseEvent
	TenantID   string
	WorkflowID string
	ConflictID string
}

// NewWorkflowCompletedEvent creates a workflow.completed event.
func NewWorkflowCompletedEvent(tenantID, workflowID, conflictID string) WorkflowStatusEvent {
	return WorkflowStatusEvent{
		baseEvent:  newBaseEvent(TypeWorkflowCompleted),
		TenantID:   tenantID,
		WorkflowID: workflowID,
		ConflictID: conflictID,
	}
}

// NewWorkflowBlockedEvent creates a workflow.blocked event.
func NewWorkflowBlockedEvent(tenantID, workflowID, conflictID string) WorkflowStatusEvent {
	return WorkflowStatusEvent{
		baseEvent:  newBaseEvent(TypeWorkflowBlocked),
		TenantID:   tenantID,
		WorkflowID: workflowID,
		ConflictID: conflictID,
	}
}

// -----------------------------------------------------------------------------
// Notification Events
// -----------------------------------------------------------------------------

// NotificationEvent carries a message handed to the notification sink.
type NotificationEvent struct {
	baseEvent
	TenantID string
	Message  string
	Level    string
}

// NewNotificationEvent creates a NotificationEvent.
func NewNotificationEvent(tenantID, message, level string) NotificationEvent {
	return NotificationEvent{
		baseEvent: newBaseEvent(TypeNotification),
		TenantID:  tenantID,
		Message:   message,
		Level:     level,
	}
}
