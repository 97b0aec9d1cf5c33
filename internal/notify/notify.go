// Package notify delivers fire-and-forget notifications about conflicts.
package notify

import (
	"fmt"

	"github.com/Iron-Ham/conflux/internal/event"
	"github.com/Iron-Ham/conflux/internal/logging"
)

// Level is a notification severity.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Sink receives notifications. Notify must not block for long and must not
// fail the caller.
type Sink interface {
	Notify(message string, level Level)
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(string, Level) {}

// Log writes notifications to a logger.
type Log struct {
	logger *logging.Logger
}

// NewLog creates a Log sink.
func NewLog(l *logging.Logger) *Log {
	if l == nil {
		l = logging.NopLogger()
	}
	return &Log{logger: l.WithComponent("notify")}
}

// Notify logs message at a level matching the notification severity.
func (s *Log) Notify(message string, level Level) {
	switch level {
	case LevelCritical:
		s.logger.Error(message, "notify_level", string(level))
	case LevelWarning:
		s.logger.Warn(message, "notify_level", string(level))
	default:
		s.logger.Info(message, "notify_level", string(level))
	}
}

// Bus publishes notifications as events.
type Bus struct {
	bus      *event.Bus
	tenantID string
}

// NewBus creates a Bus sink for tenantID.
func NewBus(b *event.Bus, tenantID string) *Bus {
	return &Bus{bus: b, tenantID: tenantID}
}

// Notify publishes a notification.sent event.
func (s *Bus) Notify(message string, level Level) {
	if s.bus != nil {
		s.bus.Publish(event.NewNotificationEvent(s.tenantID, message, string(level)))
	}
}

// Multi fans a notification out to several sinks.
type Multi []Sink

func (m Multi) Notify(message string, level Level) {
	for _, s := range m {
		s.Notify(message, level)
	}
}

// Safe recovers from a panicking sink so a broken sink cannot fail the
// operation that notified it.
type Safe struct {
	Sink   Sink
	Logger *logging.Logger
}

func (s Safe) Notify(message string, level Level) {
	defer func() {
		if r := recover(); r != nil && s.Logger != nil {
			s.Logger.Error("notification sink panicked", "panic", fmt.Sprint(r))
		}
	}()
	s.Sink.Notify(message, level)
}

// New builds the sink named by kind ("none", "log", or "bus").
func New(kind string, l *logging.Logger, b *event.Bus, tenantID string) (Sink, error) {
	switch kind {
	case "", "none":
		return Nop{}, nil
	case "log":
		return NewLog(l), nil
	case "bus":
		return NewBus(b, tenantID), nil
	default:
		return nil, fmt.Errorf("unknown notification sink %q", kind)
	}
}
