package events

import "time"

// Kind is the namespaced event type identifier, e.g. "tool_call.updated".
type Kind string

// Event is implemented by every activity event. The concrete type carries
// the payload; consumers dispatch on it with a type switch.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the fields shared by all events. Timestamp records when the
// event was decoded, not when the backend produced it.
type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind { return b.kind }

func (b Base) Timestamp() time.Time { return b.timestamp }
