package events

import "time"

// Kind is the wire discriminator of an event.
type Kind string

// Event is anything the sequencer delivers to a stream.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

type Base struct {
	kind      Kind
	timestamp time.Time
}

// NewBase stamps the event with the current time.
func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

// NewBaseAt stamps the event with a known time, e.g. when the event reports
// a transcript entry that was already recorded.
func NewBaseAt(kind Kind, timestamp time.Time) Base {
	if timestamp.IsZero() {
		return NewBase(kind)
	}
	return Base{kind: kind, timestamp: timestamp}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
