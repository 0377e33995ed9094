package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnsupportedEvent = errors.New("event has no wire encoding")

// Marshal encodes an event as a flat JSON object with a "type" field.
func Marshal(event Event) ([]byte, error) {
	if _, ok := event.(json.Marshaler); !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedEvent, event)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", event.Kind(), err)
	}
	return data, nil
}
