package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/koscakluka/huddle-core/core/events"
)

// ErrStreamClosed is returned once an observer stream failed or was closed.
// Every later emission on that stream fails with it as well.
var ErrStreamClosed = errors.New("event stream closed")

// Emitter delivers session events to a single observer. An error means
// the observer is gone and the session is torn down.
type Emitter interface {
	Emit(ctx context.Context, event events.Event) error
}

type EmitterFunc func(ctx context.Context, event events.Event) error

func (f EmitterFunc) Emit(ctx context.Context, event events.Event) error { return f(ctx, event) }

// sessionStream serializes emissions from the sequencer and from
// participant acknowledgements so the observer is called from one goroutine
// at a time.
type sessionStream struct {
	mu      sync.Mutex
	emitter Emitter
	closed  bool
}

func newSessionStream(emitter Emitter) *sessionStream {
	return &sessionStream{emitter: emitter}
}

func (s *sessionStream) emit(ctx context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.closed = true
		return fmt.Errorf("%w: failed to emit %s event: %w", ErrStreamClosed, event.Kind(), err)
	}
	return nil
}

func (s *sessionStream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
