package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/huddle-core/core/conversations"
)

// Store is the in-memory registry of live sessions.
type Store struct {
	clock     func() time.Time
	afterFunc AfterFunc
	newID     func() string

	mu       sync.RWMutex
	sessions map[string]*State
}

type StoreOption func(*Store)

func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithAfterFunc(afterFunc AfterFunc) StoreOption {
	return func(s *Store) {
		if afterFunc != nil {
			s.afterFunc = afterFunc
		}
	}
}

func WithIDGenerator(newID func() string) StoreOption {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		clock:     time.Now,
		afterFunc: systemAfterFunc,
		newID:     uuid.NewString,
		sessions:  map[string]*State{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a new session for the case and returns its state.
func (s *Store) Create(caseInput conversations.Case) (*State, error) {
	if err := caseInput.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for _, exists := s.sessions[id]; exists; _, exists = s.sessions[id] {
		id = s.newID()
	}
	state := newState(id, caseInput, s.clock, s.afterFunc)
	s.sessions[id] = state
	return state, nil
}

func (s *Store) Get(id string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sessions[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return state, nil
}

// Delete closes the session and forgets it.
func (s *Store) Delete(id string) {
	id = strings.TrimSpace(id)

	s.mu.Lock()
	state, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		state.Close()
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// PruneIdle removes sessions that were created more than maxAge ago and never
// claimed by a sequencer. It returns how many were removed.
func (s *Store) PruneIdle(maxAge time.Duration) int {
	cutoff := s.clock().Add(-maxAge)

	s.mu.Lock()
	var stale []*State
	for id, state := range s.sessions {
		if !state.IsRunning() && state.CreatedAt().Before(cutoff) {
			stale = append(stale, state)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, state := range stale {
		state.Close()
	}
	return len(stale)
}

func (s *Store) RecordInterjection(id, text string) (bool, error) {
	state, err := s.Get(id)
	if err != nil {
		return false, err
	}
	return state.RecordInterjection(text)
}

func (s *Store) ConsumeNextInterjection(id string) (string, bool, error) {
	state, err := s.Get(id)
	if err != nil {
		return "", false, err
	}
	text, ok := state.ConsumeNextInterjection()
	return text, ok, nil
}

func (s *Store) PostQuestion(id string, role conversations.RoleID, text string, timeout time.Duration) (*Answer, error) {
	state, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return state.PostQuestion(role, text, timeout)
}

func (s *Store) SkipQuestion(id string) (bool, error) {
	state, err := s.Get(id)
	if err != nil {
		return false, err
	}
	return state.SkipQuestion(), nil
}
