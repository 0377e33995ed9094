package session

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/koscakluka/huddle-core/core/conversations"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionClosed     = errors.New("session is closed")
	ErrSessionRunning    = errors.New("session is already running")
	ErrQuestionPending   = errors.New("a question is already pending")
	ErrEmptyInterjection = errors.New("interjection text is empty")
)

var _ conversations.ActiveContext = (*State)(nil)

// Interjection is free text the participant added while the session runs.
type Interjection struct {
	Text       string
	ReceivedAt time.Time
	Consumed   bool
}

// AfterFunc schedules f after d and returns a function that cancels it.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func systemAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type State struct {
	id        string
	caseInput conversations.Case
	createdAt time.Time
	clock     func() time.Time
	afterFunc AfterFunc

	mu            sync.Mutex
	transcript    []conversations.Entry
	interjections []Interjection
	pending       *Answer
	running       bool
	closed        bool
}

func newState(id string, caseInput conversations.Case, clock func() time.Time, afterFunc AfterFunc) *State {
	return &State{
		id:        id,
		caseInput: caseInput,
		createdAt: clock(),
		clock:     clock,
		afterFunc: afterFunc,
	}
}

func (s *State) ID() string               { return s.id }
func (s *State) Case() conversations.Case { return s.caseInput }
func (s *State) CreatedAt() time.Time     { return s.createdAt }

// Claim marks the session as driven by a sequencer. Only the first claim
// succeeds.
func (s *State) Claim() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.running {
		return ErrSessionRunning
	}
	s.running = true
	return nil
}

func (s *State) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Transcript returns a deep copy of the conversation so far.
func (s *State) Transcript() []conversations.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript := make([]conversations.Entry, len(s.transcript))
	for i, entry := range s.transcript {
		entry.Sources = slices.Clone(entry.Sources)
		transcript[i] = entry
	}
	return transcript
}

// Append adds an entry to the end of the transcript.
func (s *State) Append(entry conversations.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if entry.At.IsZero() {
		entry.At = s.clock()
	}
	s.transcript = append(s.transcript, entry)
	return nil
}

// RecordInterjection queues text from the participant. When a question is
// pending the text answers it and is queued already consumed, so it is not
// delivered a second time as a turn fold-in. The returned flag reports
// whether a question was answered.
func (s *State) RecordInterjection(text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, ErrEmptyInterjection
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrSessionClosed
	}

	interjection := Interjection{Text: text, ReceivedAt: s.clock()}
	pending := s.pending
	if pending != nil {
		s.pending = nil
		interjection.Consumed = true
	}
	s.interjections = append(s.interjections, interjection)
	s.mu.Unlock()

	if pending != nil {
		pending.resolve(text, true)
		return true, nil
	}
	return false, nil
}

// ConsumeNextInterjection hands out the oldest unconsumed interjection.
func (s *State) ConsumeNextInterjection() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.interjections {
		if !s.interjections[i].Consumed {
			s.interjections[i].Consumed = true
			return s.interjections[i].Text, true
		}
	}
	return "", false
}

// QueuedInterjections counts interjections that have not been consumed yet.
func (s *State) QueuedInterjections() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, interjection := range s.interjections {
		if !interjection.Consumed {
			count++
		}
	}
	return count
}

// PostQuestion installs a pending question which resolves on answer, skip,
// close or after timeout, whichever comes first.
func (s *State) PostQuestion(role conversations.RoleID, text string, timeout time.Duration) (*Answer, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.pending != nil {
		s.mu.Unlock()
		return nil, ErrQuestionPending
	}

	answer := newAnswer(PendingQuestion{
		AskingRole: role,
		Text:       text,
		Deadline:   s.clock().Add(timeout),
	})
	s.pending = answer
	s.mu.Unlock()

	if timeout <= 0 {
		s.resolvePending(answer, "", false)
		return answer, nil
	}
	answer.setStop(s.afterFunc(timeout, func() { s.resolvePending(answer, "", false) }))
	return answer, nil
}

// PendingQuestion returns the outstanding question, if any.
func (s *State) PendingQuestion() (PendingQuestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return PendingQuestion{}, false
	}
	return s.pending.question, true
}

// SkipQuestion resolves the pending question without an answer. It reports
// whether there was anything to skip.
func (s *State) SkipQuestion() bool {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()

	if pending == nil {
		return false
	}
	return s.resolvePending(pending, "", false)
}

// resolvePending clears the slot only if it still holds answer, so an
// answer racing with the timeout resolves the question exactly once.
func (s *State) resolvePending(answer *Answer, text string, answered bool) bool {
	s.mu.Lock()
	if s.pending != answer {
		s.mu.Unlock()
		return false
	}
	s.pending = nil
	s.mu.Unlock()

	return answer.resolve(text, answered)
}

// Close discards everything the session holds. A pending question resolves
// without an answer and queued interjections are dropped.
func (s *State) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := s.pending
	s.pending = nil
	s.transcript = nil
	s.interjections = nil
	s.mu.Unlock()

	if pending != nil {
		pending.resolve("", false)
	}
}

func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
