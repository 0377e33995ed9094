package session

import (
	"context"
	"sync"
	"time"

	"github.com/koscakluka/huddle-core/core/conversations"
)

// PendingQuestion is the single outstanding role-initiated question.
type PendingQuestion struct {
	AskingRole conversations.RoleID
	Text       string
	Deadline   time.Time
}

// Answer is the handle returned by PostQuestion.
type Answer struct {
	question PendingQuestion
	done     chan struct{}

	mu       sync.Mutex
	resolved bool
	text     string
	answered bool
	stop     func() bool
}

func newAnswer(question PendingQuestion) *Answer {
	return &Answer{question: question, done: make(chan struct{})}
}

func (a *Answer) Question() PendingQuestion { return a.question }

// Done is closed once the answer is resolved.
func (a *Answer) Done() <-chan struct{} { return a.done }

// Result returns the participant's text and whether the question was
// actually answered. Only meaningful after Done is closed.
func (a *Answer) Result() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text, a.answered
}

// Wait blocks until the answer resolves or ctx ends.
func (a *Answer) Wait(ctx context.Context) (string, bool, error) {
	select {
	case <-a.done:
		text, answered := a.Result()
		return text, answered, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

func (a *Answer) setStop(stop func() bool) {
	a.mu.Lock()
	if a.resolved {
		a.mu.Unlock()
		stop()
		return
	}
	a.stop = stop
	a.mu.Unlock()
}

func (a *Answer) resolve(text string, answered bool) bool {
	a.mu.Lock()
	if a.resolved {
		a.mu.Unlock()
		return false
	}
	a.resolved = true
	a.text = text
	a.answered = answered
	stop := a.stop
	a.stop = nil
	a.mu.Unlock()

	close(a.done)
	if stop != nil {
		stop()
	}
	return true
}
