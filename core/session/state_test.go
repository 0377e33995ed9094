package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/huddle-core/core/conversations"
)

type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (m *manualTimers) AfterFunc(d time.Duration, f func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	timer := &manualTimer{d: d, f: f}
	m.timers = append(m.timers, timer)
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		wasActive := !timer.stopped
		timer.stopped = true
		return wasActive
	}
}

func (m *manualTimers) FireAll() {
	m.mu.Lock()
	timers := append([]*manualTimer(nil), m.timers...)
	m.mu.Unlock()

	for _, timer := range timers {
		timer.f()
	}
}

func newTestState(t *testing.T, opts ...StoreOption) (*Store, *State) {
	t.Helper()

	store := NewStore(opts...)
	state, err := store.Create(conversations.NewCase("stomach ache", "", ""))
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return store, state
}

func TestInterjectionsAreConsumedInOrderOnce(t *testing.T) {
	_, state := newTestState(t)

	for _, text := range []string{"A", "B", "C"} {
		if _, err := state.RecordInterjection(text); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	for _, want := range []string{"A", "B", "C"} {
		got, ok := state.ConsumeNextInterjection()
		if !ok || got != want {
			t.Fatalf("expected %q, got %q (ok=%t)", want, got, ok)
		}
	}
	if got, ok := state.ConsumeNextInterjection(); ok {
		t.Fatalf("expected queue to be drained, got %q", got)
	}
}

func TestRecordInterjectionRejectsBlankText(t *testing.T) {
	_, state := newTestState(t)

	if _, err := state.RecordInterjection("   "); !errors.Is(err, ErrEmptyInterjection) {
		t.Fatalf("expected empty interjection error, got %v", err)
	}
}

func TestInterjectionAnswersPendingQuestion(t *testing.T) {
	timers := &manualTimers{}
	_, state := newTestState(t, WithAfterFunc(timers.AfterFunc))

	answer, err := state.PostQuestion(conversations.RoleGuidelines, "Any fever?", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	answered, err := state.RecordInterjection("no fever")
	if err != nil || !answered {
		t.Fatalf("expected interjection to answer the question, answered=%t err=%v", answered, err)
	}

	text, ok, err := answer.Wait(context.Background())
	if err != nil || !ok || text != "no fever" {
		t.Fatalf("expected answer %q, got %q ok=%t err=%v", "no fever", text, ok, err)
	}
	if _, pending := state.PendingQuestion(); pending {
		t.Fatalf("expected question slot to be cleared")
	}
	if got, ok := state.ConsumeNextInterjection(); ok {
		t.Fatalf("expected answer not to be re-delivered as an interjection, got %q", got)
	}

	// A late timeout must not resolve the answer a second time.
	timers.FireAll()
	if text, ok := answer.Result(); !ok || text != "no fever" {
		t.Fatalf("expected answer to be unchanged after timeout, got %q ok=%t", text, ok)
	}
}

func TestSecondQuestionIsRejectedWhilePending(t *testing.T) {
	timers := &manualTimers{}
	_, state := newTestState(t, WithAfterFunc(timers.AfterFunc))

	if _, err := state.PostQuestion(conversations.RoleGuidelines, "first?", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := state.PostQuestion(conversations.RoleCases, "second?", time.Minute); !errors.Is(err, ErrQuestionPending) {
		t.Fatalf("expected pending question error, got %v", err)
	}
}

func TestQuestionTimesOutWithoutAnswer(t *testing.T) {
	timers := &manualTimers{}
	_, state := newTestState(t, WithAfterFunc(timers.AfterFunc))

	answer, err := state.PostQuestion(conversations.RoleCases, "How long?", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	timers.FireAll()

	select {
	case <-answer.Done():
	default:
		t.Fatalf("expected answer to resolve on timeout")
	}
	if text, ok := answer.Result(); ok || text != "" {
		t.Fatalf("expected no answer, got %q ok=%t", text, ok)
	}

	// After the timeout the text is an ordinary interjection again.
	if answered, _ := state.RecordInterjection("late"); answered {
		t.Fatalf("expected late text not to answer anything")
	}
	if got, ok := state.ConsumeNextInterjection(); !ok || got != "late" {
		t.Fatalf("expected late text to be queued, got %q ok=%t", got, ok)
	}
}

func TestQuestionResolvesWithinTimeoutOnWallClock(t *testing.T) {
	_, state := newTestState(t)

	start := time.Now()
	answer, err := state.PostQuestion(conversations.RoleGuidelines, "Anything else?", 30*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-answer.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for question timeout")
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("expected answer to wait for the timeout, resolved after %v", elapsed)
	}
}

func TestSkipQuestionResolvesImmediately(t *testing.T) {
	timers := &manualTimers{}
	_, state := newTestState(t, WithAfterFunc(timers.AfterFunc))

	if state.SkipQuestion() {
		t.Fatalf("expected skip without a question to be a no-op")
	}

	answer, _ := state.PostQuestion(conversations.RoleGuidelines, "Any allergies?", time.Minute)
	if !state.SkipQuestion() {
		t.Fatalf("expected skip to resolve the pending question")
	}
	if _, ok := answer.Result(); ok {
		t.Fatalf("expected skipped question to have no answer")
	}
	if state.SkipQuestion() {
		t.Fatalf("expected second skip to be a no-op")
	}
	timers.mu.Lock()
	stopped := timers.timers[0].stopped
	timers.mu.Unlock()
	if !stopped {
		t.Fatalf("expected timeout timer to be stopped after skip")
	}
}

func TestConcurrentAnswerAndTimeoutResolveOnce(t *testing.T) {
	for range 50 {
		timers := &manualTimers{}
		_, state := newTestState(t, WithAfterFunc(timers.AfterFunc))

		answer, _ := state.PostQuestion(conversations.RoleGuidelines, "?", time.Minute)

		var wg sync.WaitGroup
		wg.Add(3)
		go func() { defer wg.Done(); timers.FireAll() }()
		go func() { defer wg.Done(); _, _ = state.RecordInterjection("yes") }()
		go func() { defer wg.Done(); state.SkipQuestion() }()
		wg.Wait()

		select {
		case <-answer.Done():
		default:
			t.Fatalf("expected answer to be resolved")
		}
	}
}

func TestCloseResolvesPendingAndDiscardsState(t *testing.T) {
	timers := &manualTimers{}
	_, state := newTestState(t, WithAfterFunc(timers.AfterFunc))

	_ = state.Append(conversations.Entry{Agent: "Guidelines", Text: "hello"})
	_, _ = state.RecordInterjection("queued")
	answer, _ := state.PostQuestion(conversations.RoleGuidelines, "?", time.Minute)

	state.Close()

	if _, ok := answer.Result(); ok {
		t.Fatalf("expected close to resolve without an answer")
	}
	if got := len(state.Transcript()); got != 0 {
		t.Fatalf("expected transcript to be discarded, got %d entries", got)
	}
	if state.QueuedInterjections() != 0 {
		t.Fatalf("expected queued interjections to be discarded")
	}
	if _, err := state.RecordInterjection("after close"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if _, err := state.PostQuestion(conversations.RoleCases, "?", time.Minute); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestTranscriptReturnsCopy(t *testing.T) {
	_, state := newTestState(t)

	_ = state.Append(conversations.Entry{
		Agent:   "Evidence",
		Text:    "original",
		Sources: []conversations.Source{{Title: "Study"}},
	})

	snapshot := state.Transcript()
	snapshot[0].Text = "mutated"
	snapshot[0].Sources[0].Title = "mutated"

	again := state.Transcript()
	if again[0].Text != "original" || again[0].Sources[0].Title != "Study" {
		t.Fatalf("expected stored transcript to be unaffected, got %+v", again[0])
	}
	if again[0].At.IsZero() {
		t.Fatalf("expected append to stamp the entry time")
	}
}

func TestClaimOnlySucceedsOnce(t *testing.T) {
	_, state := newTestState(t)

	if err := state.Claim(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := state.Claim(); !errors.Is(err, ErrSessionRunning) {
		t.Fatalf("expected running error, got %v", err)
	}
}
