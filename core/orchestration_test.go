package orchestration

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/huddle-core/core/conversations"
	"github.com/koscakluka/huddle-core/core/emergency"
	"github.com/koscakluka/huddle-core/core/events"
	"github.com/koscakluka/huddle-core/core/session"
	"github.com/koscakluka/huddle-core/core/urgency"
)

type generatorStub struct {
	mu sync.Mutex

	failRoles    map[conversations.RoleID]bool
	questions    map[conversations.RoleID]string
	synthesis    string
	synthesisErr error
	panicOnSynth bool

	turns         map[conversations.RoleID]conversations.TurnContext
	followUps     []conversations.RoleID
	synthesisTurn *conversations.TurnContext
	calls         int
}

func (g *generatorStub) GenerateRoleUtterance(_ context.Context, role conversations.Role, turn conversations.TurnContext) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	if g.turns == nil {
		g.turns = map[conversations.RoleID]conversations.TurnContext{}
	}
	g.turns[role.ID] = turn
	if g.failRoles[role.ID] {
		return "", errors.New("generation failed")
	}
	return role.Name + " statement", nil
}

func (g *generatorStub) GenerateFollowUpQuestion(_ context.Context, role conversations.Role, _ conversations.TurnContext) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	g.followUps = append(g.followUps, role.ID)
	return g.questions[role.ID], nil
}

func (g *generatorStub) GenerateSynthesis(_ context.Context, turn conversations.TurnContext) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	if g.panicOnSynth {
		panic("synthesis exploded")
	}
	g.synthesisTurn = &turn
	if g.synthesisErr != nil {
		return "", g.synthesisErr
	}
	if g.synthesis == "" {
		return "Team summary. URGENCY: LOW", nil
	}
	return g.synthesis, nil
}

func (g *generatorStub) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *generatorStub) turnFor(role conversations.RoleID) conversations.TurnContext {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turns[role]
}

type emergencyStub struct {
	result emergency.Result
	checks atomic.Int32
}

func (e *emergencyStub) Check(context.Context, string) emergency.Result {
	e.checks.Add(1)
	return e.result
}

type rateGateStub struct{ acquired atomic.Int32 }

func (r *rateGateStub) Acquire(ctx context.Context) error {
	r.acquired.Add(1)
	return ctx.Err()
}

type pacerStub struct {
	mu     sync.Mutex
	pauses []time.Duration
	hook   func(ctx context.Context, index int) error
}

func (p *pacerStub) Pause(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	index := len(p.pauses)
	p.pauses = append(p.pauses, d)
	hook := p.hook
	p.mu.Unlock()

	if hook != nil {
		return hook(ctx, index)
	}
	return ctx.Err()
}

func (p *pacerStub) recorded() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.pauses)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
	onEmit func(events.Event) error
}

func (r *recordingEmitter) Emit(_ context.Context, event events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	onEmit := r.onEmit
	r.mu.Unlock()

	if onEmit != nil {
		return onEmit(event)
	}
	return nil
}

func (r *recordingEmitter) recorded() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

func (r *recordingEmitter) kinds() []events.Kind {
	recorded := r.recorded()
	kinds := make([]events.Kind, len(recorded))
	for i, event := range recorded {
		kinds[i] = event.Kind()
	}
	return kinds
}

func countKind(kinds []events.Kind, kind events.Kind) int {
	count := 0
	for _, k := range kinds {
		if k == kind {
			count++
		}
	}
	return count
}

type fixture struct {
	orchestrator *Orchestrator
	generator    *generatorStub
	emergency    *emergencyStub
	rateGate     *rateGateStub
	pacer        *pacerStub
	emitter      *recordingEmitter
}

func newFixture(generator *generatorStub, opts ...OrchestratorOption) *fixture {
	f := &fixture{
		generator: generator,
		emergency: &emergencyStub{},
		rateGate:  &rateGateStub{},
		pacer:     &pacerStub{},
		emitter:   &recordingEmitter{},
	}
	base := []OrchestratorOption{
		WithGenerator(generator),
		WithEmergencyChecker(f.emergency),
		WithRateGate(f.rateGate),
		WithPacer(f.pacer),
	}
	f.orchestrator = NewOrchestrator(append(base, opts...)...)
	return f
}

func (f *fixture) start(t *testing.T, symptoms string) string {
	t.Helper()

	id, err := f.orchestrator.StartSession(conversations.NewCase(symptoms, "6", "two days"))
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	return id
}

func (f *fixture) run(t *testing.T, ctx context.Context, id string) error {
	t.Helper()

	done := make(chan error, 1)
	go func() { done <- f.orchestrator.Run(ctx, id, f.emitter) }()

	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the consultation to finish")
		return nil
	}
}

func TestRunEmergencyStopsBeforeAnySpecialist(t *testing.T) {
	generator := &generatorStub{}
	f := newFixture(generator)
	f.emergency.result = emergency.Result{IsEmergency: true, Condition: "Respiratory Emergency", Reasoning: "Cannot breathe"}

	id := f.start(t, "I can't breathe")
	if err := f.run(t, context.Background(), id); err != nil {
		t.Fatalf("expected emergency run to succeed, got %v", err)
	}

	kinds := f.emitter.kinds()
	expected := []events.Kind{events.KindConnected, events.KindStatus, events.KindEmergency}
	if !slices.Equal(kinds, expected) {
		t.Fatalf("expected %v, got %v", expected, kinds)
	}
	if generator.callCount() != 0 {
		t.Fatalf("expected no generation calls, got %d", generator.callCount())
	}

	emergencyEvent := f.emitter.recorded()[2].(events.Emergency)
	if emergencyEvent.Condition != "Respiratory Emergency" || emergencyEvent.Message != emergency.Message {
		t.Fatalf("unexpected emergency event %+v", emergencyEvent)
	}
	if f.orchestrator.Store().Len() != 0 {
		t.Fatalf("expected session state to be discarded")
	}
}

func TestRunCompletesWithUrgencyFromSynthesis(t *testing.T) {
	generator := &generatorStub{synthesis: "Go to urgent care.\nURGENCY: HIGH"}
	f := newFixture(generator)

	id := f.start(t, "stomach pain after eating")
	if err := f.run(t, context.Background(), id); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	kinds := f.emitter.kinds()
	if kinds[0] != events.KindConnected {
		t.Fatalf("expected connected first, got %v", kinds)
	}
	if got := countKind(kinds, events.KindAgentMessage); got != 4 {
		t.Fatalf("expected 4 agent messages, got %d", got)
	}
	if got := countKind(kinds, events.KindConsensus); got != 1 {
		t.Fatalf("expected exactly one consensus, got %d", got)
	}
	if kinds[len(kinds)-2] != events.KindConsensus || kinds[len(kinds)-1] != events.KindComplete {
		t.Fatalf("expected consensus then complete at the end, got %v", kinds)
	}

	recorded := f.emitter.recorded()
	consensus := recorded[len(recorded)-2].(events.Consensus)
	if consensus.Urgency.Level != urgency.LevelHigh {
		t.Fatalf("expected HIGH urgency, got %s", consensus.Urgency.Level)
	}
	if len(consensus.AgentMessages) != 4 {
		t.Fatalf("expected 4 agent messages in consensus, got %d", len(consensus.AgentMessages))
	}
	if len(consensus.Sources) == 0 {
		t.Fatalf("expected consensus to carry sources")
	}

	// four statements, two follow-up attempts and the synthesis
	if got := f.rateGate.acquired.Load(); got != 7 {
		t.Fatalf("expected 7 rate gate acquisitions, got %d", got)
	}
	if f.emergency.checks.Load() != 1 {
		t.Fatalf("expected exactly one emergency check")
	}
	if f.orchestrator.Store().Len() != 0 {
		t.Fatalf("expected session state to be discarded")
	}
}

func TestRunEmergencyCheckPrecedesSpecialistEvents(t *testing.T) {
	f := newFixture(&generatorStub{})

	id := f.start(t, "headache")
	if err := f.run(t, context.Background(), id); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	recorded := f.emitter.recorded()
	if len(recorded) < 3 {
		t.Fatalf("expected more events, got %d", len(recorded))
	}
	status, ok := recorded[2].(events.Status)
	if !ok || status.Phase != events.PhaseDebate {
		t.Fatalf("expected debate status right after the emergency check, got %+v", recorded[2])
	}
}

func TestRunPausesBetweenSpecialistsButNotAfterTheLast(t *testing.T) {
	f := newFixture(&generatorStub{}, WithTiming(Timing{
		ReadingPause:      time.Second,
		PreSynthesisPause: 3 * time.Second,
		QuestionTimeout:   time.Second,
	}))

	id := f.start(t, "rash on arm")
	if err := f.run(t, context.Background(), id); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	expected := []time.Duration{time.Second, time.Second, time.Second, 3 * time.Second}
	if got := f.pacer.recorded(); !slices.Equal(got, expected) {
		t.Fatalf("expected pauses %v, got %v", expected, got)
	}
}

func TestRunFailedSpecialistIsLeftOutOfSynthesis(t *testing.T) {
	generator := &generatorStub{failRoles: map[conversations.RoleID]bool{conversations.RoleEvidence: true}}
	f := newFixture(generator)

	id := f.start(t, "fever and cough")
	if err := f.run(t, context.Background(), id); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	var agentError *events.AgentError
	for _, event := range f.emitter.recorded() {
		if typed, ok := event.(events.AgentError); ok {
			agentError = &typed
		}
	}
	if agentError == nil || agentError.AgentKey != conversations.RoleEvidence {
		t.Fatalf("expected agent error for the evidence specialist, got %+v", agentError)
	}

	if generator.synthesisTurn == nil {
		t.Fatalf("expected synthesis to be requested")
	}
	for _, entry := range generator.synthesisTurn.Transcript {
		if entry.RoleID == conversations.RoleEvidence {
			t.Fatalf("expected evidence specialist to be missing from the synthesis transcript")
		}
	}
	if len(generator.synthesisTurn.Transcript) != 3 {
		t.Fatalf("expected 3 transcript entries, got %d", len(generator.synthesisTurn.Transcript))
	}

	kinds := f.emitter.kinds()
	if countKind(kinds, events.KindConsensus) != 1 || kinds[len(kinds)-1] != events.KindComplete {
		t.Fatalf("expected the session to reach consensus, got %v", kinds)
	}
}

type sourceTable map[conversations.RoleID][]conversations.Source

func (t sourceTable) Lookup(string) map[conversations.RoleID][]conversations.Source { return t }

func TestRunConsensusKeepsSourcesOfFailedSpecialist(t *testing.T) {
	generator := &generatorStub{failRoles: map[conversations.RoleID]bool{conversations.RoleEvidence: true}}
	table := sourceTable{
		conversations.RoleGuidelines: {{Title: "Fever protocol", Type: "guideline"}},
		conversations.RoleEvidence:   {{Title: "Cough meta-analysis", Type: "study", PMID: "42"}},
		conversations.RoleSafety:     {{Title: "Fever protocol", Type: "guideline"}},
	}
	f := newFixture(generator, WithSourceLookup(table))

	id := f.start(t, "fever and cough")
	if err := f.run(t, context.Background(), id); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	var consensus *events.Consensus
	for _, event := range f.emitter.recorded() {
		if typed, ok := event.(events.Consensus); ok {
			consensus = &typed
		}
	}
	if consensus == nil {
		t.Fatalf("expected a consensus event, got %v", f.emitter.kinds())
	}

	expected := []conversations.Source{
		{Title: "Fever protocol", Type: "guideline"},
		{Title: "Cough meta-analysis", Type: "study", PMID: "42"},
	}
	if !slices.Equal(consensus.Sources, expected) {
		t.Fatalf("expected sources %+v, got %+v", expected, consensus.Sources)
	}
}

func TestRunFoldsInterjectionsOnePerTurnInOrder(t *testing.T) {
	generator := &generatorStub{}
	f := newFixture(generator)

	id := f.start(t, "dizzy spells")
	for _, text := range []string{"first", "second"} {
		if _, err := f.orchestrator.Store().RecordInterjection(id, text); err != nil {
			t.Fatalf("failed to record interjection: %v", err)
		}
	}

	if err := f.run(t, context.Background(), id); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	testCases := []struct {
		role     conversations.RoleID
		expected string
	}{
		{role: conversations.RoleGuidelines, expected: "first"},
		{role: conversations.RoleEvidence, expected: "second"},
		{role: conversations.RoleCases, expected: ""},
		{role: conversations.RoleSafety, expected: ""},
	}
	for _, tc := range testCases {
		if got := generator.turnFor(tc.role).Interjection; got != tc.expected {
			t.Fatalf("expected %s turn to see %q, got %q", tc.role, tc.expected, got)
		}
	}
	if generator.synthesisTurn.Interjection != "" {
		t.Fatalf("expected no interjection left for the synthesis, got %q", generator.synthesisTurn.Interjection)
	}
}

func TestRunFinalInterjectionReachesSynthesis(t *testing.T) {
	generator := &generatorStub{}
	f := newFixture(generator)
	id := f.start(t, "sore throat")

	f.pacer.hook = func(ctx context.Context, index int) error {
		if index == 3 {
			if _, err := f.orchestrator.Store().RecordInterjection(id, "also a mild fever"); err != nil {
				t.Errorf("failed to record interjection: %v", err)
			}
		}
		return ctx.Err()
	}

	if err := f.run(t, context.Background(), id); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}
	if generator.synthesisTurn.Interjection != "also a mild fever" {
		t.Fatalf("expected final interjection in synthesis, got %q", generator.synthesisTurn.Interjection)
	}
}

func TestRunQuestionAnswerIsRecordedOnce(t *testing.T) {
	generator := &generatorStub{questions: map[conversations.RoleID]string{
		conversations.RoleGuidelines: "When did it start?",
	}}
	f := newFixture(generator)
	id := f.start(t, "back pain")

	f.emitter.onEmit = func(event events.Event) error {
		if event.Kind() == events.KindAgentQuestion {
			go func() {
				if _, err := f.orchestrator.Interject(context.Background(), id, "Since yesterday"); err != nil {
					t.Errorf("failed to answer: %v", err)
				}
			}()
		}
		return nil
	}

	if err := f.run(t, context.Background(), id); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	kinds := f.emitter.kinds()
	questionAt := slices.Index(kinds, events.KindAgentQuestion)
	responseAt := slices.Index(kinds, events.KindPatientResponse)
	if questionAt < 0 || responseAt < questionAt {
		t.Fatalf("expected patient response after the question, got %v", kinds)
	}
	if countKind(kinds, events.KindInterjection) != 0 {
		t.Fatalf("expected the answer not to be acknowledged as an interjection")
	}

	evidenceTurn := generator.turnFor(conversations.RoleEvidence)
	if evidenceTurn.Interjection != "" {
		t.Fatalf("expected the answer not to be folded in again, got %q", evidenceTurn.Interjection)
	}
	if !slices.ContainsFunc(evidenceTurn.Transcript, func(entry conversations.Entry) bool {
		return entry.IsHumanOrigin && entry.Text == "Since yesterday"
	}) {
		t.Fatalf("expected the answer in the transcript seen by the next specialist")
	}

	recorded := f.emitter.recorded()
	consensus := recorded[len(recorded)-2].(events.Consensus)
	if len(consensus.AgentMessages) != 4 {
		t.Fatalf("expected human entries to be left out of agent messages, got %d", len(consensus.AgentMessages))
	}
}

func TestRunUnansweredQuestionTimesOut(t *testing.T) {
	generator := &generatorStub{questions: map[conversations.RoleID]string{
		conversations.RoleCases: "Any allergies?",
	}}
	f := newFixture(generator, WithQuestionTimeout(20*time.Millisecond))

	id := f.start(t, "itchy eyes")
	if err := f.run(t, context.Background(), id); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	recorded := f.emitter.recorded()
	index := slices.IndexFunc(recorded, func(event events.Event) bool { return event.Kind() == events.KindAgentQuestion })
	if index < 0 {
		t.Fatalf("expected a question to be asked")
	}
	status, ok := recorded[index+1].(events.Status)
	if !ok || status.Phase != events.PhaseQuestion {
		t.Fatalf("expected question status after the timeout, got %+v", recorded[index+1])
	}
	if speaking, ok := recorded[index+2].(events.AgentSpeaking); !ok || speaking.AgentKey != conversations.RoleSafety {
		t.Fatalf("expected the safety specialist to speak next, got %+v", recorded[index+2])
	}
	if countKind(f.emitter.kinds(), events.KindPatientResponse) != 0 {
		t.Fatalf("expected no patient response")
	}
}

func TestRunSkippedQuestionContinues(t *testing.T) {
	generator := &generatorStub{questions: map[conversations.RoleID]string{
		conversations.RoleGuidelines: "How bad is the pain?",
	}}
	f := newFixture(generator, WithQuestionTimeout(time.Minute))
	id := f.start(t, "knee pain")

	f.emitter.onEmit = func(event events.Event) error {
		if event.Kind() == events.KindAgentQuestion {
			go func() {
				if _, err := f.orchestrator.SkipQuestion(id); err != nil {
					t.Errorf("failed to skip: %v", err)
				}
			}()
		}
		return nil
	}

	if err := f.run(t, context.Background(), id); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}
	if kinds := f.emitter.kinds(); kinds[len(kinds)-1] != events.KindComplete {
		t.Fatalf("expected the session to complete, got %v", kinds)
	}
}

func TestRunFinalSpecialistNeverAsks(t *testing.T) {
	generator := &generatorStub{questions: map[conversations.RoleID]string{
		conversations.RoleSafety: "Are you alone?",
	}}
	f := newFixture(generator, WithQuestionRoles(conversations.RoleSafety))

	id := f.start(t, "tired all day")
	if err := f.run(t, context.Background(), id); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}
	if len(generator.followUps) != 0 {
		t.Fatalf("expected no follow-up requests, got %v", generator.followUps)
	}
}

func TestInterjectIsAcknowledgedAndFoldedIntoNextTurn(t *testing.T) {
	generator := &generatorStub{}
	f := newFixture(generator)
	id := f.start(t, "ear ache")

	interjected := make(chan struct{})
	f.emitter.onEmit = func(event events.Event) error {
		if speaking, ok := event.(events.AgentSpeaking); ok && speaking.AgentKey == conversations.RoleGuidelines {
			go func() {
				defer close(interjected)
				if _, err := f.orchestrator.Interject(context.Background(), id, "  it started after swimming "); err != nil {
					t.Errorf("failed to interject: %v", err)
				}
			}()
		}
		return nil
	}
	f.pacer.hook = func(ctx context.Context, index int) error {
		if index == 0 {
			select {
			case <-interjected:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return ctx.Err()
	}

	if err := f.run(t, context.Background(), id); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	var ack *events.Interjection
	for _, event := range f.emitter.recorded() {
		if typed, ok := event.(events.Interjection); ok {
			ack = &typed
		}
	}
	if ack == nil || ack.Message != "it started after swimming" {
		t.Fatalf("expected trimmed interjection acknowledgement, got %+v", ack)
	}
	if got := generator.turnFor(conversations.RoleEvidence).Interjection; got != "it started after swimming" {
		t.Fatalf("expected interjection folded into the evidence turn, got %q", got)
	}
}

func TestInterjectUnknownSession(t *testing.T) {
	f := newFixture(&generatorStub{})

	if _, err := f.orchestrator.Interject(context.Background(), "missing", "hello"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := f.orchestrator.SkipQuestion("missing"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRunSynthesisFailureReportsConsensusError(t *testing.T) {
	f := newFixture(&generatorStub{synthesisErr: errors.New("model unavailable")})

	id := f.start(t, "nausea")
	if err := f.run(t, context.Background(), id); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	kinds := f.emitter.kinds()
	if countKind(kinds, events.KindConsensus) != 0 || countKind(kinds, events.KindConsensusError) != 1 {
		t.Fatalf("expected only a consensus error, got %v", kinds)
	}
	if kinds[len(kinds)-2] != events.KindConsensusError || kinds[len(kinds)-1] != events.KindComplete {
		t.Fatalf("expected consensus error then complete, got %v", kinds)
	}
}

func TestRunPanicEmitsErrorThenComplete(t *testing.T) {
	f := newFixture(&generatorStub{panicOnSynth: true})

	id := f.start(t, "chills")
	err := f.run(t, context.Background(), id)
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("expected panic to be reported, got %v", err)
	}

	kinds := f.emitter.kinds()
	if kinds[len(kinds)-2] != events.KindError || kinds[len(kinds)-1] != events.KindComplete {
		t.Fatalf("expected error then complete, got %v", kinds)
	}
	if f.orchestrator.Store().Len() != 0 {
		t.Fatalf("expected session state to be discarded")
	}
}

func TestRunEmitterFailureTearsDownSession(t *testing.T) {
	generator := &generatorStub{}
	f := newFixture(generator)
	f.emitter.onEmit = func(event events.Event) error {
		if event.Kind() == events.KindAgentSpeaking {
			return errors.New("observer went away")
		}
		return nil
	}

	id := f.start(t, "cough")
	err := f.run(t, context.Background(), id)
	if !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("expected ErrStreamClosed, got %v", err)
	}
	if generator.callCount() != 0 {
		t.Fatalf("expected no generation after the observer left, got %d calls", generator.callCount())
	}
	if kinds := f.emitter.kinds(); kinds[len(kinds)-1] != events.KindAgentSpeaking {
		t.Fatalf("expected nothing emitted after the failure, got %v", kinds)
	}
	if f.orchestrator.Store().Len() != 0 {
		t.Fatalf("expected session state to be discarded")
	}
}

func TestRunCancelledDuringPauseStopsGenerating(t *testing.T) {
	generator := &generatorStub{}
	f := newFixture(generator)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.pacer.hook = func(ctx context.Context, _ int) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}

	id := f.start(t, "wrist pain")
	err := f.run(t, ctx, id)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if generator.callCount() != 1 {
		t.Fatalf("expected a single generation call, got %d", generator.callCount())
	}
	if kinds := f.emitter.kinds(); slices.Contains(kinds, events.KindComplete) {
		t.Fatalf("expected no complete event after cancellation, got %v", kinds)
	}
}

func TestRunRejectsSecondDriver(t *testing.T) {
	f := newFixture(&generatorStub{})
	id := f.start(t, "cramps")

	state, err := f.orchestrator.Store().Get(id)
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if err := state.Claim(); err != nil {
		t.Fatalf("failed to claim session: %v", err)
	}

	if err := f.orchestrator.Run(context.Background(), id, f.emitter); !errors.Is(err, session.ErrSessionRunning) {
		t.Fatalf("expected ErrSessionRunning, got %v", err)
	}
}

func TestRunRequiresGenerator(t *testing.T) {
	o := NewOrchestrator()
	id, err := o.StartSession(conversations.NewCase("cough", "", ""))
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}

	if err := o.Run(context.Background(), id, EmitterFunc(func(context.Context, events.Event) error { return nil })); !errors.Is(err, ErrNoGenerator) {
		t.Fatalf("expected ErrNoGenerator, got %v", err)
	}
}

func TestRunWithPaddedIDDiscardsSession(t *testing.T) {
	f := newFixture(&generatorStub{})

	id := f.start(t, "sore throat")
	if err := f.run(t, context.Background(), " "+id+" "); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}
	if f.orchestrator.Store().Len() != 0 {
		t.Fatalf("expected the session to be discarded after the run")
	}
}

func TestRunUnknownSession(t *testing.T) {
	f := newFixture(&generatorStub{})

	if err := f.orchestrator.Run(context.Background(), "missing", f.emitter); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStartSessionRejectsBlankSymptoms(t *testing.T) {
	f := newFixture(&generatorStub{})

	if _, err := f.orchestrator.StartSession(conversations.NewCase("  ", "", "")); !errors.Is(err, conversations.ErrMissingSymptoms) {
		t.Fatalf("expected ErrMissingSymptoms, got %v", err)
	}
}
