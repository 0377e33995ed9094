package orchestration

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/koscakluka/huddle-core/core/conversations"
	"github.com/koscakluka/huddle-core/core/emergency"
	"github.com/koscakluka/huddle-core/core/events"
	"github.com/koscakluka/huddle-core/core/ratelimit"
	"github.com/koscakluka/huddle-core/core/session"
	"github.com/koscakluka/huddle-core/core/sources"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrNoGenerator = errors.New("no generator configured")

// Orchestrator runs consultations. One orchestrator serves any number of
// sessions; each session is driven by exactly one Run call.
type Orchestrator struct {
	generator     Generator
	emergency     EmergencyChecker
	rateGate      RateGate
	pacer         Pacer
	sources       SourceLookup
	roles         []conversations.Role
	questionRoles map[conversations.RoleID]bool
	timing        Timing
	store         *session.Store
	metrics       metrics

	mu      sync.Mutex
	streams map[string]*sessionStream
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		pacer:   TimerPacer(),
		sources: sources.Default(),
		roles:   conversations.DefaultRoles(),
		questionRoles: map[conversations.RoleID]bool{
			conversations.RoleGuidelines: true,
			conversations.RoleCases:      true,
		},
		timing:  DefaultTiming(),
		streams: map[string]*sessionStream{},
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.store == nil {
		o.store = session.NewStore()
	}
	if o.rateGate == nil {
		o.rateGate = ratelimit.NewGate()
	}
	if o.emergency == nil {
		o.emergency = emergency.NewGate(emergency.NewPatternClassifier(), emergency.WithLimiter(o.rateGate))
	}
	if o.pacer == nil {
		o.pacer = TimerPacer()
	}
	o.metrics = newMetrics()

	return o
}

func (o *Orchestrator) Store() *session.Store { return o.store }

// Roles returns the specialists in speaking order.
func (o *Orchestrator) Roles() []conversations.Role { return slices.Clone(o.roles) }

func (o *Orchestrator) Timing() Timing { return o.timing }

// StartSession registers a new consultation. Nothing happens until Run is
// called with the returned id.
func (o *Orchestrator) StartSession(caseInput conversations.Case) (string, error) {
	state, err := o.store.Create(caseInput)
	if err != nil {
		return "", err
	}
	return state.ID(), nil
}

// Run drives the session to its end and blocks until then, delivering every
// event to emitter. The session is discarded when Run returns.
//
// A failing emitter or a cancelled ctx tears the session down without
// further generation calls and the cause is returned.
func (o *Orchestrator) Run(ctx context.Context, sessionID string, emitter Emitter) error {
	if o.generator == nil {
		return ErrNoGenerator
	}

	state, err := o.store.Get(sessionID)
	if err != nil {
		return err
	}
	if err := state.Claim(); err != nil {
		return err
	}
	sessionID = state.ID()

	stream := newSessionStream(emitter)
	o.attach(sessionID, stream)
	defer func() {
		o.detach(sessionID)
		stream.close()
		o.store.Delete(sessionID)
	}()

	ctx, span := tracer.Start(ctx, "run consultation",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	if err := newSequencer(o, state, stream).run(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Interject routes participant text to the session. Text answering a pending
// question is reported by the returned flag; any other text is queued for
// the next turn and acknowledged on the session's stream.
func (o *Orchestrator) Interject(ctx context.Context, sessionID, text string) (bool, error) {
	answered, err := o.store.RecordInterjection(sessionID, text)
	if err != nil || answered {
		return answered, err
	}

	if stream := o.stream(sessionID); stream != nil {
		ack := events.NewInterjection(strings.TrimSpace(text), time.Now())
		if err := stream.emit(ctx, ack); err != nil {
			logger.Warn("failed to acknowledge interjection", "session", sessionID, "error", err)
		}
	}
	return false, nil
}

// SkipQuestion resolves the pending question of the session without an
// answer. It reports whether a question was pending.
func (o *Orchestrator) SkipQuestion(sessionID string) (bool, error) {
	return o.store.SkipQuestion(sessionID)
}

func (o *Orchestrator) attach(sessionID string, stream *sessionStream) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streams[sessionID] = stream
}

func (o *Orchestrator) detach(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.streams, sessionID)
}

func (o *Orchestrator) stream(sessionID string) *sessionStream {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.streams[strings.TrimSpace(sessionID)]
}

func (o *Orchestrator) asksQuestions(role conversations.RoleID) bool {
	return o.questionRoles[role]
}
