package orchestration

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/koscakluka/huddle-core/core/conversations"
	"github.com/koscakluka/huddle-core/core/emergency"
	"github.com/koscakluka/huddle-core/core/events"
	"github.com/koscakluka/huddle-core/core/session"
	"github.com/koscakluka/huddle-core/core/sources"
	"github.com/koscakluka/huddle-core/core/urgency"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	statusInitialization = "Analyzing your symptoms..."
	statusDebate         = "Starting team consultation..."
	statusReadingPause   = "Take a moment to read. The next specialist speaks shortly..."
	statusNoAnswer       = "No answer received, the team continues..."
	statusPreConsensus   = "Anything else the team should know? Share it now before the consensus."
	statusConsensus      = "Building team consensus..."
)

var errEmptyUtterance = errors.New("generator returned an empty utterance")

type phase int

const (
	phaseInit phase = iota
	phaseEmergencyCheck
	phaseRoleTurn
	phasePreSynthesisPause
	phaseSynthesis
	phaseDone
	phaseEmergencyTerminated
	phaseError
)

func (p phase) String() string {
	switch p {
	case phaseInit:
		return "init"
	case phaseEmergencyCheck:
		return "emergency check"
	case phaseRoleTurn:
		return "role turn"
	case phasePreSynthesisPause:
		return "pre-synthesis pause"
	case phaseSynthesis:
		return "synthesis"
	case phaseDone:
		return "done"
	case phaseEmergencyTerminated:
		return "emergency terminated"
	case phaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// sequencer is the state machine of a single session. Every suspension point
// (rate gate, pacing, question rendezvous) sits inside exactly one step.
type sequencer struct {
	o      *Orchestrator
	state  *session.State
	stream *sessionStream

	phase             phase
	roleIndex         int
	sources           map[conversations.RoleID][]conversations.Source
	finalInterjection string
	failure           error
}

func newSequencer(o *Orchestrator, state *session.State, stream *sessionStream) *sequencer {
	return &sequencer{o: o, state: state, stream: stream, phase: phaseInit}
}

func (s *sequencer) run(ctx context.Context) error {
	for {
		switch s.phase {
		case phaseDone:
			s.o.metrics.sessionEnded(ctx, "completed")
			return s.emit(ctx, events.NewComplete())
		case phaseEmergencyTerminated:
			s.o.metrics.sessionEnded(ctx, "emergency")
			return nil
		case phaseError:
			s.o.metrics.sessionEnded(ctx, "failed")
			return s.fail(ctx)
		}

		next, err := panicSafeNamedStep(s.phase.String(), s.step)(ctx)
		if err != nil {
			if isTeardown(ctx, err) {
				s.o.metrics.sessionEnded(ctx, "aborted")
				logger.Info("consultation torn down", "session", s.state.ID(), "phase", s.phase.String(), "error", err)
				return err
			}
			s.failure = err
			next = phaseError
		}
		s.phase = next
	}
}

func (s *sequencer) step(ctx context.Context) (phase, error) {
	switch s.phase {
	case phaseInit:
		return s.initialize(ctx)
	case phaseEmergencyCheck:
		return s.checkEmergency(ctx)
	case phaseRoleTurn:
		return s.roleTurn(ctx)
	case phasePreSynthesisPause:
		return s.preSynthesisPause(ctx)
	case phaseSynthesis:
		return s.synthesize(ctx)
	default:
		return phaseError, fmt.Errorf("no step for phase %s", s.phase)
	}
}

func (s *sequencer) emit(ctx context.Context, event events.Event) error {
	return s.stream.emit(ctx, event)
}

func (s *sequencer) fail(ctx context.Context) error {
	logger.Error("consultation failed", "session", s.state.ID(), "error", s.failure)

	if err := s.emit(ctx, events.NewStreamError(s.failure.Error())); err != nil {
		return errors.Join(s.failure, err)
	}
	if err := s.emit(ctx, events.NewComplete()); err != nil {
		return errors.Join(s.failure, err)
	}
	return s.failure
}

func (s *sequencer) initialize(ctx context.Context) (phase, error) {
	if err := s.emit(ctx, events.NewConnected(s.state.ID())); err != nil {
		return phaseError, err
	}
	if err := s.emit(ctx, events.NewStatus(events.PhaseInitialization, statusInitialization)); err != nil {
		return phaseError, err
	}

	if s.o.sources != nil {
		s.sources = s.o.sources.Lookup(s.state.Case().Symptoms)
	}
	return phaseEmergencyCheck, nil
}

func (s *sequencer) checkEmergency(ctx context.Context) (phase, error) {
	result := s.o.emergency.Check(ctx, s.state.Case().Symptoms)
	if err := ctx.Err(); err != nil {
		return phaseError, err
	}

	if result.IsEmergency {
		s.o.metrics.emergencyFound(ctx, result.Condition)
		event := events.NewEmergency(result.Condition, emergency.Message, result.Reasoning)
		if err := s.emit(ctx, event); err != nil {
			return phaseError, err
		}
		return phaseEmergencyTerminated, nil
	}

	if err := s.emit(ctx, events.NewStatus(events.PhaseDebate, statusDebate)); err != nil {
		return phaseError, err
	}
	if len(s.o.roles) == 0 {
		return phasePreSynthesisPause, nil
	}
	return phaseRoleTurn, nil
}

func (s *sequencer) roleTurn(ctx context.Context) (phase, error) {
	role := s.o.roles[s.roleIndex]
	isLast := s.roleIndex == len(s.o.roles)-1

	ctx, span := tracer.Start(ctx, "role turn", trace.WithAttributes(
		attribute.String("role", string(role.ID)),
		attribute.Int("turn", s.roleIndex),
	))
	defer span.End()

	interjection, _ := s.state.ConsumeNextInterjection()
	turn := conversations.TurnContext{
		Case:         s.state.Case(),
		Transcript:   s.state.Transcript(),
		Interjection: interjection,
	}

	if err := s.emit(ctx, events.NewAgentSpeaking(role)); err != nil {
		return phaseError, err
	}
	if err := s.speak(ctx, span, role, turn); err != nil {
		return phaseError, err
	}

	if !isLast {
		if err := s.emit(ctx, events.NewStatus(events.PhaseReadingPause, statusReadingPause)); err != nil {
			return phaseError, err
		}
		if err := s.o.pacer.Pause(ctx, s.o.timing.ReadingPause); err != nil {
			return phaseError, err
		}

		if s.o.asksQuestions(role.ID) {
			if err := s.askFollowUp(ctx, role); err != nil {
				return phaseError, err
			}
		}
	}

	s.roleIndex++
	if s.roleIndex >= len(s.o.roles) {
		return phasePreSynthesisPause, nil
	}
	return phaseRoleTurn, nil
}

// speak requests the statement of one specialist. A generation failure is
// reported as agent_error and is not a failure of the turn.
func (s *sequencer) speak(ctx context.Context, span trace.Span, role conversations.Role, turn conversations.TurnContext) error {
	started := time.Now()
	text, err := s.generate(ctx, func(ctx context.Context) (string, error) {
		return s.o.generator.GenerateRoleUtterance(ctx, role, turn)
	})
	s.o.metrics.turnTook(ctx, string(role.ID), time.Since(started).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("specialist failed to respond", "session", s.state.ID(), "role", role.ID, "error", err)
		s.o.metrics.turnFailed(ctx, "role_turn")
		return s.emit(ctx, events.NewAgentError(role))
	}

	entry := conversations.Entry{
		RoleID:  role.ID,
		Agent:   role.Name,
		Text:    text,
		Sources: slices.Clone(s.sources[role.ID]),
		At:      time.Now(),
	}
	if err := s.state.Append(entry); err != nil {
		return err
	}
	return s.emit(ctx, events.NewAgentMessage(entry))
}

// askFollowUp blocks on the question rendezvous when the role has something
// to ask. Only this role's continuation waits; interjections keep arriving.
func (s *sequencer) askFollowUp(ctx context.Context, role conversations.Role) error {
	turn := conversations.TurnContext{Case: s.state.Case(), Transcript: s.state.Transcript()}
	question, err := s.generate(ctx, func(ctx context.Context) (string, error) {
		return s.o.generator.GenerateFollowUpQuestion(ctx, role, turn)
	})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		if !errors.Is(err, errEmptyUtterance) {
			logger.Warn("follow-up question failed", "session", s.state.ID(), "role", role.ID, "error", err)
			s.o.metrics.turnFailed(ctx, "follow_up")
			return s.emit(ctx, events.NewStatus(events.PhaseQuestion, statusNoAnswer))
		}
		return nil
	}

	timeout := s.o.timing.QuestionTimeout
	answer, err := s.state.PostQuestion(role.ID, question, timeout)
	if err != nil {
		return fmt.Errorf("failed to post question: %w", err)
	}
	if err := s.emit(ctx, events.NewAgentQuestion(role, question, timeout)); err != nil {
		return err
	}

	text, answered, err := answer.Wait(ctx)
	if err != nil {
		return err
	}
	if !answered {
		return s.emit(ctx, events.NewStatus(events.PhaseQuestion, statusNoAnswer))
	}

	entry := conversations.Entry{
		Agent:         conversations.HumanSpeaker,
		Text:          text,
		IsHumanOrigin: true,
		At:            time.Now(),
	}
	if err := s.state.Append(entry); err != nil {
		return err
	}
	return s.emit(ctx, events.NewPatientResponse(text, entry.At))
}

func (s *sequencer) preSynthesisPause(ctx context.Context) (phase, error) {
	if err := s.emit(ctx, events.NewStatus(events.PhasePreConsensus, statusPreConsensus)); err != nil {
		return phaseError, err
	}
	if err := s.o.pacer.Pause(ctx, s.o.timing.PreSynthesisPause); err != nil {
		return phaseError, err
	}

	s.finalInterjection, _ = s.state.ConsumeNextInterjection()
	return phaseSynthesis, nil
}

func (s *sequencer) synthesize(ctx context.Context) (phase, error) {
	ctx, span := tracer.Start(ctx, "synthesize consensus")
	defer span.End()

	if err := s.emit(ctx, events.NewStatus(events.PhaseConsensus, statusConsensus)); err != nil {
		return phaseError, err
	}

	transcript := s.state.Transcript()
	turn := conversations.TurnContext{
		Case:         s.state.Case(),
		Transcript:   transcript,
		Interjection: s.finalInterjection,
	}
	text, err := s.generate(ctx, func(ctx context.Context) (string, error) {
		return s.o.generator.GenerateSynthesis(ctx, turn)
	})
	if err != nil {
		if ctx.Err() != nil {
			return phaseError, err
		}
		return phaseDone, s.reportConsensusError(ctx, span, err)
	}

	verdict := urgency.Classify(text)
	span.SetAttributes(attribute.String("urgency", string(verdict.Level)))

	consensus, err := events.NewConsensus(text, verdict, s.consensusSources(), transcript)
	if err != nil {
		return phaseDone, s.reportConsensusError(ctx, span, err)
	}
	if err := s.emit(ctx, consensus); err != nil {
		return phaseError, err
	}
	return phaseDone, nil
}

func (s *sequencer) reportConsensusError(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.Warn("consensus failed", "session", s.state.ID(), "error", err)
	s.o.metrics.turnFailed(ctx, "synthesis")
	return s.emit(ctx, events.NewConsensusError())
}

// consensusSources flattens the sources looked up for every specialist, in
// speaking order without duplicates. A failed turn keeps its sources.
func (s *sequencer) consensusSources() []conversations.Source {
	return sources.Union(s.sources, conversations.RoleIDs(s.o.roles))
}

// generate passes the rate gate before every collaborator call.
func (s *sequencer) generate(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	if err := s.o.rateGate.Acquire(ctx); err != nil {
		return "", err
	}

	text, err := call(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errEmptyUtterance
	}
	return strings.TrimSpace(text), nil
}
