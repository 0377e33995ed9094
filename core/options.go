package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/huddle-core/core/conversations"
	"github.com/koscakluka/huddle-core/core/emergency"
	"github.com/koscakluka/huddle-core/core/session"
)

type OrchestratorOption func(*Orchestrator)

// Generator produces the text of a consultation. Implementations are
// expected to be slow and fallible.
type Generator interface {
	GenerateRoleUtterance(ctx context.Context, role conversations.Role, turn conversations.TurnContext) (string, error)
	// GenerateFollowUpQuestion returns an empty string when the role has
	// nothing to ask.
	GenerateFollowUpQuestion(ctx context.Context, role conversations.Role, turn conversations.TurnContext) (string, error)
	GenerateSynthesis(ctx context.Context, turn conversations.TurnContext) (string, error)
}

// EmergencyChecker screens the raw case text. It never fails; a failed
// check reports no emergency.
type EmergencyChecker interface {
	Check(ctx context.Context, caseText string) emergency.Result
}

// RateGate spaces out generation calls across every session of the process.
type RateGate interface {
	Acquire(ctx context.Context) error
}

type SourceLookup interface {
	Lookup(caseText string) map[conversations.RoleID][]conversations.Source
}

func WithGenerator(generator Generator) OrchestratorOption {
	return func(o *Orchestrator) { o.generator = generator }
}

func WithEmergencyChecker(checker EmergencyChecker) OrchestratorOption {
	return func(o *Orchestrator) { o.emergency = checker }
}

func WithRateGate(gate RateGate) OrchestratorOption {
	return func(o *Orchestrator) { o.rateGate = gate }
}

func WithPacer(pacer Pacer) OrchestratorOption {
	return func(o *Orchestrator) { o.pacer = pacer }
}

func WithSourceLookup(lookup SourceLookup) OrchestratorOption {
	return func(o *Orchestrator) { o.sources = lookup }
}

// WithRoles replaces the specialist order. An empty list is ignored.
func WithRoles(roles ...conversations.Role) OrchestratorOption {
	return func(o *Orchestrator) {
		if len(roles) > 0 {
			o.roles = roles
		}
	}
}

// WithQuestionRoles sets which specialists may ask the participant a
// follow-up question. The final specialist never asks.
func WithQuestionRoles(ids ...conversations.RoleID) OrchestratorOption {
	return func(o *Orchestrator) {
		o.questionRoles = make(map[conversations.RoleID]bool, len(ids))
		for _, id := range ids {
			o.questionRoles[id] = true
		}
	}
}

func WithTiming(timing Timing) OrchestratorOption {
	return func(o *Orchestrator) { o.timing = timing }
}

func WithReadingPause(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.timing.ReadingPause = d }
}

func WithPreSynthesisPause(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.timing.PreSynthesisPause = d }
}

func WithQuestionTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.timing.QuestionTimeout = d }
}

func WithStore(store *session.Store) OrchestratorOption {
	return func(o *Orchestrator) {
		if store != nil {
			o.store = store
		}
	}
}
