package events

import (
	"encoding/json"
	"time"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/huddle-core/core/conversations"
	"github.com/koscakluka/huddle-core/core/urgency"
)

const (
	// KindConsensus identifies the team synthesis.
	KindConsensus      Kind = "consensus"
	// KindConsensusError identifies a synthesis that could not be generated.
	KindConsensusError Kind = "consensus_error"
)

// ConsensusErrorMessage is reported when the synthesis could not be
// generated.
const ConsensusErrorMessage = "Unable to generate final consensus. Please consult a healthcare provider."

// AgentTurn is a specialist statement as carried in the consensus payload.
type AgentTurn struct {
	RoleID  conversations.RoleID   `json:"agentKey"`
	Agent   string                 `json:"agent"`
	Text    string                 `json:"text"`
	Sources []conversations.Source `json:"sources"`
	At      time.Time              `json:"timestamp"`
}

// Consensus carries the synthesis, its urgency verdict and the statements it
// was built from.
type Consensus struct {
	Base
	Text          string
	Urgency       urgency.Verdict
	Sources       []conversations.Source
	AgentMessages []AgentTurn
}

// NewConsensus builds the consensus payload. Human-origin entries are left
// out of the agent messages.
func NewConsensus(text string, verdict urgency.Verdict, sources []conversations.Source, transcript []conversations.Entry) (Consensus, error) {
	turns := []AgentTurn{}
	if err := copier.Copy(&turns, conversations.AgentEntries(transcript)); err != nil {
		return Consensus{}, err
	}

	return Consensus{
		Base:          NewBase(KindConsensus),
		Text:          text,
		Urgency:       verdict,
		Sources:       sources,
		AgentMessages: turns,
	}, nil
}

func (e Consensus) MarshalJSON() ([]byte, error) {
	turns := make([]AgentTurn, len(e.AgentMessages))
	for i, turn := range e.AgentMessages {
		turn.Sources = nonNilSources(turn.Sources)
		turns[i] = turn
	}

	return json.Marshal(struct {
		Type          Kind                   `json:"type"`
		Text          string                 `json:"text"`
		Urgency       urgency.Verdict        `json:"urgency"`
		Sources       []conversations.Source `json:"sources"`
		AgentMessages []AgentTurn            `json:"agentMessages"`
	}{e.Kind(), e.Text, e.Urgency, nonNilSources(e.Sources), turns})
}

// ConsensusError replaces the consensus when the synthesis failed.
type ConsensusError struct {
	Base
	Reason string
}

// NewConsensusError creates a consensus error event.
func NewConsensusError() ConsensusError {
	return ConsensusError{Base: NewBase(KindConsensusError), Reason: ConsensusErrorMessage}
}

func (e ConsensusError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  Kind   `json:"type"`
		Error string `json:"error"`
	}{e.Kind(), e.Reason})
}
