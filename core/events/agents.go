package events

import (
	"encoding/json"
	"time"

	"github.com/koscakluka/huddle-core/core/conversations"
)

const (
	// KindAgentSpeaking identifies a specialist starting its turn.
	KindAgentSpeaking Kind = "agent_speaking"
	// KindAgentMessage identifies a specialist statement.
	KindAgentMessage  Kind = "agent_message"
	// KindAgentQuestion identifies a follow-up question to the participant.
	KindAgentQuestion Kind = "agent_question"
	// KindAgentError identifies a specialist that failed to respond.
	KindAgentError    Kind = "agent_error"
)

// SpeakingStatusThinking is the only status a specialist reports before its
// statement arrives.
const SpeakingStatusThinking = "thinking"

// AgentSpeaking reports that a specialist is preparing its statement.
type AgentSpeaking struct {
	Base
	Agent    string
	AgentKey conversations.RoleID
	Status   string
}

// NewAgentSpeaking creates an agent speaking event for the role.
func NewAgentSpeaking(role conversations.Role) AgentSpeaking {
	return AgentSpeaking{
		Base:     NewBase(KindAgentSpeaking),
		Agent:    role.Name,
		AgentKey: role.ID,
		Status:   SpeakingStatusThinking,
	}
}

func (e AgentSpeaking) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     Kind                 `json:"type"`
		Agent    string               `json:"agent"`
		AgentKey conversations.RoleID `json:"agentKey"`
		Status   string               `json:"status"`
	}{e.Kind(), e.Agent, e.AgentKey, e.Status})
}

// AgentMessage reports a specialist statement that was appended to the
// transcript.
type AgentMessage struct {
	Base
	Agent    string
	AgentKey conversations.RoleID
	Text     string
	Sources  []conversations.Source
}

// NewAgentMessage creates an agent message event from a transcript entry.
func NewAgentMessage(entry conversations.Entry) AgentMessage {
	return AgentMessage{
		Base:     NewBaseAt(KindAgentMessage, entry.At),
		Agent:    entry.Agent,
		AgentKey: entry.RoleID,
		Text:     entry.Text,
		Sources:  entry.Sources,
	}
}

func (e AgentMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      Kind                   `json:"type"`
		Agent     string                 `json:"agent"`
		AgentKey  conversations.RoleID   `json:"agentKey"`
		Text      string                 `json:"text"`
		Sources   []conversations.Source `json:"sources"`
		Timestamp time.Time              `json:"timestamp"`
	}{e.Kind(), e.Agent, e.AgentKey, e.Text, nonNilSources(e.Sources), e.Timestamp()})
}

// AgentQuestion asks the participant a follow-up question and waits for the
// answer until the timeout passes.
type AgentQuestion struct {
	Base
	Agent          string
	AgentKey       conversations.RoleID
	Question       string
	TimeoutSeconds int
}

// NewAgentQuestion creates an agent question event. The timeout is reported
// in whole seconds.
func NewAgentQuestion(role conversations.Role, question string, timeout time.Duration) AgentQuestion {
	return AgentQuestion{
		Base:           NewBase(KindAgentQuestion),
		Agent:          role.Name,
		AgentKey:       role.ID,
		Question:       question,
		TimeoutSeconds: int(timeout.Round(time.Second) / time.Second),
	}
}

func (e AgentQuestion) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type           Kind                 `json:"type"`
		Agent          string               `json:"agent"`
		AgentKey       conversations.RoleID `json:"agentKey"`
		Question       string               `json:"question"`
		TimeoutSeconds int                  `json:"timeoutSeconds"`
	}{e.Kind(), e.Agent, e.AgentKey, e.Question, e.TimeoutSeconds})
}

// AgentErrorMessage is shown in place of a statement that failed to
// generate.
const AgentErrorMessage = "Had trouble responding, but the team continues..."

// AgentError stands in for a statement that failed to generate.
type AgentError struct {
	Base
	Agent    string
	AgentKey conversations.RoleID
	Reason   string
}

// NewAgentError creates an agent error event for the role.
func NewAgentError(role conversations.Role) AgentError {
	return AgentError{
		Base:     NewBase(KindAgentError),
		Agent:    role.Name,
		AgentKey: role.ID,
		Reason:   AgentErrorMessage,
	}
}

func (e AgentError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     Kind                 `json:"type"`
		Agent    string               `json:"agent"`
		AgentKey conversations.RoleID `json:"agentKey"`
		Error    string               `json:"error"`
	}{e.Kind(), e.Agent, e.AgentKey, e.Reason})
}

func nonNilSources(sources []conversations.Source) []conversations.Source {
	if sources == nil {
		return []conversations.Source{}
	}
	return sources
}
