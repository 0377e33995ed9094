package events

import "encoding/json"

const (
	// KindConnected identifies the first event of a stream.
	KindConnected Kind = "connected"
	// KindStatus identifies progress notices.
	KindStatus    Kind = "status"
	// KindEmergency identifies a red flag that ends the consultation.
	KindEmergency Kind = "emergency"
	// KindComplete identifies the normal end of a stream.
	KindComplete  Kind = "complete"
	// KindError identifies a failure of the consultation itself.
	KindError     Kind = "error"
)

// Phase tags a status event with the sequencer step that produced it.
type Phase string

const (
	PhaseInitialization Phase = "initialization"
	PhaseDebate         Phase = "debate"
	PhaseReadingPause   Phase = "reading_pause"
	PhaseQuestion       Phase = "question"
	PhasePreConsensus   Phase = "pre_consensus"
	PhaseConsensus      Phase = "consensus"
)

// Connected is the first event of every stream.
type Connected struct {
	Base
	SessionID string
}

// NewConnected creates the connected event for a session.
func NewConnected(sessionID string) Connected {
	return Connected{Base: NewBase(KindConnected), SessionID: sessionID}
}

func (e Connected) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      Kind   `json:"type"`
		SessionID string `json:"sessionId"`
	}{e.Kind(), e.SessionID})
}

// Status is a human readable progress notice.
type Status struct {
	Base
	Message string
	Phase   Phase
}

// NewStatus creates a status event for the given phase.
func NewStatus(phase Phase, message string) Status {
	return Status{Base: NewBase(KindStatus), Message: message, Phase: phase}
}

func (e Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    Kind   `json:"type"`
		Message string `json:"message"`
		Phase   Phase  `json:"phase,omitempty"`
	}{e.Kind(), e.Message, e.Phase})
}

// Emergency ends the stream before any specialist speaks.
type Emergency struct {
	Base
	Condition string
	Message   string
	Reasoning string
}

// NewEmergency creates an emergency event.
func NewEmergency(condition, message, reasoning string) Emergency {
	return Emergency{
		Base:      NewBase(KindEmergency),
		Condition: condition,
		Message:   message,
		Reasoning: reasoning,
	}
}

func (e Emergency) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      Kind   `json:"type"`
		Condition string `json:"condition"`
		Message   string `json:"message"`
		Reasoning string `json:"reasoning,omitempty"`
	}{e.Kind(), e.Condition, e.Message, e.Reasoning})
}

// Complete marks the end of a consultation that reached its synthesis.
type Complete struct{ Base }

// NewComplete creates a complete event.
func NewComplete() Complete {
	return Complete{Base: NewBase(KindComplete)}
}

func (e Complete) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type Kind `json:"type"`
	}{e.Kind()})
}

// StreamError reports a failure of the sequencer itself, as opposed to a
// single specialist or the synthesis failing.
type StreamError struct {
	Base
	Message string
}

// NewStreamError creates an error event.
func NewStreamError(message string) StreamError {
	return StreamError{Base: NewBase(KindError), Message: message}
}

func (e StreamError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    Kind   `json:"type"`
		Message string `json:"message"`
	}{e.Kind(), e.Message})
}
