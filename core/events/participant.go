package events

import (
	"encoding/json"
	"time"
)

const (
	// KindPatientResponse identifies an answer to a follow-up question.
	KindPatientResponse Kind = "patient_response"
	// KindInterjection identifies queued participant input.
	KindInterjection    Kind = "interjection"
)

// PatientResponse echoes an answer to a specialist's follow-up question.
type PatientResponse struct {
	Base
	Message string
}

// NewPatientResponse creates a patient response event.
func NewPatientResponse(message string, at time.Time) PatientResponse {
	return PatientResponse{Base: NewBaseAt(KindPatientResponse, at), Message: message}
}

func (e PatientResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      Kind      `json:"type"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}{e.Kind(), e.Message, e.Timestamp()})
}

// Interjection acknowledges free-form input that will be folded into the
// next specialist turn.
type Interjection struct {
	Base
	Message string
}

// NewInterjection creates an interjection acknowledgement.
func NewInterjection(message string, at time.Time) Interjection {
	return Interjection{Base: NewBaseAt(KindInterjection, at), Message: message}
}

func (e Interjection) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      Kind      `json:"type"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}{e.Kind(), e.Message, e.Timestamp()})
}
