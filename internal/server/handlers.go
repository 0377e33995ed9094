package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/koscakluka/huddle-core/core/conversations"
	"github.com/koscakluka/huddle-core/core/emergency"
	"github.com/koscakluka/huddle-core/core/session"
)

const maxBodyBytes = 64 << 10

const (
	msgSymptomsRequired = "Symptoms are required"
	msgMessageRequired  = "Message is required"
	msgSessionNotFound  = "Session not found or already ended"
	msgSessionRunning   = "Session is already streaming"
	msgInvalidBody      = "Request body must be a JSON object"
	msgSessionCreated   = "Debate session created. Connect to SSE endpoint to receive updates."
	msgInterjection     = "Interjection received"
)

// flexibleString accepts a JSON string or number, e.g. a pain level sent as
// 7 or "7".
type flexibleString string

func (f *flexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*f = flexibleString(text)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = flexibleString(number.String())
	return nil
}

type startRequest struct {
	Symptoms  string         `json:"symptoms"`
	PainLevel flexibleString `json:"painLevel"`
	Duration  string         `json:"duration"`
}

type startResponse struct {
	SessionID   string `json:"sessionId"`
	Message     string `json:"message"`
	SSEEndpoint string `json:"sseEndpoint"`
	WSEndpoint  string `json:"wsEndpoint"`
}

type interjectRequest struct {
	Message string `json:"message"`
}

type interjectResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	AnsweredQuestion bool   `json:"answeredQuestion"`
}

type skipResponse struct {
	Success bool `json:"success"`
	Skipped bool `json:"skipped"`
}

type checkRequest struct {
	Symptoms string `json:"symptoms"`
}

type checkResponse struct {
	IsEmergency bool   `json:"isEmergency"`
	Condition   string `json:"condition,omitempty"`
	Message     string `json:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
		return
	}

	id, err := s.orchestrator.StartSession(conversations.NewCase(req.Symptoms, string(req.PainLevel), req.Duration))
	if errors.Is(err, conversations.ErrMissingSymptoms) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgSymptomsRequired})
		return
	} else if err != nil {
		logger.Error("failed to start session", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, startResponse{
		SessionID:   id,
		Message:     msgSessionCreated,
		SSEEndpoint: "/api/debate/" + id + "/stream",
		WSEndpoint:  "/api/debate/" + id + "/ws",
	})
}

func (s *Server) handleInterject(w http.ResponseWriter, r *http.Request) {
	var req interjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
		return
	}

	answered, err := s.orchestrator.Interject(r.Context(), r.PathValue("id"), req.Message)
	switch {
	case errors.Is(err, session.ErrEmptyInterjection):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgMessageRequired})
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionClosed):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: msgSessionNotFound})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, interjectResponse{Success: true, Message: msgInterjection, AnsweredQuestion: answered})
	}
}

func (s *Server) handleSkipQuestion(w http.ResponseWriter, r *http.Request) {
	skipped, err := s.orchestrator.SkipQuestion(r.PathValue("id"))
	if errors.Is(err, session.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: msgSessionNotFound})
		return
	} else if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, skipResponse{Success: true, Skipped: skipped})
}

func (s *Server) handleCheckEmergency(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
		return
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgSymptomsRequired})
		return
	}

	result := s.matcher.Match(req.Symptoms)
	if !result.IsEmergency {
		writeJSON(w, http.StatusOK, checkResponse{IsEmergency: false})
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{
		IsEmergency: true,
		Condition:   result.Condition,
		Message:     emergency.Message,
	})
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
