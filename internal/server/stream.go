package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/huddle-core/core"
	"github.com/koscakluka/huddle-core/core/events"
	"github.com/koscakluka/huddle-core/core/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const wsWriteTimeout = 10 * time.Second

var errStreamingUnsupported = errors.New("response writer does not support streaming")

func (s *Server) encode(event events.Event) ([]byte, error) {
	data, err := events.Marshal(event)
	if err != nil {
		return nil, err
	}
	if s.strictEvents {
		if err := events.ValidateJSON(data); err != nil {
			return nil, fmt.Errorf("%s event violates the event schema: %w", event.Kind(), err)
		}
	}
	return data, nil
}

// sseEmitter writes every event as one `data:` frame. The stream headers go
// out with the first event, so a session that can not be claimed still gets
// a plain JSON error.
type sseEmitter struct {
	server  *Server
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (e *sseEmitter) start() {
	if e.started {
		return
	}
	e.started = true
	e.w.Header().Set("Content-Type", "text/event-stream")
	e.w.Header().Set("Cache-Control", "no-cache")
	e.w.Header().Set("Connection", "keep-alive")
	e.w.WriteHeader(http.StatusOK)
}

func (e *sseEmitter) Emit(_ context.Context, event events.Event) error {
	data, err := e.server.encode(event)
	if err != nil {
		return err
	}
	e.start()
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

// lookupSession rejects requests for sessions that can not be streamed
// before any stream headers are written.
func (s *Server) lookupSession(w http.ResponseWriter, id string) bool {
	state, err := s.orchestrator.Store().Get(id)
	if errors.Is(err, session.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: msgSessionNotFound})
		return false
	} else if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return false
	}
	if state.IsRunning() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: msgSessionRunning})
		return false
	}
	return true
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.lookupSession(w, id) {
		return
	}
	s.serveSSE(w, r, id)
}

func (s *Server) serveSSE(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errStreamingUnsupported.Error()})
		return
	}

	emitter := &sseEmitter{server: s, w: w, flusher: flusher}
	err := s.run(r.Context(), id, "sse", emitter)
	if emitter.started {
		return
	}
	switch {
	case errors.Is(err, session.ErrSessionRunning):
		writeJSON(w, http.StatusConflict, errorResponse{Error: msgSessionRunning})
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionClosed):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: msgSessionNotFound})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// wsEmitter writes every event as one text frame.
type wsEmitter struct {
	server *Server
	conn   *websocket.Conn
}

func (e *wsEmitter) Emit(_ context.Context, event events.Event) error {
	data, err := e.server.encode(event)
	if err != nil {
		return err
	}
	if err := e.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return e.conn.WriteMessage(websocket.TextMessage, data)
}

// inboundFrame is a control message sent by the participant over the
// websocket.
type inboundFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

const (
	frameInterject    = "interject"
	frameSkipQuestion = "skip_question"
)

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.lookupSession(w, id) {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "session", id, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.readFrames(ctx, cancel, id, conn)

	code, reason := websocket.CloseNormalClosure, "complete"
	if err := s.run(ctx, id, "websocket", &wsEmitter{server: s, conn: conn}); errors.Is(err, session.ErrSessionRunning) {
		code, reason = websocket.ClosePolicyViolation, msgSessionRunning
	}

	closing := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, closing, time.Now().Add(time.Second))
}

// readFrames applies participant frames until the connection drops, which
// also ends the session.
func (s *Server) readFrames(ctx context.Context, cancel context.CancelFunc, id string, conn *websocket.Conn) {
	defer cancel()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				logger.Info("websocket read ended", "session", id, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			logger.Warn("ignoring malformed websocket frame", "session", id, "error", err)
			continue
		}

		switch frame.Type {
		case frameInterject:
			if _, err := s.orchestrator.Interject(ctx, id, frame.Message); err != nil {
				logger.Warn("interjection rejected", "session", id, "error", err)
			}
		case frameSkipQuestion:
			if _, err := s.orchestrator.SkipQuestion(id); err != nil {
				logger.Warn("skip rejected", "session", id, "error", err)
			}
		default:
			logger.Warn("ignoring unknown websocket frame", "session", id, "type", frame.Type)
		}
	}
}

func (s *Server) run(ctx context.Context, id, transport string, emitter orchestration.Emitter) error {
	ctx, span := tracer.Start(ctx, "stream consultation", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("transport", transport),
	))
	defer span.End()

	err := s.orchestrator.Run(ctx, id, emitter)
	switch {
	case err == nil:
	case errors.Is(err, orchestration.ErrStreamClosed), errors.Is(err, context.Canceled):
		logger.Info("observer left before the consultation ended", "session", id, "transport", transport)
	case errors.Is(err, session.ErrSessionRunning):
		logger.Warn("session already has a stream", "session", id, "transport", transport)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("consultation ended with an error", "session", id, "transport", transport, "error", err)
	}
	return err
}
