package intake

import (
	"context"
	"errors"
	"io"
	"net/http"

	"golang.org/x/net/websocket"
)

// Frame types exchanged over the intake websocket.
const (
	FrameStart   = "start"
	FrameMessage = "message"
	FrameEnd     = "end"
	FramePing    = "ping"

	FrameSession = "session"
	FrameReply   = "reply"
	FrameReport  = "report"
	FrameError   = "error"
	FramePong    = "pong"
)

// InboundFrame is what the chat client sends.
type InboundFrame struct {
	Type          string        `json:"type"`
	MedicalCardID string        `json:"medicalCardId,omitempty"`
	SessionID     string        `json:"sessionId,omitempty"`
	Text          string        `json:"text,omitempty"`
	Image         *ImagePayload `json:"image,omitempty"`
	Force         bool          `json:"force,omitempty"`
}

// OutboundFrame is what the server pushes back.
type OutboundFrame struct {
	Type      string           `json:"type"`
	SessionID string           `json:"sessionId,omitempty"`
	Text      string           `json:"text,omitempty"`
	Message   *MessageResponse `json:"message,omitempty"`
	Report    *FinalizeResult  `json:"report,omitempty"`
	Error     string           `json:"error,omitempty"`
	Retryable bool             `json:"retryable,omitempty"`
}

// HandleWebSocket serves GET /intake/ws. One connection drives one session
// at a time; frames are processed in order, which serializes turns.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(r.Context(), conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(ctx context.Context, conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	for {
		var in InboundFrame
		if err := websocket.JSON.Receive(conn, &in); err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.Debug("intake websocket closed", "error", err)
			}
			return
		}
		if in.SessionID != "" {
			sessionID = in.SessionID
		}

		out := h.handleFrame(ctx, r, sessionID, in)
		if out.Type == FrameSession {
			sessionID = out.SessionID
		}
		if err := websocket.JSON.Send(conn, out); err != nil {
			h.logger.Warn("intake websocket send failed", "session_id", sessionID, "error", err)
			return
		}
	}
}

func (h *Handler) handleFrame(ctx context.Context, r *http.Request, sessionID string, in InboundFrame) OutboundFrame {
	switch in.Type {
	case FramePing:
		return OutboundFrame{Type: FramePong}

	case FrameStart:
		res, err := h.orch.StartIntake(ctx, in.MedicalCardID)
		if err != nil {
			return errorFrame(sessionID, err)
		}
		if res.Degraded {
			return OutboundFrame{Type: FrameError, Error: res.Greeting, Retryable: true}
		}
		return OutboundFrame{Type: FrameSession, SessionID: res.Session.ID, Text: res.Greeting}

	case FrameMessage:
		if sessionID == "" {
			return OutboundFrame{Type: FrameError, Error: "Start a session first."}
		}
		release, ok := h.acquire(sessionID)
		if !ok {
			return OutboundFrame{Type: FrameError, SessionID: sessionID, Error: "A message for this session is already being processed.", Retryable: true}
		}
		defer release()
		resp, err := h.submit(r.WithContext(ctx), sessionID, messageRequest{Text: in.Text, Image: in.Image})
		if err != nil {
			return errorFrame(sessionID, err)
		}
		return OutboundFrame{Type: FrameReply, SessionID: sessionID, Text: resp.Reply, Message: resp}

	case FrameEnd:
		if sessionID == "" {
			return OutboundFrame{Type: FrameError, Error: "Start a session first."}
		}
		release, ok := h.acquire(sessionID)
		if !ok {
			return OutboundFrame{Type: FrameError, SessionID: sessionID, Error: "A message for this session is already being processed.", Retryable: true}
		}
		defer release()
		res, err := h.orch.EndAssessment(ctx, sessionID, in.Force)
		if err != nil {
			return errorFrame(sessionID, err)
		}
		return OutboundFrame{Type: FrameReport, SessionID: sessionID, Report: res}
	}
	return OutboundFrame{Type: FrameError, SessionID: sessionID, Error: "unknown frame type"}
}

func errorFrame(sessionID string, err error) OutboundFrame {
	return OutboundFrame{Type: FrameError, SessionID: sessionID, Error: UserMessage(err), Retryable: Retryable(err)}
}
