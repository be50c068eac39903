package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/owlia-ai/owlia/internal/log"
	"github.com/owlia-ai/owlia/internal/session"
	"github.com/owlia-ai/owlia/internal/tutor"
)

// chatHandler serves multi-turn conversations. Each request carries a
// session ID; an empty ID starts a new session titled after the question.
type chatHandler struct {
	tutor    *tutor.Service
	sessions *session.Store
	logger   log.Logger
}

func newChatHandler(t *tutor.Service, sessions *session.Store, logger log.Logger) *chatHandler {
	return &chatHandler{tutor: t, sessions: sessions, logger: logger}
}

func (h *chatHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /chat", h.chat)
}

// ChatRequest is the request body for POST /chat.
type ChatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"sessionId,omitempty"`
}

func (h *chatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		// Checked before session creation so a blank question cannot
		// leave an empty orphan session behind.
		writeError(w, http.StatusBadRequest, "invalid question", tutor.ErrEmptyQuestion.Error())
		return
	}

	ctx := r.Context()

	var sessionID uuid.UUID
	if req.SessionID == "" {
		title := h.tutor.GenerateTitle(ctx, req.Question)
		sess, err := h.sessions.Create(ctx, title)
		if err != nil {
			h.logger.Error("creating session", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create session", "")
			return
		}
		sessionID = sess.ID
	} else {
		var err error
		sessionID, err = uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid session id", req.SessionID)
			return
		}
	}

	reply, err := h.tutor.Chat(ctx, sessionID, req.Question)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found", req.SessionID)
			return
		}
		writeTutorError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AnswerResponse{
		Text:      reply.Text,
		Emotion:   reply.Emotion,
		Sources:   reply.Sources,
		SessionID: sessionID.String(),
	})
}
