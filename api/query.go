package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/owlia-ai/owlia/internal/emotion"
	"github.com/owlia-ai/owlia/internal/log"
	"github.com/owlia-ai/owlia/internal/tutor"
)

// queryHandler serves single-turn questions. No session, no history; the
// frontend uses this for the "ask anything" box.
type queryHandler struct {
	tutor  *tutor.Service
	logger log.Logger
}

func newQueryHandler(t *tutor.Service, logger log.Logger) *queryHandler {
	return &queryHandler{tutor: t, logger: logger}
}

func (h *queryHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /query", h.query)
}

// QueryRequest is the request body for POST /query.
type QueryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"topK,omitempty"`
}

// AnswerResponse is the tutor's answer, shared by /query and /chat.
type AnswerResponse struct {
	Text      string          `json:"text"`
	Emotion   emotion.Emotion `json:"emotion"`
	Sources   []string        `json:"sources,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

func (h *queryHandler) query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	reply, err := h.tutor.Answer(r.Context(), req.Question, req.TopK)
	if err != nil {
		writeTutorError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AnswerResponse{
		Text:    reply.Text,
		Emotion: reply.Emotion,
		Sources: reply.Sources,
	})
}

// writeTutorError maps tutor errors to HTTP status codes.
func writeTutorError(w http.ResponseWriter, logger log.Logger, err error) {
	switch {
	case errors.Is(err, tutor.ErrEmptyQuestion), errors.Is(err, tutor.ErrQuestionTooLong):
		writeError(w, http.StatusBadRequest, "invalid question", err.Error())
	case errors.Is(err, tutor.ErrCircuitOpen):
		writeError(w, http.StatusServiceUnavailable, "model unavailable", "the AI provider is failing, try again shortly")
	default:
		logger.Error("answering question", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to answer", "")
	}
}
