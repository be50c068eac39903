// Package api provides the HTTP REST API for Owlia.
//
// This is the surface the browser frontend talks to: ask a question, hold a
// tutoring conversation, turn speech into text and answers into speech, and
// manage the knowledge base and sessions.
//
// Endpoints:
//
//	GET  /                     API info and endpoint map
//	GET  /health               liveness probe with build/model info
//	GET  /ready                readiness probe (pings PostgreSQL)
//	POST /query                single-turn tutoring answer
//	POST /chat                 multi-turn answer within a session
//	POST /transcribe           speech-to-text (multipart audio upload)
//	POST /speak                text-to-speech (returns audio/wav)
//	POST /ingest               index a study document (multipart upload)
//	GET  /api/sessions         list sessions
//	POST /api/sessions         create a session
//	DELETE /api/sessions/{id}  delete a session and its messages
//
// File structure:
//   - server.go: server construction and route registration
//   - middleware.go: recovery, logging, CORS, rate limiting
//   - health.go: info and probe endpoints
//   - query.go / chat.go: tutoring endpoints
//   - speech.go: STT and TTS endpoints
//   - ingest.go: knowledge base upload endpoint
//   - session.go: session management endpoints
//   - response.go: JSON response helpers
package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/owlia-ai/owlia/internal/log"
	"github.com/owlia-ai/owlia/internal/rag"
	"github.com/owlia-ai/owlia/internal/session"
	"github.com/owlia-ai/owlia/internal/speech"
	"github.com/owlia-ai/owlia/internal/tutor"
)

// Info describes the running service. Returned by / and /health so the
// frontend can display what it is talking to.
type Info struct {
	Version   string `json:"version"`
	Provider  string `json:"provider"`
	ModelName string `json:"model"`
	STTModel  string `json:"sttModel,omitempty"`
	TTSModel  string `json:"ttsModel,omitempty"`
}

// ServerConfig carries the dependencies and settings for NewServer.
type ServerConfig struct {
	Logger       log.Logger
	Tutor        *tutor.Service
	Indexer      *rag.Indexer
	SessionStore *session.Store

	// Speech may be nil; the speech endpoints then answer 503.
	Speech *speech.Client

	// DBPool backs the readiness probe.
	DBPool *pgxpool.Pool

	Info Info

	CORSOrigins []string
	RateLimit   float64 // requests per second per client; 0 disables limiting
	RateBurst   int
}

// Server is the HTTP server for Owlia's REST API.
type Server struct {
	cfg ServerConfig
	mux *http.ServeMux
}

// NewServer creates a server with all routes registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Tutor == nil {
		return nil, errors.New("tutor service is required")
	}
	if cfg.Indexer == nil {
		return nil, errors.New("indexer is required")
	}
	if cfg.SessionStore == nil {
		return nil, errors.New("session store is required")
	}

	mux := http.NewServeMux()
	s := &Server{cfg: cfg, mux: mux}

	newHealthHandler(cfg.DBPool, cfg.Info, cfg.Logger).registerRoutes(mux)
	newQueryHandler(cfg.Tutor, cfg.Logger).registerRoutes(mux)
	newChatHandler(cfg.Tutor, cfg.SessionStore, cfg.Logger).registerRoutes(mux)
	newSpeechHandler(cfg.Speech, cfg.Logger).registerRoutes(mux)
	newIngestHandler(cfg.Indexer, cfg.Logger).registerRoutes(mux)
	newSessionHandler(cfg.SessionStore, cfg.Logger).registerRoutes(mux)

	return s, nil
}

// Handler returns the HTTP handler with middleware applied.
// Order: recovery → logging → CORS → rate limit → routes.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		recoveryMiddleware(s.cfg.Logger),
		loggingMiddleware(s.cfg.Logger),
	}
	if len(s.cfg.CORSOrigins) > 0 {
		middlewares = append(middlewares, corsMiddleware(s.cfg.CORSOrigins))
	}
	if s.cfg.RateLimit > 0 {
		middlewares = append(middlewares, rateLimitMiddleware(s.cfg.RateLimit, s.cfg.RateBurst))
	}
	return chain(s.mux, middlewares...)
}

// chain applies middleware in order: first middleware wraps outermost.
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
