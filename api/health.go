package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/owlia-ai/owlia/internal/log"
)

// healthHandler serves the info and probe endpoints.
type healthHandler struct {
	pool   *pgxpool.Pool
	info   Info
	logger log.Logger
}

func newHealthHandler(pool *pgxpool.Pool, info Info, logger log.Logger) *healthHandler {
	return &healthHandler{pool: pool, info: info, logger: logger}
}

func (h *healthHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.root)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /ready", h.readiness)
}

// root describes the API for anyone poking at the base URL.
func (h *healthHandler) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "owlia",
		"version": h.info.Version,
		"endpoints": map[string]string{
			"query":      "POST /query",
			"chat":       "POST /chat",
			"transcribe": "POST /transcribe",
			"speak":      "POST /speak",
			"ingest":     "POST /ingest",
			"sessions":   "GET/POST /api/sessions",
			"health":     "GET /health",
		},
	})
}

// health is a liveness probe. Returns 200 with service identity as long as
// the process is up; no dependency checks.
func (h *healthHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  h.info.Version,
		"provider": h.info.Provider,
		"model":    h.info.ModelName,
		"sttModel": h.info.STTModel,
		"ttsModel": h.info.TTSModel,
	})
}

// readiness checks the database before reporting ready.
func (h *healthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		writeError(w, http.StatusServiceUnavailable, "not ready", "database pool not configured")
		return
	}
	if err := h.pool.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "not ready", "database not reachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
