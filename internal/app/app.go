// Package app wires the application together: configuration, Genkit,
// the database pool, and the services built on top of them.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/owlia-ai/owlia/internal/config"
	"github.com/owlia-ai/owlia/internal/knowledge"
	"github.com/owlia-ai/owlia/internal/rag"
	"github.com/owlia-ai/owlia/internal/session"
	"github.com/owlia-ai/owlia/internal/speech"
	"github.com/owlia-ai/owlia/internal/tutor"
)

// App is the application container. Setup populates it; Close releases it.
type App struct {
	Config *config.Config

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Knowledge *knowledge.Store
	Sessions  *session.Store
	Tutor     *tutor.Service
	Indexer   *rag.Indexer

	// Speech is nil when no speech credentials are configured; the API
	// reports speech endpoints as unavailable in that case.
	Speech *speech.Client

	logger       *slog.Logger
	traceFlush   func(context.Context) error
	shutdownOnce bool
}

// Close gracefully shuts down all resources. Safe to call on a partially
// initialized App (Setup calls it on its own error path).
func (a *App) Close() error {
	if a.shutdownOnce {
		return nil
	}
	a.shutdownOnce = true

	logger := a.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("shutting down application")

	if a.traceFlush != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.traceFlush(ctx); err != nil {
			logger.Warn("flushing traces", "error", err)
		}
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		logger.Debug("database pool closed")
	}

	return nil
}
