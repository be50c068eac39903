package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/owlia-ai/owlia/internal/app"
	"github.com/owlia-ai/owlia/internal/config"
)

// runIngest indexes a study document (or a directory of documents) into the
// knowledge store, then exits. Useful for building the knowledge base before
// starting the server.
func runIngest(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: owlia ingest <file-or-directory>")
	}
	path := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	stats, err := a.Indexer.IndexPath(ctx, path)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}

	fmt.Printf("Indexed %d document(s), %d chunk(s) saved, %d skipped\n",
		stats.Documents, stats.ChunksSaved, stats.ChunksSkipped)
	return nil
}
