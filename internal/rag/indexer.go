// Package rag builds the retrieval side of the tutor: chunking and indexing
// study documents, and assembling the prompt from retrieved material.
package rag

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/owlia-ai/owlia/internal/knowledge"
)

// Indexable file extensions. Binary formats are rejected rather than
// producing garbage chunks.
var indexableExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// maxDocumentBytes bounds a single document read. Chunking is in-memory.
const maxDocumentBytes = 10 << 20 // 10 MiB

// Stats reports the outcome of an indexing run.
type Stats struct {
	Documents     int // files indexed
	ChunksSaved   int
	ChunksSkipped int // empty or unembeddable chunks
}

// IndexerConfig configures an Indexer.
type IndexerConfig struct {
	ChunkSize    int // words per chunk; 0 means the package default
	ChunkOverlap int // words of overlap; negative means 0
	Logger       *slog.Logger
}

// Indexer chunks documents and writes them to the knowledge store.
type Indexer struct {
	store        *knowledge.Store
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// NewIndexer creates an Indexer on top of the knowledge store.
func NewIndexer(store *knowledge.Store, cfg IndexerConfig) *Indexer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = knowledge.DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = knowledge.DefaultChunkOverlap
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Indexer{
		store:        store,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		logger:       cfg.Logger,
	}
}

// IndexPath indexes a file, or every indexable file under a directory.
func (ix *Indexer) IndexPath(ctx context.Context, path string) (Stats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Stats{}, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return ix.indexFile(ctx, path)
	}

	var total Stats
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			// Hidden directories (.git, .cache) are never study material.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !indexableExtensions[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		stats, err := ix.indexFile(ctx, p)
		if err != nil {
			return err
		}
		total.Documents += stats.Documents
		total.ChunksSaved += stats.ChunksSaved
		total.ChunksSkipped += stats.ChunksSkipped
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("walking %s: %w", path, err)
	}
	return total, nil
}

// indexFile reads, chunks and stores one file.
// Existing chunks from the same source are removed first so re-ingesting a
// shorter file leaves no stale tail chunks.
func (ix *Indexer) indexFile(ctx context.Context, path string) (Stats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Stats{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > maxDocumentBytes {
		return Stats{}, fmt.Errorf("%s is %d bytes, exceeds the %d byte limit", path, info.Size(), maxDocumentBytes)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, fmt.Errorf("reading %s: %w", path, err)
	}

	source := filepath.Base(path)
	return ix.IndexText(ctx, source, string(content), map[string]string{
		knowledge.MetaKind: knowledge.KindUploaded,
	})
}

// IndexText chunks raw text and stores it under the given source name.
// Extra metadata entries are attached to every chunk; the source key is set
// by the indexer.
func (ix *Indexer) IndexText(ctx context.Context, source, text string, metadata map[string]string) (Stats, error) {
	chunks := knowledge.Chunk(text, ix.chunkSize, ix.chunkOverlap)
	if len(chunks) == 0 {
		return Stats{}, fmt.Errorf("%s contains no indexable text", source)
	}

	removed, err := ix.store.DeleteBySource(ctx, source)
	if err != nil {
		return Stats{}, err
	}
	if removed > 0 {
		ix.logger.Debug("replaced existing chunks", "source", source, "removed", removed)
	}

	var stats Stats
	for i, chunk := range chunks {
		// The final window can be fully contained in the previous one when
		// the tail is shorter than the overlap. Storing it would double the
		// weight of that text in retrieval.
		if i > 0 && strings.Contains(chunks[i-1], chunk) {
			stats.ChunksSkipped++
			continue
		}

		meta := map[string]string{knowledge.MetaSource: source}
		for k, v := range metadata {
			if k != knowledge.MetaSource {
				meta[k] = v
			}
		}

		doc := knowledge.Document{
			ID:       fmt.Sprintf("%s#%d", source, i),
			Content:  chunk,
			Metadata: meta,
		}
		if err := ix.store.Add(ctx, doc); err != nil {
			// Stop rather than skip: a failing embedder mid-file would
			// otherwise leave a silently partial document.
			return stats, fmt.Errorf("indexing chunk %d of %s: %w", i, source, err)
		}
		stats.ChunksSaved++
	}
	stats.Documents = 1

	ix.logger.Info("indexed document", "source", source, "chunks", stats.ChunksSaved)
	return stats, nil
}

// SeedIfEmpty loads the built-in study material when the store has no
// documents. Called once at startup; a populated store is left untouched.
func (ix *Indexer) SeedIfEmpty(ctx context.Context) error {
	count, err := ix.store.Count(ctx, nil)
	if err != nil {
		return fmt.Errorf("checking knowledge store: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, seed := range seedDocuments {
		_, err := ix.IndexText(ctx, seed.Name, seed.Content, map[string]string{
			knowledge.MetaTopic: seed.Topic,
			knowledge.MetaKind:  knowledge.KindSeed,
		})
		if err != nil {
			return fmt.Errorf("seeding %s: %w", seed.Name, err)
		}
	}

	ix.logger.Info("seeded knowledge store", "documents", len(seedDocuments))
	return nil
}
