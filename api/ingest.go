package api

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/owlia-ai/owlia/internal/knowledge"
	"github.com/owlia-ai/owlia/internal/log"
	"github.com/owlia-ai/owlia/internal/rag"
)

// maxDocumentUploadBytes bounds /ingest uploads.
const maxDocumentUploadBytes = 10 << 20

// ingestHandler accepts study document uploads into the knowledge base.
type ingestHandler struct {
	indexer *rag.Indexer
	logger  log.Logger
}

func newIngestHandler(indexer *rag.Indexer, logger log.Logger) *ingestHandler {
	return &ingestHandler{indexer: indexer, logger: logger}
}

func (h *ingestHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /ingest", h.ingest)
}

// IngestResponse is the response body for POST /ingest.
type IngestResponse struct {
	Doc         string `json:"doc"`
	ChunksTotal int    `json:"chunksTotal"`
	ChunksSaved int    `json:"chunksSaved"`
}

func (h *ingestHandler) ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing document", "multipart field 'file' is required")
		return
	}
	defer func() { _ = file.Close() }()

	name := filepath.Base(header.Filename)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
	default:
		writeError(w, http.StatusBadRequest, "unsupported file type", "only .txt and .md documents are accepted")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload", err.Error())
		return
	}

	if strings.TrimSpace(string(content)) == "" {
		writeError(w, http.StatusBadRequest, "empty document", name+" contains no indexable text")
		return
	}

	stats, err := h.indexer.IndexText(r.Context(), name, string(content), map[string]string{
		knowledge.MetaKind: knowledge.KindUploaded,
	})
	if err != nil {
		h.logger.Error("indexing upload", "error", err, "doc", name)
		writeError(w, http.StatusInternalServerError, "indexing failed", "")
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		Doc:         name,
		ChunksTotal: stats.ChunksSaved + stats.ChunksSkipped,
		ChunksSaved: stats.ChunksSaved,
	})
}
