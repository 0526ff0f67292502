package handlers

import (
	"context"
	"net/http"

	"notechat/internal/contextutil"
	"notechat/internal/indexer"
	"notechat/internal/storage"
)

// Indexer is the slice of the indexing pipeline the handler needs.
type Indexer interface {
	IndexAll(ctx context.Context) error
	Stats() indexer.Stats
}

// IngestHandler triggers a reindex of the notes folder and reports
// ingestion coverage.
type IngestHandler struct {
	pipeline  Indexer
	docRepo   storage.DocumentStore
	chunkRepo storage.ChunkStore
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(pipeline Indexer, docRepo storage.DocumentStore, chunkRepo storage.ChunkStore) *IngestHandler {
	return &IngestHandler{
		pipeline:  pipeline,
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
	}
}

// IngestResponse reports the state of the index after a run.
type IngestResponse struct {
	Documents       int `json:"documents"`
	Chunks          int `json:"chunks"`
	DocsProcessed   int `json:"docsProcessed"`
	DocsSkipped     int `json:"docsSkipped"`
	DocsEmpty       int `json:"docsEmpty"`
	DocsFailed      int `json:"docsFailed"`
	ChunksAttempted int `json:"chunksAttempted"`
	ChunksEmbedded  int `json:"chunksEmbedded"`
}

// ServeHTTP runs a full reindex on POST and reports coverage on GET.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	switch r.Method {
	case http.MethodPost:
		if err := h.pipeline.IndexAll(ctx); err != nil {
			logger.ErrorContext(ctx, "reindex failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Reindex completed with errors")
			return
		}
		h.writeStats(ctx, w)
	case http.MethodGet:
		h.writeStats(ctx, w)
	default:
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *IngestHandler) writeStats(ctx context.Context, w http.ResponseWriter) {
	logger := contextutil.LoggerFromContext(ctx)

	docCount, err := h.docRepo.CountAll(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to count documents", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read index state")
		return
	}
	chunkCount, err := h.chunkRepo.CountAll(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to count chunks", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read index state")
		return
	}

	stats := h.pipeline.Stats()
	writeJSON(ctx, w, http.StatusOK, IngestResponse{
		Documents:       docCount,
		Chunks:          chunkCount,
		DocsProcessed:   stats.DocsProcessed,
		DocsSkipped:     stats.DocsSkipped,
		DocsEmpty:       stats.DocsEmpty,
		DocsFailed:      stats.DocsFailed,
		ChunksAttempted: stats.ChunksAttempted,
		ChunksEmbedded:  stats.ChunksEmbedded,
	})
}
