package indexer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"notechat/internal/contextutil"
	"notechat/internal/llm"
	"notechat/internal/metrics"
	"notechat/internal/notes"
	"notechat/internal/storage"
	"notechat/internal/vectorstore"
)

// Embedder is the slice of the embeddings client the pipeline needs.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string, onProgress llm.ProgressFunc) ([][]float32, error)
}

// Pipeline orchestrates the indexing of markdown documents into SQLite and
// the vector store.
type Pipeline struct {
	scanner     *notes.Scanner
	docRepo     storage.DocumentStore
	chunkRepo   storage.ChunkStore
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	chunker     *Chunker
	stats       *Stats
	metrics     *metrics.Metrics
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(
	scanner *notes.Scanner,
	docRepo storage.DocumentStore,
	chunkRepo storage.ChunkStore,
	embedder Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	chunker *Chunker,
	m *metrics.Metrics,
) *Pipeline {
	return &Pipeline{
		scanner:     scanner,
		docRepo:     docRepo,
		chunkRepo:   chunkRepo,
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		chunker:     chunker,
		stats:       &Stats{},
		metrics:     m,
	}
}

// Stats returns a snapshot of the ingestion counters.
func (p *Pipeline) Stats() Stats {
	return p.stats.Snapshot()
}

// IndexDocument indexes a single document. Unchanged files (matching hash)
// are skipped. Changed files have their old chunks removed from both stores
// before the new chunks are embedded and written.
func (p *Pipeline) IndexDocument(ctx context.Context, doc notes.Document) error {
	logger := contextutil.LoggerFromContext(ctx)

	hash := sha256.Sum256([]byte(doc.Content))
	hashHex := fmt.Sprintf("%x", hash)

	existing, err := p.docRepo.GetByRelPath(ctx, doc.RelPath)
	if err != nil && err != storage.ErrNotFound {
		return fmt.Errorf("failed to check existing document: %w", err)
	}

	if existing != nil && existing.Hash == hashHex {
		logger.DebugContext(ctx, "skipping unchanged file", "rel_path", doc.RelPath)
		p.stats.addSkipped()
		return nil
	}

	pieces := p.chunker.Split(doc.Content)
	if len(pieces) == 0 {
		logger.WarnContext(ctx, "no chunks generated", "rel_path", doc.RelPath)
		p.stats.addEmpty()
		return nil
	}

	title := ExtractTitle([]byte(doc.Content), filepath.Base(doc.RelPath))

	docID := uuid.New().String()
	if existing != nil {
		docID = existing.ID
	}

	record := &storage.DocumentRecord{
		ID:      docID,
		RelPath: doc.RelPath,
		AbsPath: doc.AbsPath,
		Title:   title,
		Hash:    hashHex,
	}
	if err := p.docRepo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	if existing != nil {
		if err := p.removeChunks(ctx, docID); err != nil {
			return err
		}
	}

	embeddings, err := p.embedder.EmbedTexts(ctx, pieces, func(done, total int) {
		logger.DebugContext(ctx, "embedding progress", "rel_path", doc.RelPath, "done", done, "total", total)
	})
	if err != nil {
		p.stats.addFailed()
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(pieces) {
		p.stats.addFailed()
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(pieces), len(embeddings))
	}

	points := make([]vectorstore.Point, len(pieces))
	for i, text := range pieces {
		chunkID := uuid.New().String()

		if err := p.chunkRepo.Insert(ctx, &storage.ChunkRecord{
			ID:         chunkID,
			DocumentID: docID,
			ChunkIndex: i,
			Text:       text,
		}); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}

		points[i] = vectorstore.Point{
			ID:  chunkID,
			Vec: embeddings[i],
			Meta: map[string]any{
				"rel_path":    doc.RelPath,
				"abs_path":    doc.AbsPath,
				"chunk_index": i,
				"title":       title,
			},
		}
	}

	if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}

	p.stats.addProcessed(len(pieces), len(embeddings))
	p.metrics.RecordIndexedDocument()
	logger.InfoContext(ctx, "indexed document", "rel_path", doc.RelPath, "chunks", len(pieces), "title", title)
	return nil
}

// RemoveDocument deletes a document and its chunks from both stores.
func (p *Pipeline) RemoveDocument(ctx context.Context, absPath string) error {
	logger := contextutil.LoggerFromContext(ctx)

	relPath, err := filepath.Rel(p.scanner.Root(), absPath)
	if err != nil {
		return fmt.Errorf("path %s is outside the notes root: %w", absPath, err)
	}
	relPath = filepath.ToSlash(relPath)

	existing, err := p.docRepo.GetByRelPath(ctx, relPath)
	if err == storage.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up document: %w", err)
	}

	if err := p.removeChunks(ctx, existing.ID); err != nil {
		return err
	}
	if err := p.docRepo.Delete(ctx, existing.ID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	logger.InfoContext(ctx, "removed document", "rel_path", relPath)
	return nil
}

func (p *Pipeline) removeChunks(ctx context.Context, docID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	chunkIDs, err := p.chunkRepo.ListIDsByDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to list chunk IDs: %w", err)
	}
	if len(chunkIDs) == 0 {
		return nil
	}

	if err := p.vectorStore.Delete(ctx, p.collection, chunkIDs); err != nil {
		// The new points overwrite by ID anyway, so keep going.
		logger.WarnContext(ctx, "failed to delete old vectors", "count", len(chunkIDs), "error", err)
	}
	if err := p.chunkRepo.DeleteByDocument(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}
	return nil
}

// IndexAll scans the notes root and indexes every markdown file.
// Individual file failures are logged and skipped.
func (p *Pipeline) IndexAll(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	docs, err := p.scanner.ScanAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan notes: %w", err)
	}

	logger.InfoContext(ctx, "starting indexing", "total_files", len(docs))

	var successCount, errorCount int
	for _, doc := range docs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.IndexDocument(ctx, doc); err != nil {
			errorCount++
			logger.ErrorContext(ctx, "failed to index file", "rel_path", doc.RelPath, "error", err)
			continue
		}
		successCount++
	}

	logger.InfoContext(ctx, "indexing completed", "total_files", len(docs), "success", successCount, "errors", errorCount)

	if errorCount > 0 {
		return fmt.Errorf("indexing completed with %d errors", errorCount)
	}
	return nil
}

// Watch consumes file events from the notes watcher until the context is
// cancelled, keeping the index in sync with the folder.
func (p *Pipeline) Watch(ctx context.Context, events <-chan notes.FileEvent) {
	logger := contextutil.LoggerFromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}

			switch event.Op {
			case notes.FileDeleted:
				if err := p.RemoveDocument(ctx, event.AbsPath); err != nil {
					logger.ErrorContext(ctx, "failed to remove document", "abs_path", event.AbsPath, "error", err)
				}
			default:
				doc, err := p.scanner.Read(event.AbsPath)
				if err != nil {
					logger.ErrorContext(ctx, "failed to read changed file", "abs_path", event.AbsPath, "error", err)
					continue
				}
				if err := p.IndexDocument(ctx, doc); err != nil {
					logger.ErrorContext(ctx, "failed to reindex changed file", "abs_path", event.AbsPath, "error", err)
				}
			}
		}
	}
}
