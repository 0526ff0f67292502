package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_stores.go -package=mocks notechat/internal/storage DocumentStore,ChunkStore,MessageStore

import (
	"context"
	"database/sql"
	"fmt"
)

// DocumentStore defines the interface for document metadata operations.
type DocumentStore interface {
	// Upsert inserts or updates a document record by rel_path.
	Upsert(ctx context.Context, doc *DocumentRecord) error
	// GetByRelPath gets a document by its relative path. Returns ErrNotFound if missing.
	GetByRelPath(ctx context.Context, relPath string) (*DocumentRecord, error)
	// Delete removes a document record (chunks cascade).
	Delete(ctx context.Context, id string) error
	// CountAll returns the number of documents.
	CountAll(ctx context.Context) (int, error)
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Upsert inserts or updates a document record by rel_path.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *DocumentRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, rel_path, abs_path, title, hash, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(rel_path) DO UPDATE SET
		   abs_path = excluded.abs_path,
		   title = excluded.title,
		   hash = excluded.hash,
		   updated_at = CURRENT_TIMESTAMP`,
		doc.ID, doc.RelPath, doc.AbsPath, doc.Title, doc.Hash,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// GetByRelPath gets a document by its relative path.
func (r *DocumentRepo) GetByRelPath(ctx context.Context, relPath string) (*DocumentRecord, error) {
	var doc DocumentRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, rel_path, abs_path, title, hash, updated_at FROM documents WHERE rel_path = ?",
		relPath,
	).Scan(&doc.ID, &doc.RelPath, &doc.AbsPath, &doc.Title, &doc.Hash, &doc.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &doc, nil
}

// Delete removes a document record. Chunks cascade via the foreign key.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// CountAll returns the number of documents.
func (r *DocumentRepo) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}
