package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// DocumentRecord represents an ingested markdown file.
type DocumentRecord struct {
	ID        string // UUID
	RelPath   string // Relative display path from the notes root
	AbsPath   string // Original absolute file path
	Title     string // Extracted markdown title
	Hash      string // SHA256 hex string of file content
	UpdatedAt time.Time
}

// ChunkRecord represents one chunk of a document, indexed for vector search.
// The ID doubles as the vector store point ID.
type ChunkRecord struct {
	ID         string // UUID (same as vector point ID)
	DocumentID string // Foreign key to documents.id
	ChunkIndex int    // Index within document (starts at 0)
	Text       string // Chunk text content
}

// MessageRecord persists one conversation message. The conversation log is
// the Go-side stand-in for the original tool's browser-local storage.
type MessageRecord struct {
	ID                   string
	Role                 string
	Content              string
	OriginalQuestion     string
	RequiresConfirmation *bool // nil when the message never carried the flag
	Summary              string
	CreatedAt            time.Time
}
