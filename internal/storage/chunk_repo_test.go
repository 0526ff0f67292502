package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func insertTestDocument(t *testing.T, repo *DocumentRepo, id, relPath string) {
	t.Helper()
	doc := &DocumentRecord{ID: id, RelPath: relPath, AbsPath: "/n/" + relPath, Title: "T", Hash: "h"}
	if err := repo.Upsert(context.Background(), doc); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
}

func TestChunkRepo_InsertAndGetByID(t *testing.T) {
	db := newTestDB(t)
	insertTestDocument(t, NewDocumentRepo(db), "doc-1", "a.md")
	repo := NewChunkRepo(db)
	ctx := context.Background()

	chunk := &ChunkRecord{ID: "chunk-1", DocumentID: "doc-1", ChunkIndex: 0, Text: "かけ算の筆算。"}
	if err := repo.Insert(ctx, chunk); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "chunk-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.DocumentID != "doc-1" || got.ChunkIndex != 0 || got.Text != "かけ算の筆算。" {
		t.Errorf("GetByID() = %+v", got)
	}
}

func TestChunkRepo_GetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewChunkRepo(db)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestChunkRepo_ListIDsByDocument(t *testing.T) {
	db := newTestDB(t)
	insertTestDocument(t, NewDocumentRepo(db), "doc-1", "a.md")
	insertTestDocument(t, NewDocumentRepo(db), "doc-2", "b.md")
	repo := NewChunkRepo(db)
	ctx := context.Background()

	// Insert out of index order to verify ordering.
	for _, idx := range []int{2, 0, 1} {
		chunk := &ChunkRecord{
			ID:         fmt.Sprintf("chunk-%d", idx),
			DocumentID: "doc-1",
			ChunkIndex: idx,
			Text:       "本文",
		}
		if err := repo.Insert(ctx, chunk); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	other := &ChunkRecord{ID: "other", DocumentID: "doc-2", ChunkIndex: 0, Text: "別文書"}
	if err := repo.Insert(ctx, other); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	ids, err := repo.ListIDsByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("ListIDsByDocument() error = %v", err)
	}
	want := []string{"chunk-0", "chunk-1", "chunk-2"}
	if len(ids) != len(want) {
		t.Fatalf("got %d IDs, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestChunkRepo_ListIDsByDocument_Empty(t *testing.T) {
	db := newTestDB(t)
	repo := NewChunkRepo(db)

	ids, err := repo.ListIDsByDocument(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ListIDsByDocument() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("got %d IDs for unknown document, want 0", len(ids))
	}
}

func TestChunkRepo_DeleteByDocument(t *testing.T) {
	db := newTestDB(t)
	insertTestDocument(t, NewDocumentRepo(db), "doc-1", "a.md")
	insertTestDocument(t, NewDocumentRepo(db), "doc-2", "b.md")
	repo := NewChunkRepo(db)
	ctx := context.Background()

	chunks := []*ChunkRecord{
		{ID: "c1", DocumentID: "doc-1", ChunkIndex: 0, Text: "a"},
		{ID: "c2", DocumentID: "doc-1", ChunkIndex: 1, Text: "b"},
		{ID: "c3", DocumentID: "doc-2", ChunkIndex: 0, Text: "c"},
	}
	for _, chunk := range chunks {
		if err := repo.Insert(ctx, chunk); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	if err := repo.DeleteByDocument(ctx, "doc-1"); err != nil {
		t.Fatalf("DeleteByDocument() error = %v", err)
	}

	count, err := repo.CountAll(ctx)
	if err != nil {
		t.Fatalf("CountAll() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountAll() = %d, want 1", count)
	}
	if _, err := repo.GetByID(ctx, "c3"); err != nil {
		t.Errorf("chunk of other document removed: %v", err)
	}
}
