package notes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Document represents a markdown file read from the notes folder.
// Documents are immutable once read.
type Document struct {
	RelPath string // Relative display path from the notes root (forward slashes)
	AbsPath string // Original absolute file path
	Content string // Raw file content
}

// Scanner reads markdown documents from a notes root directory.
type Scanner struct {
	root string
}

// NewScanner creates a scanner for the given notes root.
func NewScanner(root string) *Scanner {
	return &Scanner{root: root}
}

// Root returns the notes root directory.
func (s *Scanner) Root() string {
	return s.root
}

// ScanAll walks the notes root and returns every markdown document found.
// Hidden directories (including .obsidian) are skipped.
func (s *Scanner) ScanAll(ctx context.Context) ([]Document, error) {
	var docs []Document

	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			if len(info.Name()) > 1 && info.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}

		if filepath.Ext(path) != ".md" {
			return nil
		}

		relPath, err := filepath.Rel(s.root, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		relPath = filepath.ToSlash(relPath)

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		docs = append(docs, Document{
			RelPath: relPath,
			AbsPath: path,
			Content: string(content),
		})
		return nil
	})
	if err != nil {
		return docs, fmt.Errorf("failed to scan notes root %s: %w", s.root, err)
	}

	return docs, nil
}

// Read loads a single document by absolute path.
func (s *Scanner) Read(absPath string) (Document, error) {
	relPath, err := filepath.Rel(s.root, absPath)
	if err != nil {
		return Document{}, fmt.Errorf("path %s is outside the notes root: %w", absPath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read %s: %w", absPath, err)
	}

	return Document{
		RelPath: filepath.ToSlash(relPath),
		AbsPath: absPath,
		Content: string(content),
	}, nil
}
