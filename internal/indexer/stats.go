package indexer

import "sync"

// Stats accumulates ingestion coverage counters across indexing runs.
// The watcher goroutine and manual reindex requests both update it.
type Stats struct {
	mu sync.Mutex

	DocsProcessed   int
	DocsSkipped     int // unchanged hash
	DocsEmpty       int // produced zero chunks
	DocsFailed      int
	ChunksAttempted int
	ChunksEmbedded  int
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		DocsProcessed:   s.DocsProcessed,
		DocsSkipped:     s.DocsSkipped,
		DocsEmpty:       s.DocsEmpty,
		DocsFailed:      s.DocsFailed,
		ChunksAttempted: s.ChunksAttempted,
		ChunksEmbedded:  s.ChunksEmbedded,
	}
}

func (s *Stats) addProcessed(chunksAttempted, chunksEmbedded int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DocsProcessed++
	s.ChunksAttempted += chunksAttempted
	s.ChunksEmbedded += chunksEmbedded
}

func (s *Stats) addSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DocsSkipped++
}

func (s *Stats) addEmpty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DocsEmpty++
}

func (s *Stats) addFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DocsFailed++
}
