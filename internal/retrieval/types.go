package retrieval

// ScoredChunk is one candidate chunk with its per-signal scores. Produced per
// query and discarded after context assembly.
type ScoredChunk struct {
	ChunkID string
	RelPath string
	AbsPath string
	Text    string

	PathScore     float64
	SemanticScore float64
	ContentScore  float64
	FinalScore    float64
}

// Result is the outcome of context building for one question.
// When Found is false the context string is empty and the caller routes the
// question to the external-knowledge approval flow.
type Result struct {
	Context       string
	Found         bool
	Chunks        []ScoredChunk
	DatePathMatch bool
}
