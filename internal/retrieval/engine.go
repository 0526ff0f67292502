package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"notechat/internal/config"
	"notechat/internal/contextutil"
	"notechat/internal/query"
	"notechat/internal/storage"
	"notechat/internal/vectorstore"
)

// Engine retrieves and ranks chunks for a question and assembles the
// grounding context handed to the answering model.
type Engine struct {
	vectorStore vectorstore.VectorStore
	collection  string
	chunkRepo   storage.ChunkStore
	scorer      *Scorer
	tuning      config.Tuning
}

// NewEngine creates a retrieval engine.
func NewEngine(
	vectorStore vectorstore.VectorStore,
	collection string,
	chunkRepo storage.ChunkStore,
	tuning config.Tuning,
) *Engine {
	return &Engine{
		vectorStore: vectorStore,
		collection:  collection,
		chunkRepo:   chunkRepo,
		scorer:      NewScorer(tuning.Bonuses),
		tuning:      tuning,
	}
}

// BuildContext scores the candidate chunks for a question and returns the
// serialized context, or a not-found result when the best chunk fails the
// acceptance floors.
func (e *Engine) BuildContext(ctx context.Context, question string, questionVec []float32, class query.Classification) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	logger.InfoContext(ctx, "retrieval started",
		"question", question,
		"kind", class.Kind.String(),
		"keywords", len(class.Keywords),
	)

	results, err := e.vectorStore.Search(ctx, e.collection, questionVec, e.tuning.CandidatePool)
	if err != nil {
		return Result{}, fmt.Errorf("failed to search vector store: %w", err)
	}
	if len(results) == 0 {
		logger.InfoContext(ctx, "no candidate chunks found")
		return Result{}, nil
	}

	scored := make([]ScoredChunk, 0, len(results))
	for _, result := range results {
		relPath, _ := result.Meta["rel_path"].(string)
		absPath, _ := result.Meta["abs_path"].(string)

		chunk, err := e.chunkRepo.GetByID(ctx, result.PointID)
		if err != nil {
			logger.WarnContext(ctx, "failed to fetch chunk text", "chunk_id", result.PointID, "error", err)
			continue
		}

		pathScore, pathSignals := e.scorer.PathScore(class, relPath)
		contentScore, contentSignals := e.scorer.ContentScore(class, chunk.Text)
		semantic := float64(result.Score)

		signals := Signals{
			ExactErrorCodeMatch: pathSignals.ExactErrorCodeMatch || contentSignals.ExactErrorCodeMatch,
		}
		weights := ComputeWeights(class, signals, e.tuning)

		scored = append(scored, ScoredChunk{
			ChunkID:       result.PointID,
			RelPath:       relPath,
			AbsPath:       absPath,
			Text:          chunk.Text,
			PathScore:     pathScore,
			SemanticScore: semantic,
			ContentScore:  contentScore,
			FinalScore:    weights.Path*pathScore + weights.Semantic*semantic + weights.Content*contentScore,
		})
	}

	if len(scored) == 0 {
		logger.InfoContext(ctx, "all candidate chunks were unreadable")
		return Result{}, nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})
	if len(scored) > e.tuning.TopK {
		scored = scored[:e.tuning.TopK]
	}

	datePathMatch := e.findDatePathMatch(class, scored)

	best := scored[0]
	floors := ResolveFloors(class, datePathMatch, best.FinalScore, e.tuning.Thresholds)

	logger.InfoContext(ctx, "candidates ranked",
		"top_score", best.FinalScore,
		"top_semantic", best.SemanticScore,
		"min_score", floors.MinScore,
		"min_semantic", floors.MinSemantic,
		"date_path_match", datePathMatch,
	)

	if best.FinalScore < floors.MinScore || best.SemanticScore < floors.MinSemantic {
		logger.InfoContext(ctx, "best chunk below acceptance floors")
		return Result{Chunks: scored, DatePathMatch: datePathMatch}, nil
	}

	contextString := e.assemble(scored)
	if strings.TrimSpace(contextString) == "" {
		return Result{Chunks: scored, DatePathMatch: datePathMatch}, nil
	}

	logger.InfoContext(ctx, "context built",
		"chunks_included", len(scored),
		"context_runes", utf8.RuneCountInString(contextString),
	)

	return Result{
		Context:       contextString,
		Found:         true,
		Chunks:        scored,
		DatePathMatch: datePathMatch,
	}, nil
}

// findDatePathMatch reports whether any date expression from the question,
// in any written variation, appears in a top-ranked chunk's path.
func (e *Engine) findDatePathMatch(class query.Classification, scored []ScoredChunk) bool {
	if class.Kind != query.KindDate {
		return false
	}
	for _, chunk := range scored {
		normalizedPath := query.Normalize(chunk.RelPath)
		for _, expr := range class.DateExpressions {
			if dateMatches(expr, normalizedPath) {
				return true
			}
		}
	}
	return false
}

// assemble serializes the ranked chunks as file-tagged blocks. Duplicate
// blocks are skipped, and assembly stops before a block would push the
// context past the rune budget. A block is never truncated mid-way.
func (e *Engine) assemble(scored []ScoredChunk) string {
	var builder strings.Builder
	seen := make(map[string]struct{})
	total := 0

	for _, chunk := range scored {
		block := fmt.Sprintf("--- FILE: %s ---\n%s\n\n", chunk.AbsPath, chunk.Text)
		if _, ok := seen[block]; ok {
			continue
		}

		blockRunes := utf8.RuneCountInString(block)
		if total+blockRunes > e.tuning.ContextBudget {
			break
		}

		seen[block] = struct{}{}
		builder.WriteString(block)
		total += blockRunes
	}

	return builder.String()
}
