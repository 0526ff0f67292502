package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the retrieval tuning knobs. The relaxation cascade for
// thresholds is ordered in code; the numeric constants are configuration
// because they were arrived at empirically, not derived.
type Tuning struct {
	MaxChunkSize       int `yaml:"max_chunk_size"`
	ChunkOverlap       int `yaml:"chunk_overlap"`
	TopK               int `yaml:"top_k"`
	CandidatePool      int `yaml:"candidate_pool"`
	ContextBudget      int `yaml:"context_budget"`
	EmbedBatchSize     int `yaml:"embed_batch_size"`
	ShortQueryMaxRunes int `yaml:"short_query_max_runes"`

	Weights               Weights    `yaml:"weights"`
	ShortTechnicalWeights Weights    `yaml:"short_technical_weights"`
	Bonuses               Bonuses    `yaml:"bonuses"`
	Thresholds            Thresholds `yaml:"thresholds"`

	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	CacheMaxEntries int `yaml:"cache_max_entries"`
}

// Weights are the blend factors for the three scoring signals.
type Weights struct {
	Path     float64 `yaml:"path"`
	Semantic float64 `yaml:"semantic"`
	Content  float64 `yaml:"content"`
}

// MatchBonuses are the per-match-type bonus values for one signal.
type MatchBonuses struct {
	Date      float64 `yaml:"date"`
	ErrorCode float64 `yaml:"error_code"`
	Number    float64 `yaml:"number"`
	Keyword   float64 `yaml:"keyword"`
}

// Bonuses holds the bonus tiers for the path and content signals.
// Path bonuses are higher than content bonuses for the same match type
// because a path match is stronger evidence of relevance.
type Bonuses struct {
	Path    MatchBonuses `yaml:"path"`
	Content MatchBonuses `yaml:"content"`
}

// Floor is a pair of acceptance floors for the best-ranked chunk.
type Floor struct {
	MinScore    float64 `yaml:"min_score"`
	MinSemantic float64 `yaml:"min_semantic"`
}

// Thresholds holds the acceptance floors for each relaxation tier.
type Thresholds struct {
	Default           Floor   `yaml:"default"`
	DatePathMatch     Floor   `yaml:"date_path_match"`
	DateNoPathMatch   Floor   `yaml:"date_no_path_match"`
	ShortTechnical    Floor   `yaml:"short_technical"`
	HighScoreOverride float64 `yaml:"high_score_override"`
}

// DefaultTuning returns the tuning values used when no YAML file is supplied.
func DefaultTuning() Tuning {
	return Tuning{
		MaxChunkSize:       700,
		ChunkOverlap:       100,
		TopK:               10,
		CandidatePool:      50,
		ContextBudget:      10000,
		EmbedBatchSize:     50,
		ShortQueryMaxRunes: 20,
		Weights: Weights{
			Path:     0.25,
			Semantic: 0.50,
			Content:  0.25,
		},
		// Short technical queries carry little semantic signal, so the
		// blend shifts toward the lexical signals.
		ShortTechnicalWeights: Weights{
			Path:     0.45,
			Semantic: 0.20,
			Content:  0.35,
		},
		Bonuses: Bonuses{
			Path: MatchBonuses{
				Date:      0.80,
				ErrorCode: 1.00,
				Number:    0.50,
				Keyword:   0.30,
			},
			Content: MatchBonuses{
				Date:      0.40,
				ErrorCode: 0.60,
				Number:    0.25,
				Keyword:   0.15,
			},
		},
		Thresholds: Thresholds{
			Default:           Floor{MinScore: 0.35, MinSemantic: 0.30},
			DatePathMatch:     Floor{MinScore: 0.02, MinSemantic: -1.0},
			DateNoPathMatch:   Floor{MinScore: 0.15, MinSemantic: 0.10},
			ShortTechnical:    Floor{MinScore: 0.05, MinSemantic: -1.0},
			HighScoreOverride: 0.75,
		},
		CacheTTLSeconds: 300,
		CacheMaxEntries: 128,
	}
}

// LoadTuning reads a YAML tuning file over the defaults.
// An empty path returns the defaults unchanged.
func LoadTuning(path string) (Tuning, error) {
	tuning := DefaultTuning()
	if path == "" {
		return tuning, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("failed to read tuning file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return Tuning{}, fmt.Errorf("failed to parse tuning file %s: %w", path, err)
	}

	if err := tuning.validate(); err != nil {
		return Tuning{}, err
	}
	return tuning, nil
}

func (t Tuning) validate() error {
	if t.MaxChunkSize <= 0 {
		return fmt.Errorf("max_chunk_size must be positive")
	}
	if t.ChunkOverlap < 0 || t.ChunkOverlap >= t.MaxChunkSize {
		return fmt.Errorf("chunk_overlap must satisfy 0 <= overlap < max_chunk_size")
	}
	if t.TopK <= 0 {
		return fmt.Errorf("top_k must be positive")
	}
	if t.ContextBudget <= 0 {
		return fmt.Errorf("context_budget must be positive")
	}
	if t.EmbedBatchSize <= 0 {
		return fmt.Errorf("embed_batch_size must be positive")
	}
	return nil
}
