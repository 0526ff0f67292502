package retrieval

import (
	"strings"

	"notechat/internal/config"
	"notechat/internal/query"
)

// Scorer computes the lexical match scores for one chunk against a classified
// question. Semantic scores come from the vector store and are blended in by
// the engine; the scorer only handles the path and content signals.
type Scorer struct {
	bonuses config.Bonuses
}

// NewScorer creates a scorer with the given bonus tiers.
func NewScorer(bonuses config.Bonuses) *Scorer {
	return &Scorer{bonuses: bonuses}
}

// Signals are the per-chunk facts that influence weight selection.
type Signals struct {
	// ExactErrorCodeMatch is true when an error-code keyword from the
	// question appears verbatim in this chunk's path or content.
	ExactErrorCodeMatch bool
}

// PathScore scores the chunk's file path against the question keywords.
// The path is matched both normalized and in its original case so that
// case-sensitive identifiers in file names still match.
func (s *Scorer) PathScore(class query.Classification, relPath string) (float64, Signals) {
	return s.scoreTarget(class, relPath, s.bonuses.Path)
}

// ContentScore scores the chunk's text against the question keywords using
// the content bonus tier.
func (s *Scorer) ContentScore(class query.Classification, content string) (float64, Signals) {
	return s.scoreTarget(class, content, s.bonuses.Content)
}

// scoreTarget applies the tiered per-keyword bonuses to one match target.
// Each keyword contributes at most one bonus, chosen by its shape: date
// expressions match through their written variations, error codes match
// case-insensitively or in original case, numbers and plain keywords match
// as substrings.
func (s *Scorer) scoreTarget(class query.Classification, target string, bonuses config.MatchBonuses) (float64, Signals) {
	normalized := query.Normalize(target)
	var score float64
	var signals Signals

	for _, kw := range class.Keywords {
		switch {
		case query.IsMonthDayDate(kw):
			if dateMatches(kw, normalized) {
				score += bonuses.Date
			}
		case query.LooksLikeErrorCode(kw):
			if strings.Contains(normalized, strings.ToLower(kw)) || strings.Contains(target, kw) {
				score += bonuses.ErrorCode
				signals.ExactErrorCodeMatch = true
			}
		case query.IsNumeric(kw):
			if strings.Contains(normalized, kw) {
				score += bonuses.Number
			}
		default:
			if strings.Contains(normalized, kw) || strings.Contains(target, kw) {
				score += bonuses.Keyword
			}
		}
	}

	return score, signals
}

// dateMatches reports whether any written variation of the date expression
// appears in the normalized target.
func dateMatches(expr, normalizedTarget string) bool {
	for _, variation := range query.DateVariations(expr) {
		if strings.Contains(normalizedTarget, query.Normalize(variation)) {
			return true
		}
	}
	return false
}
