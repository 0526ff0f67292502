package retrieval

import (
	"notechat/internal/config"
	"notechat/internal/query"
)

// ResolveFloors picks the acceptance floors for the best-ranked chunk.
//
// Precedence, most permissive first:
//  1. date query with a date variation found in a top chunk's path
//  2. short technical query
//  3. very high combined score, which waives the semantic floor on its own
//  4. date query without a path match
//  5. default
//
// The relative ordering is the contract; the numeric constants live in the
// tuning configuration.
func ResolveFloors(class query.Classification, datePathMatch bool, topScore float64, t config.Thresholds) config.Floor {
	isDate := class.Kind == query.KindDate
	shortTechnical := class.ShortQuery && len(class.ErrorCodes) > 0

	switch {
	case isDate && datePathMatch:
		return t.DatePathMatch
	case shortTechnical:
		return t.ShortTechnical
	case topScore >= t.HighScoreOverride:
		return config.Floor{MinScore: t.Default.MinScore, MinSemantic: -1.0}
	case isDate:
		return t.DateNoPathMatch
	default:
		return t.Default
	}
}
