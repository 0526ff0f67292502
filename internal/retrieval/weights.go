package retrieval

import (
	"notechat/internal/config"
	"notechat/internal/query"
)

// ComputeWeights selects the signal blend for one chunk. It is a pure
// function of the question classification and the chunk's match signals.
//
// The default blend favors semantic similarity. For a short question whose
// error-code keyword matched this chunk exactly, the blend shifts toward the
// lexical signals: short technical queries are better served by exact matches
// than by semantic drift.
func ComputeWeights(class query.Classification, signals Signals, tuning config.Tuning) config.Weights {
	if class.ShortQuery && signals.ExactErrorCodeMatch {
		return tuning.ShortTechnicalWeights
	}
	return tuning.Weights
}
