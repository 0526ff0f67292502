package retrieval

import (
	"math"
	"testing"

	"notechat/internal/config"
	"notechat/internal/query"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScorer_PathScore(t *testing.T) {
	bonuses := config.DefaultTuning().Bonuses
	scorer := NewScorer(bonuses)

	tests := []struct {
		name        string
		class       query.Classification
		relPath     string
		wantScore   float64
		wantSignals Signals
	}{
		{
			name: "date variation in path",
			class: query.Classification{
				Kind:            query.KindDate,
				Keywords:        []string{"7月18日"},
				DateExpressions: []string{"7月18日"},
			},
			relPath:   "2025-07-18_算数.md",
			wantScore: bonuses.Path.Date,
		},
		{
			// The year-free MM-DD variation matches whatever year prefixes
			// the file name.
			name: "date in path with an old year prefix",
			class: query.Classification{
				Kind:            query.KindDate,
				Keywords:        []string{"7月18日"},
				DateExpressions: []string{"7月18日"},
			},
			relPath:   "2019-07-18_算数.md",
			wantScore: bonuses.Path.Date,
		},
		{
			name: "date expression not in path",
			class: query.Classification{
				Kind:            query.KindDate,
				Keywords:        []string{"7月18日"},
				DateExpressions: []string{"7月18日"},
			},
			relPath:   "2025-09-05_国語.md",
			wantScore: 0,
		},
		{
			name: "error code case-insensitive",
			class: query.Classification{
				Kind:       query.KindTechnical,
				Keywords:   []string{"e501"},
				ErrorCodes: []string{"e501"},
			},
			relPath:     "errors/E501対処.md",
			wantScore:   bonuses.Path.ErrorCode,
			wantSignals: Signals{ExactErrorCodeMatch: true},
		},
		{
			name: "bare number",
			class: query.Classification{
				Keywords: []string{"42"},
			},
			relPath:   "chapter42.md",
			wantScore: bonuses.Path.Number,
		},
		{
			name: "plain keyword",
			class: query.Classification{
				Keywords: []string{"数学"},
			},
			relPath:   "数学ノート.md",
			wantScore: bonuses.Path.Keyword,
		},
		{
			name: "keywords accumulate",
			class: query.Classification{
				Kind:            query.KindDate,
				Keywords:        []string{"7月18日", "数学"},
				DateExpressions: []string{"7月18日"},
			},
			relPath:   "2025-07-18_数学.md",
			wantScore: bonuses.Path.Date + bonuses.Path.Keyword,
		},
		{
			name: "no match",
			class: query.Classification{
				Keywords: []string{"理科"},
			},
			relPath:   "2025-07-18_数学.md",
			wantScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, signals := scorer.PathScore(tt.class, tt.relPath)
			if !almostEqual(score, tt.wantScore) {
				t.Errorf("PathScore = %v, want %v", score, tt.wantScore)
			}
			if signals != tt.wantSignals {
				t.Errorf("signals = %+v, want %+v", signals, tt.wantSignals)
			}
		})
	}
}

func TestScorer_ContentScore(t *testing.T) {
	bonuses := config.DefaultTuning().Bonuses
	scorer := NewScorer(bonuses)

	class := query.Classification{
		Kind:       query.KindTechnical,
		Keywords:   []string{"e501", "接続"},
		ErrorCodes: []string{"e501"},
	}
	content := "E501は接続エラーを示す。再起動で解消する。"

	score, signals := scorer.ContentScore(class, content)
	want := bonuses.Content.ErrorCode + bonuses.Content.Keyword
	if !almostEqual(score, want) {
		t.Errorf("ContentScore = %v, want %v", score, want)
	}
	if !signals.ExactErrorCodeMatch {
		t.Error("ExactErrorCodeMatch = false, want true")
	}
}

func TestScorer_ContentUsesContentTier(t *testing.T) {
	bonuses := config.DefaultTuning().Bonuses
	scorer := NewScorer(bonuses)

	class := query.Classification{
		Kind:            query.KindDate,
		Keywords:        []string{"7月18日"},
		DateExpressions: []string{"7月18日"},
	}

	pathScore, _ := scorer.PathScore(class, "07-18.md")
	contentScore, _ := scorer.ContentScore(class, "7月18日の授業")
	if almostEqual(pathScore, contentScore) {
		t.Errorf("path and content tiers should differ: both %v", pathScore)
	}
	if !almostEqual(contentScore, bonuses.Content.Date) {
		t.Errorf("ContentScore = %v, want %v", contentScore, bonuses.Content.Date)
	}
}

func TestScorer_RaisingBonusNeverLowersScore(t *testing.T) {
	base := config.DefaultTuning().Bonuses
	raised := base
	raised.Path.Date = base.Path.Date + 0.5

	class := query.Classification{
		Kind:            query.KindDate,
		Keywords:        []string{"7月18日"},
		DateExpressions: []string{"7月18日"},
	}

	baseScore, _ := NewScorer(base).PathScore(class, "07-18.md")
	raisedScore, _ := NewScorer(raised).PathScore(class, "07-18.md")
	if raisedScore <= baseScore {
		t.Errorf("raised bonus gave score %v, base %v", raisedScore, baseScore)
	}
}
