package query

import (
	"regexp"
	"unicode/utf8"
)

// Kind is the tagged classification of a question. It is computed once per
// question and threaded through scoring and threshold logic instead of
// re-deriving regex tests at every call site.
type Kind int

const (
	KindGeneral Kind = iota
	KindDate
	KindTechnical
	KindFollowUp
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindTechnical:
		return "technical"
	case KindFollowUp:
		return "follow_up"
	default:
		return "general"
	}
}

// Classification is the per-question analysis shared by the scorer, the
// threshold resolver, and the chat service.
type Classification struct {
	Kind            Kind
	Keywords        []string
	DateExpressions []string // N月N日 keywords, in extraction order
	ErrorCodes      []string // keywords with the error-code shape
	ShortQuery      bool     // question length below the short-query limit
}

var followUpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(それ|これ|あれ|その|この|さっき|先ほど|前の|続き)`),
	regexp.MustCompile(`(詳しく|もっと|他に|ほかに)`),
}

// Classify analyzes a question given its extracted keywords.
// shortMaxRunes is the length below which a query counts as short.
func Classify(question string, keywords []string, shortMaxRunes int) Classification {
	c := Classification{
		Kind:       KindGeneral,
		Keywords:   keywords,
		ShortQuery: utf8.RuneCountInString(question) < shortMaxRunes,
	}

	for _, kw := range keywords {
		if IsMonthDayDate(kw) {
			c.DateExpressions = append(c.DateExpressions, kw)
		}
		if LooksLikeErrorCode(kw) {
			c.ErrorCodes = append(c.ErrorCodes, kw)
		}
	}

	switch {
	case len(c.DateExpressions) > 0:
		c.Kind = KindDate
	case len(c.ErrorCodes) > 0:
		c.Kind = KindTechnical
	case isFollowUp(Normalize(question)):
		c.Kind = KindFollowUp
	}

	return c
}

func isFollowUp(normalized string) bool {
	for _, pattern := range followUpPatterns {
		if pattern.MatchString(normalized) {
			return true
		}
	}
	return false
}
