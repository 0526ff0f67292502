package query

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Keyword extraction protects structured tokens (dates, error codes, numbers)
// behind placeholders so they survive stopword filtering intact, then restores
// them verbatim. Matching order matters: date patterns run before the bare
// number pattern so a date is never partially swallowed.

var (
	reMonthDayDate = regexp.MustCompile(`\d{1,2}月\d{1,2}日`)
	reFullDate     = regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日`)
	reSlashDate    = regexp.MustCompile(`\d{4}/\d{1,2}/\d{1,2}|\d{1,2}/\d{1,2}`)
	reHyphenDate   = regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}|\d{1,2}-\d{1,2}`)
	reDotDate      = regexp.MustCompile(`\d{4}\.\d{1,2}\.\d{1,2}|\d{1,2}\.\d{1,2}`)
	reErrorCode    = regexp.MustCompile(`[a-z]+[-_]?\d+[a-z0-9]*`)
	reNumber       = regexp.MustCompile(`\d+(?:\.\d+)?`)

	reErrorCodeExact = regexp.MustCompile(`^[a-z]+[-_]?\d+[a-z0-9]*$`)
	reNumberExact    = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

// protectedPatterns in fixed priority order.
var protectedPatterns = []*regexp.Regexp{
	reMonthDayDate,
	reFullDate,
	reSlashDate,
	reHyphenDate,
	reDotDate,
	reErrorCode,
	reNumber,
}

// stopwords: particles, copulas, conjunctions, question endings, punctuation.
// Replaced with spaces before whitespace tokenization; sorted longest-first at
// init so compound endings are removed before their substrings.
var stopwords = []string{
	"について", "教えてください", "教えて", "おしえて", "ください",
	"でしょうか", "ですか", "ますか", "でした", "ました", "ません",
	"という", "とは", "です", "ます", "だ", "である",
	"そして", "しかし", "また", "および", "または",
	"は", "が", "を", "に", "へ", "と", "で", "の", "や", "も", "か", "ね", "よ",
	"。", "、", "！", "？", "「", "」", "（", "）", "・",
	"!", "?", ",", "(", ")", "[", "]", "\"", "'",
}

func init() {
	sort.Slice(stopwords, func(i, j int) bool {
		return len(stopwords[i]) > len(stopwords[j])
	})
}

// Extractor turns a free-text question into keywords suitable for substring
// matching against normalized document paths and content.
type Extractor struct{}

// NewExtractor creates a keyword extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Normalize applies Unicode NFKC normalization and lowercasing, the same
// normalization used for document paths and content before matching.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// Extract returns the ordered keyword list for a question. A non-empty
// question always yields at least one keyword: if everything was filtered
// away, the normalized question itself is returned as the sole keyword.
func (e *Extractor) Extract(question string) []string {
	normalized := Normalize(question)
	if strings.TrimSpace(normalized) == "" {
		return nil
	}

	working := normalized
	protected := make(map[string]string)
	counter := 0

	for _, pattern := range protectedPatterns {
		working = pattern.ReplaceAllStringFunc(working, func(match string) string {
			key := placeholderKey(counter)
			counter++
			protected[key] = match
			return " " + key + " "
		})
	}

	for _, sw := range stopwords {
		working = strings.ReplaceAll(working, sw, " ")
	}

	var keywords []string
	for _, token := range strings.Fields(working) {
		if original, ok := protected[token]; ok {
			keywords = append(keywords, original)
			continue
		}
		keywords = append(keywords, token)
	}

	if len(keywords) == 0 {
		return []string{normalized}
	}
	return keywords
}

// placeholderKey encodes the counter in letters only. Placeholders must not
// contain digits, or a later pattern in the cascade would match inside them.
func placeholderKey(i int) string {
	var suffix []byte
	for {
		suffix = append([]byte{byte('a' + i%26)}, suffix...)
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	return "__kw" + string(suffix) + "__"
}

// IsMonthDayDate reports whether a keyword is an N月N日 date expression.
func IsMonthDayDate(keyword string) bool {
	return reMonthDayDate.MatchString(keyword)
}

// LooksLikeErrorCode reports whether a keyword has the letters-then-digits
// shape of an error code (optionally separated by - or _).
func LooksLikeErrorCode(keyword string) bool {
	return reErrorCodeExact.MatchString(strings.ToLower(keyword))
}

// IsNumeric reports whether a keyword is purely numeric, optionally with a
// decimal point.
func IsNumeric(keyword string) bool {
	return reNumberExact.MatchString(keyword)
}
