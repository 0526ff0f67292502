package indexer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Chunker splits raw document text into bounded, overlapping segments along
// paragraph and sentence boundaries. Sizes are measured in runes so that
// Japanese content is counted the same way as Latin content.
type Chunker struct {
	maxSize int // Max runes per chunk
	overlap int // Overlap runes between forced windows
}

var paragraphSep = regexp.MustCompile(`\n[ \t]*\n+`)

// Sentence terminators covering both Latin and Japanese full-width punctuation.
var sentenceTerminators = map[rune]struct{}{
	'。': {}, '．': {}, '！': {}, '？': {},
	'.': {}, '!': {}, '?': {},
}

// NewChunker creates a chunker. Overlap must stay strictly below maxSize or
// forced splitting would never advance, so invalid values are clamped.
func NewChunker(maxSize, overlap int) *Chunker {
	if maxSize <= 0 {
		maxSize = 700
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize / 4
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}
}

// Split produces an ordered sequence of non-empty trimmed chunks covering the
// document. Empty content produces zero chunks.
func (c *Chunker) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if utf8.RuneCountInString(trimmed) <= c.maxSize {
		return []string{trimmed}
	}

	var chunks []string
	var buf strings.Builder
	bufRunes := 0

	flush := func() {
		if bufRunes == 0 {
			return
		}
		if chunk := strings.TrimSpace(buf.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf.Reset()
		bufRunes = 0
	}

	for _, para := range paragraphSep.Split(trimmed, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		paraRunes := utf8.RuneCountInString(para)

		if paraRunes > c.maxSize {
			// Oversized paragraph: flush the running buffer and fall back
			// to sentence packing.
			flush()
			chunks = append(chunks, c.packSentences(para)...)
			continue
		}

		switch {
		case bufRunes == 0:
			buf.WriteString(para)
			bufRunes = paraRunes
		case bufRunes+2+paraRunes <= c.maxSize:
			buf.WriteString("\n\n")
			buf.WriteString(para)
			bufRunes += 2 + paraRunes
		default:
			flush()
			buf.WriteString(para)
			bufRunes = paraRunes
		}
	}
	flush()

	return chunks
}

// packSentences splits an oversized paragraph on sentence terminators and
// greedily packs the sentences. A single sentence longer than maxSize is
// force-split into fixed overlapping windows.
func (c *Chunker) packSentences(para string) []string {
	var chunks []string
	var buf strings.Builder
	bufRunes := 0

	flush := func() {
		if bufRunes == 0 {
			return
		}
		if chunk := strings.TrimSpace(buf.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf.Reset()
		bufRunes = 0
	}

	for _, sentence := range splitSentences(para) {
		sentRunes := utf8.RuneCountInString(sentence)

		if sentRunes > c.maxSize {
			flush()
			chunks = append(chunks, c.forceSplit(sentence)...)
			continue
		}

		if bufRunes+sentRunes <= c.maxSize {
			buf.WriteString(sentence)
			bufRunes += sentRunes
		} else {
			flush()
			buf.WriteString(sentence)
			bufRunes = sentRunes
		}
	}
	flush()

	return chunks
}

// splitSentences cuts text after each sentence terminator, keeping the
// terminator with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if _, ok := sentenceTerminators[r]; ok {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}

// forceSplit cuts a sentence into windows of maxSize runes, each window
// overlapping the previous one by overlap runes.
func (c *Chunker) forceSplit(sentence string) []string {
	runes := []rune(sentence)
	step := c.maxSize - c.overlap
	if step <= 0 {
		// Guarded by NewChunker, but never loop forever.
		step = c.maxSize
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.maxSize
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}

	return chunks
}
