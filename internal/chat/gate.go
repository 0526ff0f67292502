package chat

import "regexp"

// The confidence gate inspects the model's own answer for "no information
// found" phrasings. A model given context can still produce what is really a
// not-found response dressed up as an answer; when that happens the answer
// is discarded and the external-knowledge confirmation prompt is shown
// instead, exactly as if retrieval itself had missed.
var notFoundPatterns = []*regexp.Regexp{
	regexp.MustCompile(`見つかりませんでした`),
	regexp.MustCompile(`見つけられませんでした`),
	regexp.MustCompile(`情報(は|が)?(あり|見当たり)ません`),
	regexp.MustCompile(`記載(は|が)?(あり|ございません|見当たり)?ません`),
	regexp.MustCompile(`資料に(は)?含まれて(い)?ません`),
	regexp.MustCompile(`お答えできません`),
	regexp.MustCompile(`回答できません`),
	regexp.MustCompile(`(わかり|分かり)ません(でした)?`),
	regexp.MustCompile(`ノートに(は)?(存在し|あり)ません`),
}

// IsNotFoundAnswer reports whether an answer is really a "not found"
// response despite coming back as free text.
func IsNotFoundAnswer(answer string) bool {
	for _, pattern := range notFoundPatterns {
		if pattern.MatchString(answer) {
			return true
		}
	}
	return false
}
