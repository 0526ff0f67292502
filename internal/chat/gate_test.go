package chat

import "testing"

func TestIsNotFoundAnswer(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   bool
	}{
		{
			name:   "standard not found",
			answer: "申し訳ありませんが、該当する内容は見つかりませんでした。",
			want:   true,
		},
		{
			name:   "could not find phrasing",
			answer: "資料の中から見つけられませんでした。",
			want:   true,
		},
		{
			name:   "no information",
			answer: "その件についての情報はありません。",
			want:   true,
		},
		{
			name:   "no mention in notes shape",
			answer: "提供された資料には含まれていません。",
			want:   true,
		},
		{
			name:   "cannot answer",
			answer: "この質問にはお答えできません。",
			want:   true,
		},
		{
			name:   "do not know",
			answer: "わかりませんでした。",
			want:   true,
		},
		{
			name:   "not in notes",
			answer: "ノートには存在しません。",
			want:   true,
		},
		{
			name:   "grounded answer",
			answer: "7月18日の授業ではかけ算の筆算を学びました。",
			want:   false,
		},
		{
			name:   "answer that merely contains wakaru",
			answer: "この問題の解き方がわかりやすく説明されています。",
			want:   false,
		},
		{
			name:   "empty answer",
			answer: "",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFoundAnswer(tt.answer); got != tt.want {
				t.Errorf("IsNotFoundAnswer(%q) = %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}
