package query

import "testing"

func TestClassify(t *testing.T) {
	e := NewExtractor()
	shortMax := 20

	tests := []struct {
		name      string
		question  string
		wantKind  Kind
		wantShort bool
	}{
		{
			name:      "date question",
			question:  "9月5日の授業について教えてください",
			wantKind:  KindDate,
			wantShort: true,
		},
		{
			name:      "technical question",
			question:  "エラーe501の対処法は？",
			wantKind:  KindTechnical,
			wantShort: true,
		},
		{
			name:      "follow-up by leading pronoun",
			question:  "それについてもっと知りたい",
			wantKind:  KindFollowUp,
			wantShort: true,
		},
		{
			name:      "follow-up by continuation phrase",
			question:  "他に覚えておくべきことはありますか",
			wantKind:  KindFollowUp,
			wantShort: true,
		},
		{
			name:      "general question",
			question:  "微分方程式の解き方を順序立てて説明してください",
			wantKind:  KindGeneral,
			wantShort: false,
		},
		{
			name:      "date wins over follow-up",
			question:  "その7月18日の内容は？",
			wantKind:  KindDate,
			wantShort: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.question, e.Extract(tt.question), shortMax)
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.ShortQuery != tt.wantShort {
				t.Errorf("ShortQuery = %v, want %v", got.ShortQuery, tt.wantShort)
			}
		})
	}
}

func TestClassify_CollectsExpressions(t *testing.T) {
	e := NewExtractor()

	got := Classify("7月18日のe501エラーは？", e.Extract("7月18日のe501エラーは？"), 20)
	if len(got.DateExpressions) != 1 || got.DateExpressions[0] != "7月18日" {
		t.Errorf("DateExpressions = %v, want [7月18日]", got.DateExpressions)
	}
	if len(got.ErrorCodes) != 1 || got.ErrorCodes[0] != "e501" {
		t.Errorf("ErrorCodes = %v, want [e501]", got.ErrorCodes)
	}
	if got.Kind != KindDate {
		t.Errorf("Kind = %v, want KindDate", got.Kind)
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindGeneral, "general"},
		{KindDate, "date"},
		{KindTechnical, "technical"},
		{KindFollowUp, "follow_up"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
