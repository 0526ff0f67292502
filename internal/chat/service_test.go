package chat_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/mock/gomock"

	"notechat/internal/chat"
	chatmocks "notechat/internal/chat/mocks"
	"notechat/internal/config"
	"notechat/internal/llm"
	"notechat/internal/retrieval"
	"notechat/internal/storage"
	storagemocks "notechat/internal/storage/mocks"
)

const notFoundPrompt = "ノートの中に該当する情報が見つかりませんでした。一般知識に基づいて回答してもよろしいですか？"

type serviceFixture struct {
	embedder *chatmocks.MockEmbedder
	builder  *chatmocks.MockContextBuilder
	answerer *chatmocks.MockAnswerClient
	messages *storagemocks.MockMessageStore
	service  *chat.Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	ctrl := gomock.NewController(t)
	f := &serviceFixture{
		embedder: chatmocks.NewMockEmbedder(ctrl),
		builder:  chatmocks.NewMockContextBuilder(ctrl),
		answerer: chatmocks.NewMockAnswerClient(ctrl),
		messages: storagemocks.NewMockMessageStore(ctrl),
	}
	f.service = chat.NewService(f.embedder, f.builder, f.answerer, f.messages, config.DefaultTuning(), nil)
	return f
}

func TestService_Ask_EmptyQuestion(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Ask(context.Background(), "   ")
	var validationErr *chat.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if validationErr.Field != "question" {
		t.Errorf("Field = %q, want question", validationErr.Field)
	}
}

func TestService_Ask_AnswersWithContext(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	question := "7月18日の授業について教えて"

	f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	f.messages.EXPECT().ListAll(gomock.Any()).Return([]storage.MessageRecord{
		{ID: "u1", Role: chat.RoleUser, Content: question},
	}, nil)
	f.embedder.EXPECT().EmbedQuery(gomock.Any(), question).Return([]float32{0.1, 0.2}, nil)
	f.builder.EXPECT().
		BuildContext(gomock.Any(), question, []float32{0.1, 0.2}, gomock.Any()).
		Return(retrieval.Result{Context: "--- FILE: /n/a.md ---\nかけ算。\n\n", Found: true}, nil)
	f.answerer.EXPECT().
		Answer(gomock.Any(), "--- FILE: /n/a.md ---\nかけ算。\n\n", gomock.Any()).
		Return("7月18日はかけ算の筆算を学びました。", nil)

	msg, err := f.service.Ask(ctx, question)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if msg.Role != chat.RoleModel {
		t.Errorf("Role = %q, want model", msg.Role)
	}
	if msg.Content != "7月18日はかけ算の筆算を学びました。" {
		t.Errorf("Content = %q", msg.Content)
	}
	if msg.RequiresExternalDataConfirmation != nil {
		t.Error("answer message should not carry the confirmation flag")
	}
}

func TestService_Ask_NoContextCreatesConfirmationPrompt(t *testing.T) {
	f := newServiceFixture(t)
	question := "宇宙の年齢は？"

	var prompt *storage.MessageRecord
	gomock.InOrder(
		f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil),
		f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, record *storage.MessageRecord) error {
				prompt = record
				return nil
			}),
	)
	f.embedder.EXPECT().EmbedQuery(gomock.Any(), question).Return([]float32{0.1}, nil)
	f.builder.EXPECT().
		BuildContext(gomock.Any(), question, gomock.Any(), gomock.Any()).
		Return(retrieval.Result{Found: false}, nil)

	msg, err := f.service.Ask(context.Background(), question)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if msg.Role != chat.RoleSystem {
		t.Errorf("Role = %q, want system", msg.Role)
	}
	if msg.Content != notFoundPrompt {
		t.Errorf("Content = %q", msg.Content)
	}
	if msg.OriginalQuestion != question {
		t.Errorf("OriginalQuestion = %q, want the question verbatim", msg.OriginalQuestion)
	}
	if msg.RequiresExternalDataConfirmation == nil || !*msg.RequiresExternalDataConfirmation {
		t.Error("confirmation flag not set to true")
	}
	if prompt == nil || prompt.OriginalQuestion != question {
		t.Errorf("stored prompt = %+v, want the original question persisted", prompt)
	}
}

func TestService_Ask_GateRejectedAnswer(t *testing.T) {
	f := newServiceFixture(t)
	question := "昨日の会議の決定事項は？"

	f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	f.messages.EXPECT().ListAll(gomock.Any()).Return(nil, nil)
	f.embedder.EXPECT().EmbedQuery(gomock.Any(), question).Return([]float32{0.1}, nil)
	f.builder.EXPECT().
		BuildContext(gomock.Any(), question, gomock.Any(), gomock.Any()).
		Return(retrieval.Result{Context: "文脈", Found: true}, nil)
	f.answerer.EXPECT().
		Answer(gomock.Any(), "文脈", gomock.Any()).
		Return("該当する決定事項は見つかりませんでした。", nil)

	msg, err := f.service.Ask(context.Background(), question)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if msg.Role != chat.RoleSystem || msg.Content != notFoundPrompt {
		t.Errorf("got %q/%q, want the confirmation prompt", msg.Role, msg.Content)
	}
}

func TestService_Ask_ProviderFailureBecomesApology(t *testing.T) {
	f := newServiceFixture(t)
	question := "微分の公式は？"

	f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	f.messages.EXPECT().ListAll(gomock.Any()).Return(nil, nil)
	f.embedder.EXPECT().EmbedQuery(gomock.Any(), question).Return([]float32{0.1}, nil)
	f.builder.EXPECT().
		BuildContext(gomock.Any(), question, gomock.Any(), gomock.Any()).
		Return(retrieval.Result{Context: "文脈", Found: true}, nil)
	f.answerer.EXPECT().
		Answer(gomock.Any(), "文脈", gomock.Any()).
		Return("", &llm.ProviderError{Provider: "openai", StatusCode: 500, Message: "upstream down"})

	msg, err := f.service.Ask(context.Background(), question)
	if err != nil {
		t.Fatalf("Ask returned error %v, want the apology as a message", err)
	}
	if msg.Role != chat.RoleModel {
		t.Errorf("Role = %q, want model", msg.Role)
	}
	if !strings.HasPrefix(msg.Content, "申し訳ありません。") {
		t.Errorf("Content = %q, want an apology", msg.Content)
	}
}

func TestService_Ask_EmbeddingFailureBecomesApology(t *testing.T) {
	f := newServiceFixture(t)
	question := "微分の公式は？"

	f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	f.embedder.EXPECT().EmbedQuery(gomock.Any(), question).Return(nil, errors.New("embed failed"))

	msg, err := f.service.Ask(context.Background(), question)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.HasPrefix(msg.Content, "申し訳ありません。") {
		t.Errorf("Content = %q, want an apology", msg.Content)
	}
}

func TestService_Ask_FollowUpReusesContext(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.messages.EXPECT().ListAll(gomock.Any()).Return(nil, nil).AnyTimes()

	first := "7月18日の授業について教えて"
	f.embedder.EXPECT().EmbedQuery(gomock.Any(), first).Return([]float32{0.1}, nil)
	f.builder.EXPECT().
		BuildContext(gomock.Any(), first, gomock.Any(), gomock.Any()).
		Return(retrieval.Result{Context: "前回の文脈", Found: true}, nil)
	f.answerer.EXPECT().
		Answer(gomock.Any(), "前回の文脈", gomock.Any()).
		Return("かけ算の筆算を学びました。", nil)

	if _, err := f.service.Ask(ctx, first); err != nil {
		t.Fatalf("first Ask: %v", err)
	}

	// The follow-up never touches the embedder or the retrieval engine.
	f.answerer.EXPECT().
		Answer(gomock.Any(), "前回の文脈", gomock.Any()).
		Return("筆算は位をそろえて計算します。", nil)

	msg, err := f.service.Ask(ctx, "それについてもっと詳しく")
	if err != nil {
		t.Fatalf("follow-up Ask: %v", err)
	}
	if msg.Content != "筆算は位をそろえて計算します。" {
		t.Errorf("Content = %q", msg.Content)
	}
}

func TestService_Ask_RejectsConcurrentQuestion(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	question := "7月18日の授業について教えて"

	entered := make(chan struct{})
	release := make(chan struct{})

	f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.messages.EXPECT().ListAll(gomock.Any()).Return(nil, nil).AnyTimes()
	f.embedder.EXPECT().EmbedQuery(gomock.Any(), question).Return([]float32{0.1}, nil)
	f.builder.EXPECT().
		BuildContext(gomock.Any(), question, gomock.Any(), gomock.Any()).
		Return(retrieval.Result{Context: "文脈", Found: true}, nil)
	f.answerer.EXPECT().
		Answer(gomock.Any(), "文脈", gomock.Any()).
		DoAndReturn(func(context.Context, string, []llm.Message) (string, error) {
			close(entered)
			<-release
			return "回答です。", nil
		})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := f.service.Ask(ctx, question); err != nil {
			t.Errorf("first Ask: %v", err)
		}
	}()

	<-entered
	if _, err := f.service.Ask(ctx, "別の質問"); !errors.Is(err, chat.ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}
	close(release)
	wg.Wait()
}

func TestService_Approve(t *testing.T) {
	f := newServiceFixture(t)
	pending := true
	records := []storage.MessageRecord{
		{ID: "u1", Role: chat.RoleUser, Content: "宇宙の年齢は？"},
		{ID: "p1", Role: chat.RoleSystem, Content: notFoundPrompt, OriginalQuestion: "宇宙の年齢は？", RequiresConfirmation: &pending},
	}

	f.messages.EXPECT().ListAll(gomock.Any()).Return(records, nil).Times(2)
	f.messages.EXPECT().Delete(gomock.Any(), "p1").Return(nil)
	f.answerer.EXPECT().
		Answer(gomock.Any(), "", gomock.Any()).
		DoAndReturn(func(_ context.Context, contextString string, history []llm.Message) (string, error) {
			for _, m := range history {
				if m.Role == chat.RoleSystem {
					t.Errorf("confirmation prompt leaked into history: %+v", m)
				}
			}
			return "およそ138億年です。", nil
		})
	f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

	msg, err := f.service.Approve(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if msg.Role != chat.RoleModel || msg.Content != "およそ138億年です。" {
		t.Errorf("got %q/%q", msg.Role, msg.Content)
	}
}

func TestService_Approve_StalePromptAnswersOriginalQuestion(t *testing.T) {
	f := newServiceFixture(t)
	pending := true

	// The user asked another question after the prompt was created, so the
	// log no longer ends with the question being approved.
	records := []storage.MessageRecord{
		{ID: "u1", Role: chat.RoleUser, Content: "宇宙の年齢は？"},
		{ID: "p1", Role: chat.RoleSystem, Content: notFoundPrompt, OriginalQuestion: "宇宙の年齢は？", RequiresConfirmation: &pending},
		{ID: "u2", Role: chat.RoleUser, Content: "カレーの作り方は？"},
		{ID: "m2", Role: chat.RoleModel, Content: "カレーは玉ねぎを炒めて作ります。"},
	}

	f.messages.EXPECT().ListAll(gomock.Any()).Return(records, nil).Times(2)
	f.messages.EXPECT().Delete(gomock.Any(), "p1").Return(nil)

	var sent []llm.Message
	f.answerer.EXPECT().
		Answer(gomock.Any(), "", gomock.Any()).
		DoAndReturn(func(_ context.Context, contextString string, history []llm.Message) (string, error) {
			sent = history
			return "およそ138億年です。", nil
		})
	f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

	msg, err := f.service.Approve(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if msg.Content != "およそ138億年です。" {
		t.Errorf("Content = %q", msg.Content)
	}

	if len(sent) == 0 {
		t.Fatal("no history sent to the answer client")
	}
	last := sent[len(sent)-1]
	if last.Role != chat.RoleUser || last.Content != "宇宙の年齢は？" {
		t.Errorf("final turn = %+v, want the approved question as a user message", last)
	}
	if sent[len(sent)-2].Content != "カレーは玉ねぎを炒めて作ります。" {
		t.Errorf("history = %+v, want the later exchange preserved before the approved question", sent)
	}
}

func TestService_Approve_NotAPendingPrompt(t *testing.T) {
	f := newServiceFixture(t)
	records := []storage.MessageRecord{
		{ID: "m1", Role: chat.RoleModel, Content: "普通の回答。"},
	}
	f.messages.EXPECT().ListAll(gomock.Any()).Return(records, nil)

	_, err := f.service.Approve(context.Background(), "m1")
	if !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestService_Approve_UnknownID(t *testing.T) {
	f := newServiceFixture(t)
	f.messages.EXPECT().ListAll(gomock.Any()).Return(nil, nil)

	_, err := f.service.Approve(context.Background(), "missing")
	if !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestService_Decline(t *testing.T) {
	f := newServiceFixture(t)
	pending := true
	records := []storage.MessageRecord{
		{ID: "p1", Role: chat.RoleSystem, Content: notFoundPrompt, OriginalQuestion: "宇宙の年齢は？", RequiresConfirmation: &pending},
	}

	f.messages.EXPECT().ListAll(gomock.Any()).Return(records, nil)
	f.messages.EXPECT().Delete(gomock.Any(), "p1").Return(nil)

	var stored *storage.MessageRecord
	f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, record *storage.MessageRecord) error {
			stored = record
			return nil
		})

	msg, err := f.service.Decline(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if msg.Content != "ノートの中に該当する情報が見つかりませんでした。" {
		t.Errorf("Content = %q", msg.Content)
	}
	if msg.RequiresExternalDataConfirmation == nil || *msg.RequiresExternalDataConfirmation {
		t.Error("declined message must carry the flag set to false")
	}
	if stored == nil || stored.RequiresConfirmation == nil || *stored.RequiresConfirmation {
		t.Errorf("stored record = %+v, want flag persisted as false", stored)
	}
}

func TestService_Decline_RejectsWhileBusy(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	question := "7月18日の授業について教えて"

	entered := make(chan struct{})
	release := make(chan struct{})

	f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.messages.EXPECT().ListAll(gomock.Any()).Return(nil, nil).AnyTimes()
	f.embedder.EXPECT().EmbedQuery(gomock.Any(), question).Return([]float32{0.1}, nil)
	f.builder.EXPECT().
		BuildContext(gomock.Any(), question, gomock.Any(), gomock.Any()).
		Return(retrieval.Result{Context: "文脈", Found: true}, nil)
	f.answerer.EXPECT().
		Answer(gomock.Any(), "文脈", gomock.Any()).
		DoAndReturn(func(context.Context, string, []llm.Message) (string, error) {
			close(entered)
			<-release
			return "回答です。", nil
		})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := f.service.Ask(ctx, question); err != nil {
			t.Errorf("Ask: %v", err)
		}
	}()

	<-entered
	if _, err := f.service.Decline(ctx, "p1"); !errors.Is(err, chat.ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}
	close(release)
	wg.Wait()
}

func TestService_History(t *testing.T) {
	f := newServiceFixture(t)
	records := []storage.MessageRecord{
		{ID: "u1", Role: chat.RoleUser, Content: "質問"},
		{ID: "m1", Role: chat.RoleModel, Content: "回答"},
	}
	f.messages.EXPECT().ListAll(gomock.Any()).Return(records, nil)

	history, err := f.service.History(context.Background())
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 || history[0].ID != "u1" || history[1].ID != "m1" {
		t.Errorf("history = %+v", history)
	}
}

func TestService_Reset(t *testing.T) {
	f := newServiceFixture(t)
	f.messages.EXPECT().DeleteAll(gomock.Any()).Return(nil)

	if err := f.service.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
}
