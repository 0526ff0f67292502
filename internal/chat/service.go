package chat

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_collaborators.go -package=mocks notechat/internal/chat Embedder,ContextBuilder,AnswerClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService notechat/internal/chat ChatService

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"notechat/internal/config"
	"notechat/internal/contextutil"
	"notechat/internal/llm"
	"notechat/internal/metrics"
	"notechat/internal/query"
	"notechat/internal/retrieval"
	"notechat/internal/storage"
)

const (
	confirmationPrompt = "ノートの中に該当する情報が見つかりませんでした。一般知識に基づいて回答してもよろしいですか？"
	declinedMessage    = "ノートの中に該当する情報が見つかりませんでした。"
	apologyPrefix      = "申し訳ありません。回答の生成中にエラーが発生しました: "
)

// Embedder converts a question into its embedding vector.
// This interface is defined from the service layer's perspective (consumer-first).
type Embedder interface {
	EmbedQuery(ctx context.Context, question string) ([]float32, error)
}

// ContextBuilder retrieves and ranks chunks for a classified question.
type ContextBuilder interface {
	BuildContext(ctx context.Context, question string, questionVec []float32, class query.Classification) (retrieval.Result, error)
}

// AnswerClient generates an answer from context and conversation history.
type AnswerClient interface {
	Answer(ctx context.Context, contextString string, history []llm.Message) (string, error)
}

// ChatService drives the question/answer conversation over the notes.
type ChatService interface {
	// Ask processes one question end to end and returns the message to
	// display: an answer, a confirmation prompt, or an apology.
	Ask(ctx context.Context, question string) (Message, error)
	// Approve resolves a pending confirmation prompt by answering the
	// original question from general knowledge.
	Approve(ctx context.Context, promptID string) (Message, error)
	// Decline resolves a pending confirmation prompt with a fixed
	// not-found message.
	Decline(ctx context.Context, promptID string) (Message, error)
	// History returns the full conversation log.
	History(ctx context.Context) ([]Message, error)
	// Reset clears the conversation log.
	Reset(ctx context.Context) error
}

// Service implements ChatService. Questions are processed one at a time;
// a question arriving while another is in flight is rejected with ErrBusy.
type Service struct {
	embedder  Embedder
	builder   ContextBuilder
	answerer  AnswerClient
	messages  storage.MessageStore
	extractor *query.Extractor
	cache     *query.Cache
	tuning    config.Tuning
	metrics   *metrics.Metrics

	busy atomic.Bool

	mu          sync.Mutex
	lastContext string
}

// NewService creates the chat service.
func NewService(
	embedder Embedder,
	builder ContextBuilder,
	answerer AnswerClient,
	messages storage.MessageStore,
	tuning config.Tuning,
	m *metrics.Metrics,
) *Service {
	return &Service{
		embedder:  embedder,
		builder:   builder,
		answerer:  answerer,
		messages:  messages,
		extractor: query.NewExtractor(),
		cache:     query.NewCache(time.Duration(tuning.CacheTTLSeconds)*time.Second, tuning.CacheMaxEntries),
		tuning:    tuning,
		metrics:   m,
	}
}

// Ask processes one question. The returned message is what the caller
// displays; provider failures come back as an apologetic model message
// rather than an error.
func (s *Service) Ask(ctx context.Context, question string) (Message, error) {
	logger := contextutil.LoggerFromContext(ctx)

	question = strings.TrimSpace(question)
	if question == "" {
		return Message{}, &ValidationError{Field: "question", Message: "cannot be empty"}
	}

	if !s.busy.CompareAndSwap(false, true) {
		return Message{}, ErrBusy
	}
	defer s.busy.Store(false)

	start := time.Now()

	userMsg := Message{ID: uuid.New().String(), Role: RoleUser, Content: question}
	if err := s.messages.Insert(ctx, toRecord(userMsg)); err != nil {
		return Message{}, WrapError(err, "failed to store question")
	}

	class, ok := s.cache.Get(question)
	if !ok {
		class = query.Classify(question, s.extractor.Extract(question), s.tuning.ShortQueryMaxRunes)
		s.cache.Put(question, class)
	}
	defer func() {
		s.metrics.RecordQuestion(class.Kind.String(), time.Since(start))
	}()

	logger.InfoContext(ctx, "question classified",
		"kind", class.Kind.String(),
		"keywords", len(class.Keywords),
		"short_query", class.ShortQuery,
	)

	contextString, found, errMsg := s.retrieve(ctx, question, class)
	if errMsg != nil {
		return *errMsg, nil
	}

	if !found {
		s.metrics.RecordNoContext()
		return s.appendConfirmationPrompt(ctx, question)
	}

	history, err := s.buildHistory(ctx)
	if err != nil {
		return Message{}, err
	}

	answer, err := s.answerer.Answer(ctx, contextString, history)
	if err != nil {
		logger.ErrorContext(ctx, "failed to generate answer", "error", err)
		return s.appendApology(ctx, err)
	}

	if IsNotFoundAnswer(answer) {
		logger.InfoContext(ctx, "answer rejected by confidence gate")
		s.metrics.RecordGateRejected()
		return s.appendConfirmationPrompt(ctx, question)
	}

	s.mu.Lock()
	s.lastContext = contextString
	s.mu.Unlock()

	modelMsg := Message{ID: uuid.New().String(), Role: RoleModel, Content: answer}
	if err := s.messages.Insert(ctx, toRecord(modelMsg)); err != nil {
		return Message{}, WrapError(err, "failed to store answer")
	}

	logger.InfoContext(ctx, "question answered", "answer_length", len(answer))
	return modelMsg, nil
}

// retrieve produces the grounding context for a question. Follow-up
// questions reuse the previous context instead of re-retrieving. A provider
// failure is converted into an apologetic message, returned as errMsg.
func (s *Service) retrieve(ctx context.Context, question string, class query.Classification) (contextString string, found bool, errMsg *Message) {
	logger := contextutil.LoggerFromContext(ctx)

	if class.Kind == query.KindFollowUp {
		s.mu.Lock()
		last := s.lastContext
		s.mu.Unlock()
		if last != "" {
			logger.InfoContext(ctx, "follow-up question, reusing previous context")
			return last, true, nil
		}
	}

	vec, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed question", "error", err)
		msg, _ := s.appendApology(ctx, err)
		return "", false, &msg
	}

	result, err := s.builder.BuildContext(ctx, question, vec, class)
	if err != nil {
		logger.ErrorContext(ctx, "failed to build context", "error", err)
		msg, _ := s.appendApology(ctx, err)
		return "", false, &msg
	}

	return result.Context, result.Found, nil
}

// Approve resolves a confirmation prompt: the prompt is removed from the
// log and the original question is answered from general knowledge.
func (s *Service) Approve(ctx context.Context, promptID string) (Message, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if !s.busy.CompareAndSwap(false, true) {
		return Message{}, ErrBusy
	}
	defer s.busy.Store(false)

	prompt, err := s.findPrompt(ctx, promptID)
	if err != nil {
		return Message{}, err
	}

	if err := s.messages.Delete(ctx, prompt.ID); err != nil {
		return Message{}, WrapError(err, "failed to remove confirmation prompt")
	}
	s.metrics.RecordApproval("approved")

	history, err := s.buildHistory(ctx)
	if err != nil {
		return Message{}, err
	}
	// The conversation may have moved on since the prompt was created, so
	// the approved question is re-appended unless it is already the final
	// user turn.
	if n := len(history); n == 0 || history[n-1].Role != RoleUser || history[n-1].Content != prompt.OriginalQuestion {
		history = append(history, llm.Message{Role: RoleUser, Content: prompt.OriginalQuestion})
	}

	answer, err := s.answerer.Answer(ctx, "", history)
	if err != nil {
		logger.ErrorContext(ctx, "failed to generate external answer", "error", err)
		return s.appendApology(ctx, err)
	}

	modelMsg := Message{ID: uuid.New().String(), Role: RoleModel, Content: answer}
	if err := s.messages.Insert(ctx, toRecord(modelMsg)); err != nil {
		return Message{}, WrapError(err, "failed to store answer")
	}

	logger.InfoContext(ctx, "external knowledge answer produced", "question", prompt.OriginalQuestion)
	return modelMsg, nil
}

// Decline resolves a confirmation prompt with a fixed not-found message.
// The message carries the confirmation flag so it never enters future
// conversation history.
func (s *Service) Decline(ctx context.Context, promptID string) (Message, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return Message{}, ErrBusy
	}
	defer s.busy.Store(false)

	prompt, err := s.findPrompt(ctx, promptID)
	if err != nil {
		return Message{}, err
	}

	if err := s.messages.Delete(ctx, prompt.ID); err != nil {
		return Message{}, WrapError(err, "failed to remove confirmation prompt")
	}
	s.metrics.RecordApproval("declined")

	declined := false
	modelMsg := Message{
		ID:                               uuid.New().String(),
		Role:                             RoleModel,
		Content:                          declinedMessage,
		RequiresExternalDataConfirmation: &declined,
	}
	if err := s.messages.Insert(ctx, toRecord(modelMsg)); err != nil {
		return Message{}, WrapError(err, "failed to store declined message")
	}

	return modelMsg, nil
}

// History returns the full conversation log.
func (s *Service) History(ctx context.Context) ([]Message, error) {
	records, err := s.messages.ListAll(ctx)
	if err != nil {
		return nil, WrapError(err, "failed to load conversation log")
	}

	result := make([]Message, len(records))
	for i, record := range records {
		result[i] = fromRecord(record)
	}
	return result, nil
}

// Reset clears the conversation log and the cached follow-up context.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.messages.DeleteAll(ctx); err != nil {
		return WrapError(err, "failed to clear conversation log")
	}
	s.mu.Lock()
	s.lastContext = ""
	s.mu.Unlock()
	return nil
}

// findPrompt locates a pending confirmation prompt by ID.
func (s *Service) findPrompt(ctx context.Context, promptID string) (Message, error) {
	records, err := s.messages.ListAll(ctx)
	if err != nil {
		return Message{}, WrapError(err, "failed to load conversation log")
	}

	for _, record := range records {
		if record.ID != promptID {
			continue
		}
		msg := fromRecord(record)
		if msg.Role != RoleSystem || msg.RequiresExternalDataConfirmation == nil || !*msg.RequiresExternalDataConfirmation {
			return Message{}, fmt.Errorf("message %s is not a pending confirmation prompt: %w", promptID, ErrNotFound)
		}
		return msg, nil
	}
	return Message{}, fmt.Errorf("message %s: %w", promptID, ErrNotFound)
}

// buildHistory maps the eligible conversation log to LLM messages. The last
// element is always the user's current question.
func (s *Service) buildHistory(ctx context.Context) ([]llm.Message, error) {
	records, err := s.messages.ListAll(ctx)
	if err != nil {
		return nil, WrapError(err, "failed to load conversation log")
	}

	var history []llm.Message
	for _, record := range records {
		msg := fromRecord(record)
		if !historyEligible(msg) {
			continue
		}
		history = append(history, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	return history, nil
}

// appendConfirmationPrompt stores and returns the external-knowledge
// confirmation prompt, preserving the question verbatim for later approval.
func (s *Service) appendConfirmationPrompt(ctx context.Context, question string) (Message, error) {
	pending := true
	prompt := Message{
		ID:                               uuid.New().String(),
		Role:                             RoleSystem,
		Content:                          confirmationPrompt,
		OriginalQuestion:                 question,
		RequiresExternalDataConfirmation: &pending,
	}
	if err := s.messages.Insert(ctx, toRecord(prompt)); err != nil {
		return Message{}, WrapError(err, "failed to store confirmation prompt")
	}
	return prompt, nil
}

// appendApology converts a collaborator failure into a user-visible chat
// message. The pipeline does not retry.
func (s *Service) appendApology(ctx context.Context, cause error) (Message, error) {
	msg := Message{
		ID:      uuid.New().String(),
		Role:    RoleModel,
		Content: apologyPrefix + cause.Error(),
	}
	if err := s.messages.Insert(ctx, toRecord(msg)); err != nil {
		return Message{}, WrapError(err, "failed to store error message")
	}
	return msg, nil
}
