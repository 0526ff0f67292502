package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"notechat/internal/contextutil"
)

// ProgressFunc is called after each embedding batch completes.
type ProgressFunc func(done, total int)

// EmbeddingsClient converts text to vectors through a hosted embedding API.
// Batches are issued sequentially, each awaited before the next, so peak
// request payload size stays bounded and the caller gets incremental
// progress. Output order always matches input order.
type EmbeddingsClient struct {
	Provider     string
	BaseURL      string
	APIKey       string
	Model        string
	ExpectedSize int // expected vector size for validation
	BatchSize    int

	transport *transport
}

// NewEmbeddingsClient creates a new embeddings client.
// expectedSize is the vector size every returned embedding is validated
// against; mixing dimensions within one session is never valid.
func NewEmbeddingsClient(provider, baseURL, apiKey, model string, expectedSize, batchSize int) *EmbeddingsClient {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &EmbeddingsClient{
		Provider:     provider,
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Model:        model,
		ExpectedSize: expectedSize,
		BatchSize:    batchSize,
		transport:    newTransport(provider),
	}
}

// EmbedTexts generates embeddings for the given texts, batching internally.
// onProgress may be nil.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string, onProgress ProgressFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	logger := contextutil.LoggerFromContext(ctx)

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.BatchSize {
		end := start + c.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embedBatch(ctx, logger, texts[start:end])
		if err != nil {
			return nil, err
		}
		result = append(result, batch...)

		if onProgress != nil {
			onProgress(end, len(texts))
		}
	}

	return result, nil
}

// EmbedQuery embeds a single question.
func (c *EmbeddingsClient) EmbedQuery(ctx context.Context, question string) ([]float32, error) {
	vectors, err := c.EmbedTexts(ctx, []string{question}, nil)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for question")
	}
	return vectors[0], nil
}

func (c *EmbeddingsClient) embedBatch(ctx context.Context, logger *slog.Logger, texts []string) ([][]float32, error) {
	switch c.Provider {
	case ProviderGemini:
		return c.embedBatchGemini(ctx, logger, texts)
	default:
		return c.embedBatchOpenAI(ctx, texts)
	}
}

// embeddingsRequest is the OpenAI-compatible embeddings payload.
type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingData struct {
	Embedding []float64 `json:"embedding"`
}

type embeddingsResponse struct {
	Data []embeddingData `json:"data"`
}

func (c *EmbeddingsClient) embedBatchOpenAI(ctx context.Context, texts []string) ([][]float32, error) {
	url := fmt.Sprintf("%s/v1/embeddings", c.BaseURL)
	headers := map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", c.APIKey),
	}

	raw, err := c.transport.postJSON(ctx, url, headers, embeddingsRequest{
		Model: c.Model,
		Input: texts,
	})
	if err != nil {
		return nil, err
	}

	var resp embeddingsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	result := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vec, err := c.toFloat32(i, data.Embedding)
		if err != nil {
			return nil, err
		}
		result[i] = vec
	}
	return result, nil
}

// geminiEmbedRequest is the batchEmbedContents payload.
type geminiEmbedRequest struct {
	Requests []geminiEmbedItem `json:"requests"`
}

type geminiEmbedItem struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiEmbedResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

// embedBatchGemini embeds a batch through the Gemini REST API. When the
// whole batch fails it falls back to per-item requests and substitutes a
// zero vector for any item that still fails, so one poisoned text does not
// sink the entire ingestion run. Callers tolerate zero vectors as valid but
// uninformative embeddings.
func (c *EmbeddingsClient) embedBatchGemini(ctx context.Context, logger *slog.Logger, texts []string) ([][]float32, error) {
	vectors, err := c.geminiEmbedCall(ctx, texts)
	if err == nil {
		return vectors, nil
	}
	if len(texts) == 1 {
		return nil, err
	}

	logger.WarnContext(ctx, "batch embedding failed, retrying per item", "batch_size", len(texts), "error", err)

	result := make([][]float32, len(texts))
	for i, text := range texts {
		single, err := c.geminiEmbedCall(ctx, []string{text})
		if err != nil {
			logger.WarnContext(ctx, "substituting zero vector for failed embedding", "index", i, "error", err)
			result[i] = make([]float32, c.ExpectedSize)
			continue
		}
		result[i] = single[0]
	}
	return result, nil
}

func (c *EmbeddingsClient) geminiEmbedCall(ctx context.Context, texts []string) ([][]float32, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:batchEmbedContents?key=%s", c.BaseURL, c.Model, c.APIKey)

	req := geminiEmbedRequest{Requests: make([]geminiEmbedItem, len(texts))}
	for i, text := range texts {
		req.Requests[i] = geminiEmbedItem{
			Model:   "models/" + c.Model,
			Content: geminiContent{Parts: []geminiPart{{Text: text}}},
		}
	}

	raw, err := c.transport.postJSON(ctx, url, nil, req)
	if err != nil {
		return nil, err
	}

	var resp geminiEmbedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	result := make([][]float32, len(resp.Embeddings))
	for i, embedding := range resp.Embeddings {
		vec, err := c.toFloat32(i, embedding.Values)
		if err != nil {
			return nil, err
		}
		result[i] = vec
	}
	return result, nil
}

func (c *EmbeddingsClient) toFloat32(index int, values []float64) ([]float32, error) {
	if len(values) != c.ExpectedSize {
		return nil, fmt.Errorf("embedding %d has size %d, expected %d", index, len(values), c.ExpectedSize)
	}
	vec := make([]float32, len(values))
	for i, v := range values {
		vec[i] = float32(v)
	}
	return vec, nil
}
