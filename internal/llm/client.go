package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

const systemPromptGrounded = "あなたはユーザーのノートに基づいて質問に答えるアシスタントです。" +
	"提供された資料の情報だけを使って回答してください。" +
	"資料に答えが含まれていない場合は、情報が見つからなかったことを明確に伝えてください。"

const systemPromptGeneral = "あなたは親切なアシスタントです。一般的な知識に基づいて質問に答えてください。" +
	"回答の冒頭で、ユーザーのノートには記載がなく一般知識に基づく回答であることを断ってください。"

// Client generates answers through a hosted chat LLM.
type Client struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string

	transport *transport
}

// NewClient creates a new answer client.
func NewClient(provider, baseURL, apiKey, model string) *Client {
	return &Client{
		Provider:  provider,
		BaseURL:   baseURL,
		APIKey:    apiKey,
		Model:     model,
		transport: newTransport(provider),
	}
}

// Answer sends the conversation history to the chat model and returns its
// reply. The last history element must be the user's current question; when
// contextString is non-empty it is injected into that final user turn, not
// the system turn. An empty contextString switches to the general-knowledge
// prompt used for approved external answers.
func (c *Client) Answer(ctx context.Context, contextString string, history []Message) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("empty conversation history")
	}

	systemPrompt := systemPromptGrounded
	if contextString == "" {
		systemPrompt = systemPromptGeneral
	}

	messages := make([]Message, len(history))
	copy(messages, history)
	if contextString != "" {
		last := &messages[len(messages)-1]
		last.Content = fmt.Sprintf("以下の資料を参考に質問に答えてください。\n\n%s\n\n質問: %s", contextString, last.Content)
	}

	switch c.Provider {
	case ProviderGemini:
		return c.answerGemini(ctx, systemPrompt, messages)
	default:
		return c.answerOpenAI(ctx, systemPrompt, messages)
	}
}

// chatRequest is the OpenAI-compatible chat completions payload.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) answerOpenAI(ctx context.Context, systemPrompt string, history []Message) (string, error) {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{Role: "system", Content: systemPrompt})
	for _, msg := range history {
		role := msg.Role
		if role == "model" {
			role = "assistant"
		}
		messages = append(messages, Message{Role: role, Content: msg.Content})
	}

	url := fmt.Sprintf("%s/v1/chat/completions", c.BaseURL)
	headers := map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", c.APIKey),
	}

	raw, err := c.transport.postJSON(ctx, url, headers, chatRequest{
		Model:    c.Model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// geminiChatRequest is the generateContent payload.
type geminiChatRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiChatResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *Client) answerGemini(ctx context.Context, systemPrompt string, history []Message) (string, error) {
	contents := make([]geminiContent, 0, len(history))
	for _, msg := range history {
		contents = append(contents, geminiContent{
			Role:  msg.Role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.BaseURL, c.Model, c.APIKey)

	raw, err := c.transport.postJSON(ctx, url, nil, geminiChatRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          contents,
	})
	if err != nil {
		return "", err
	}

	var resp geminiChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
