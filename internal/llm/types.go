package llm

import "fmt"

// Supported hosted providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderError is a typed failure from an embedding or chat provider.
// Handlers map it to an upstream-failure status instead of a generic 500.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}
