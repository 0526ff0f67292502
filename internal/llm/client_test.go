package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func openAIAnswer(content string) string {
	return `{"choices":[{"message":{"role":"assistant","content":"` + content + `"}}]}`
}

func TestClient_Answer_InjectsContextIntoLastUserTurn(t *testing.T) {
	var received chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openAIAnswer("かけ算を学びました。")))
	}))
	defer server.Close()

	client := NewClient(ProviderOpenAI, server.URL, "test-key", "chat-model")
	history := []Message{
		{Role: "user", Content: "前の質問"},
		{Role: "model", Content: "前の回答"},
		{Role: "user", Content: "7月18日の授業は？"},
	}

	answer, err := client.Answer(context.Background(), "--- FILE: /n/a.md ---\nかけ算。\n\n", history)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer != "かけ算を学びました。" {
		t.Errorf("answer = %q", answer)
	}

	if len(received.Messages) != 4 {
		t.Fatalf("sent %d messages, want system + 3 history", len(received.Messages))
	}
	if received.Messages[0].Role != "system" {
		t.Errorf("first message role = %q, want system", received.Messages[0].Role)
	}
	if strings.Contains(received.Messages[0].Content, "一般的な知識") {
		t.Error("grounded prompt expected, got the general-knowledge prompt")
	}
	if received.Messages[2].Role != "assistant" {
		t.Errorf("model role not mapped to assistant: %q", received.Messages[2].Role)
	}

	last := received.Messages[3]
	if !strings.Contains(last.Content, "かけ算。") {
		t.Errorf("context not injected into the final user turn: %q", last.Content)
	}
	if !strings.Contains(last.Content, "質問: 7月18日の授業は？") {
		t.Errorf("original question missing from the final turn: %q", last.Content)
	}
	// Earlier turns stay untouched.
	if received.Messages[1].Content != "前の質問" {
		t.Errorf("earlier turn modified: %q", received.Messages[1].Content)
	}
}

func TestClient_Answer_EmptyContextUsesGeneralPrompt(t *testing.T) {
	var received chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openAIAnswer("一般知識の回答です。")))
	}))
	defer server.Close()

	client := NewClient(ProviderOpenAI, server.URL, "test-key", "chat-model")
	history := []Message{{Role: "user", Content: "宇宙の年齢は？"}}

	if _, err := client.Answer(context.Background(), "", history); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !strings.Contains(received.Messages[0].Content, "一般的な知識") {
		t.Errorf("general prompt expected, got %q", received.Messages[0].Content)
	}
	if received.Messages[1].Content != "宇宙の年齢は？" {
		t.Errorf("question modified without context: %q", received.Messages[1].Content)
	}
}

func TestClient_Answer_EmptyHistory(t *testing.T) {
	client := NewClient(ProviderOpenAI, "http://localhost:0", "test-key", "chat-model")
	if _, err := client.Answer(context.Background(), "文脈", nil); err == nil {
		t.Fatal("expected error for empty history")
	}
}

func TestClient_Answer_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer server.Close()

	client := NewClient(ProviderOpenAI, server.URL, "bad-key", "chat-model")
	_, err := client.Answer(context.Background(), "文脈", []Message{{Role: "user", Content: "質問"}})

	perr, ok := err.(*ProviderError)
	if !ok {
		t.Fatalf("err = %T (%v), want *ProviderError", err, err)
	}
	if perr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", perr.StatusCode)
	}
}

func TestClient_Answer_Gemini(t *testing.T) {
	var received geminiChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&received)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"回答です。"}]}}]}`))
	}))
	defer server.Close()

	client := NewClient(ProviderGemini, server.URL, "test-key", "gemini-model")
	history := []Message{
		{Role: "user", Content: "前の質問"},
		{Role: "model", Content: "前の回答"},
		{Role: "user", Content: "今の質問"},
	}

	answer, err := client.Answer(context.Background(), "文脈", history)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer != "回答です。" {
		t.Errorf("answer = %q", answer)
	}
	if received.SystemInstruction == nil || len(received.SystemInstruction.Parts) == 0 {
		t.Fatal("system instruction missing")
	}
	if len(received.Contents) != 3 {
		t.Errorf("sent %d contents, want 3", len(received.Contents))
	}
	if received.Contents[1].Role != "model" {
		t.Errorf("model role = %q, want model kept for Gemini", received.Contents[1].Role)
	}
}
