package handlers

import (
	"encoding/json"
	"net/http"

	"notechat/internal/chat"
	"notechat/internal/contextutil"
)

// ChatHandler handles HTTP requests for asking questions.
type ChatHandler struct {
	chatService chat.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService chat.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatRequest represents the HTTP request payload for a question.
type ChatRequest struct {
	Question string `json:"question"`
}

// ServeHTTP handles HTTP requests for asking questions.
// The response is the message to display: an answer, an external-knowledge
// confirmation prompt, or an apology.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg, err := h.chatService.Ask(ctx, req.Question)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process question")
		return
	}

	writeJSON(ctx, w, http.StatusOK, msg)
}
