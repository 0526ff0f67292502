package handlers

import (
	"encoding/json"
	"net/http"

	"notechat/internal/chat"
	"notechat/internal/contextutil"
)

// ConfirmHandler resolves external-knowledge confirmation prompts.
type ConfirmHandler struct {
	chatService chat.ChatService
}

// NewConfirmHandler creates a new ConfirmHandler.
func NewConfirmHandler(chatService chat.ChatService) *ConfirmHandler {
	return &ConfirmHandler{chatService: chatService}
}

// ConfirmRequest represents the HTTP request payload for resolving a prompt.
type ConfirmRequest struct {
	MessageID string `json:"messageId"`
	Approved  bool   `json:"approved"`
}

// ServeHTTP handles confirmation prompt resolutions. Approval answers the
// original question from general knowledge; decline produces a fixed
// not-found message.
func (h *ConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MessageID == "" {
		writeError(w, http.StatusBadRequest, "messageId is required")
		return
	}

	var (
		msg chat.Message
		err error
	)
	if req.Approved {
		msg, err = h.chatService.Approve(ctx, req.MessageID)
	} else {
		msg, err = h.chatService.Decline(ctx, req.MessageID)
	}
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to resolve confirmation prompt")
		return
	}

	writeJSON(ctx, w, http.StatusOK, msg)
}
