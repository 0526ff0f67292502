package handlers

import (
	"net/http"

	"notechat/internal/chat"
	"notechat/internal/contextutil"
)

// HistoryHandler serves and clears the conversation log.
type HistoryHandler struct {
	chatService chat.ChatService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(chatService chat.ChatService) *HistoryHandler {
	return &HistoryHandler{chatService: chatService}
}

// HistoryResponse represents the conversation log payload.
type HistoryResponse struct {
	Messages []chat.Message `json:"messages"`
}

// ServeHTTP returns the conversation log on GET and clears it on DELETE.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	switch r.Method {
	case http.MethodGet:
		messages, err := h.chatService.History(ctx)
		if err != nil {
			handleServiceError(ctx, w, err, "Failed to load conversation log")
			return
		}
		if messages == nil {
			messages = []chat.Message{}
		}
		writeJSON(ctx, w, http.StatusOK, HistoryResponse{Messages: messages})
	case http.MethodDelete:
		if err := h.chatService.Reset(ctx); err != nil {
			handleServiceError(ctx, w, err, "Failed to clear conversation log")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
