package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"notechat/internal/chat"
	chatmocks "notechat/internal/chat/mocks"
)

func TestConfirmHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		setup      func(*chatmocks.MockChatService)
		wantStatus int
	}{
		{
			name:   "approve",
			method: http.MethodPost,
			body:   `{"messageId":"p1","approved":true}`,
			setup: func(m *chatmocks.MockChatService) {
				m.EXPECT().
					Approve(gomock.Any(), "p1").
					Return(chat.Message{ID: "m1", Role: chat.RoleModel, Content: "一般知識の回答。"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "decline",
			method: http.MethodPost,
			body:   `{"messageId":"p1","approved":false}`,
			setup: func(m *chatmocks.MockChatService) {
				m.EXPECT().
					Decline(gomock.Any(), "p1").
					Return(chat.Message{ID: "m1", Role: chat.RoleModel, Content: "見つかりませんでした。"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing message ID",
			method:     http.MethodPost,
			body:       `{"approved":true}`,
			setup:      func(m *chatmocks.MockChatService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "unknown prompt",
			method: http.MethodPost,
			body:   `{"messageId":"missing","approved":true}`,
			setup: func(m *chatmocks.MockChatService) {
				m.EXPECT().
					Approve(gomock.Any(), "missing").
					Return(chat.Message{}, chat.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "busy",
			method: http.MethodPost,
			body:   `{"messageId":"p1","approved":true}`,
			setup: func(m *chatmocks.MockChatService) {
				m.EXPECT().
					Approve(gomock.Any(), "p1").
					Return(chat.Message{}, chat.ErrBusy)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "method not allowed",
			method:     http.MethodGet,
			body:       "",
			setup:      func(m *chatmocks.MockChatService) {},
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockService := chatmocks.NewMockChatService(ctrl)
			tt.setup(mockService)

			handler := NewConfirmHandler(mockService)
			req := httptest.NewRequest(tt.method, "/api/chat/confirm", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}
