package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"notechat/internal/chat"
	chatmocks "notechat/internal/chat/mocks"
	"notechat/internal/indexer"
	"notechat/internal/metrics"
	storagemocks "notechat/internal/storage/mocks"
	vsmocks "notechat/internal/vectorstore/mocks"
)

type stubIndexer struct {
	indexAllCalls int
}

func (s *stubIndexer) IndexAll(ctx context.Context) error {
	s.indexAllCalls++
	return nil
}

func (s *stubIndexer) Stats() indexer.Stats {
	return indexer.Stats{DocsProcessed: 2, ChunksEmbedded: 5}
}

type routerFixture struct {
	chatService *chatmocks.MockChatService
	pipeline    *stubIndexer
	docRepo     *storagemocks.MockDocumentStore
	chunkRepo   *storagemocks.MockChunkStore
	vectorStore *vsmocks.MockVectorStore
	handler     http.Handler
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &routerFixture{
		chatService: chatmocks.NewMockChatService(ctrl),
		pipeline:    &stubIndexer{},
		docRepo:     storagemocks.NewMockDocumentStore(ctrl),
		chunkRepo:   storagemocks.NewMockChunkStore(ctrl),
		vectorStore: vsmocks.NewMockVectorStore(ctrl),
	}
	f.handler = NewRouter(&Deps{
		ChatService: f.chatService,
		Pipeline:    f.pipeline,
		DocRepo:     f.docRepo,
		ChunkRepo:   f.chunkRepo,
		VectorStore: f.vectorStore,
		Collection:  "notes",
		Metrics:     metrics.New(),
	})
	return f
}

func TestRouter_Routes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		setup      func(f *routerFixture)
		wantStatus int
	}{
		{
			name:   "chat dispatches to the chat service",
			method: http.MethodPost,
			path:   "/api/chat",
			body:   `{"question": "7月18日の授業は？"}`,
			setup: func(f *routerFixture) {
				f.chatService.EXPECT().
					Ask(gomock.Any(), "7月18日の授業は？").
					Return(chat.Message{ID: "m1", Role: chat.RoleModel, Content: "回答"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "confirm dispatches to the chat service",
			method: http.MethodPost,
			path:   "/api/chat/confirm",
			body:   `{"messageId": "p1", "approved": true}`,
			setup: func(f *routerFixture) {
				f.chatService.EXPECT().
					Approve(gomock.Any(), "p1").
					Return(chat.Message{ID: "m2", Role: chat.RoleModel, Content: "一般知識の回答"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "history get",
			method: http.MethodGet,
			path:   "/api/history",
			setup: func(f *routerFixture) {
				f.chatService.EXPECT().History(gomock.Any()).Return(nil, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "history delete",
			method: http.MethodDelete,
			path:   "/api/history",
			setup: func(f *routerFixture) {
				f.chatService.EXPECT().Reset(gomock.Any()).Return(nil)
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name:   "index post triggers a reindex",
			method: http.MethodPost,
			path:   "/api/index",
			setup: func(f *routerFixture) {
				f.docRepo.EXPECT().CountAll(gomock.Any()).Return(3, nil)
				f.chunkRepo.EXPECT().CountAll(gomock.Any()).Return(9, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "index get reports coverage",
			method: http.MethodGet,
			path:   "/api/index",
			setup: func(f *routerFixture) {
				f.docRepo.EXPECT().CountAll(gomock.Any()).Return(3, nil)
				f.chunkRepo.EXPECT().CountAll(gomock.Any()).Return(9, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "health checks the vector store",
			method: http.MethodGet,
			path:   "/api/health",
			setup: func(f *routerFixture) {
				f.vectorStore.EXPECT().Count(gomock.Any(), "notes").Return(9, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "metrics endpoint is exposed",
			method:     http.MethodGet,
			path:       "/metrics",
			wantStatus: http.StatusOK,
		},
		{
			name:       "preflight is answered by the middleware",
			method:     http.MethodOptions,
			path:       "/api/chat",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/api/unknown",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			var body *strings.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()

			f.handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s: expected status %d, got %d (body %q)",
					tt.method, tt.path, tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_IndexPostRunsPipeline(t *testing.T) {
	f := newRouterFixture(t)
	f.docRepo.EXPECT().CountAll(gomock.Any()).Return(0, nil)
	f.chunkRepo.EXPECT().CountAll(gomock.Any()).Return(0, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/index", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if f.pipeline.indexAllCalls != 1 {
		t.Errorf("expected one IndexAll call, got %d", f.pipeline.indexAllCalls)
	}
}
