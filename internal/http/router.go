package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"notechat/internal/chat"
	"notechat/internal/handlers"
	"notechat/internal/metrics"
	"notechat/internal/storage"
	"notechat/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService chat.ChatService
	Pipeline    handlers.Indexer
	DocRepo     storage.DocumentStore
	ChunkRepo   storage.ChunkStore
	VectorStore vectorstore.VectorStore
	Collection  string
	Metrics     *metrics.Metrics
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)
	r.Use(deps.Metrics.Middleware)

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	confirmHandler := handlers.NewConfirmHandler(deps.ChatService)
	historyHandler := handlers.NewHistoryHandler(deps.ChatService)
	ingestHandler := handlers.NewIngestHandler(deps.Pipeline, deps.DocRepo, deps.ChunkRepo)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore, deps.Collection)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Method(http.MethodPost, "/chat/confirm", confirmHandler)
		r.Method(http.MethodGet, "/history", historyHandler)
		r.Method(http.MethodDelete, "/history", historyHandler)
		r.Method(http.MethodPost, "/index", ingestHandler)
		r.Method(http.MethodGet, "/index", ingestHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	return r
}
