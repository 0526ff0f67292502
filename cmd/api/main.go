package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"notechat/internal/chat"
	"notechat/internal/config"
	"notechat/internal/http"
	"notechat/internal/indexer"
	"notechat/internal/llm"
	"notechat/internal/metrics"
	"notechat/internal/notes"
	"notechat/internal/retrieval"
	"notechat/internal/storage"
	"notechat/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	docRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	messageRepo := storage.NewMessageRepo(db)

	ctx := context.Background()

	// Select vector store backend
	var vectorStore vectorstore.VectorStore
	switch cfg.VectorBackend {
	case "qdrant":
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		if err := qdrantStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.VectorSize); err != nil {
			log.Fatalf("Failed to ensure Qdrant collection: %v", err)
		}
		slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.VectorSize)
		vectorStore = qdrantStore
	default:
		vectorStore = vectorstore.NewMemoryStore()
		slog.Info("Using in-memory vector store")
	}

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(
		cfg.Provider,
		cfg.EmbeddingBaseURL,
		cfg.APIKey,
		cfg.EmbeddingModel,
		cfg.VectorSize,
		cfg.RetrievalTuning.EmbedBatchSize,
	)
	testEmbedding, err := embedder.EmbedQuery(ctx, "test")
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbedding) != cfg.VectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.VectorSize, len(testEmbedding))
	}
	slog.Info("Embedding client validated", "provider", cfg.Provider, "vector_size", cfg.VectorSize)

	m := metrics.New()

	// Create indexing pipeline
	scanner := notes.NewScanner(cfg.NotesPath)
	chunker := indexer.NewChunker(cfg.RetrievalTuning.MaxChunkSize, cfg.RetrievalTuning.ChunkOverlap)
	pipeline := indexer.NewPipeline(
		scanner,
		docRepo,
		chunkRepo,
		embedder,
		vectorStore,
		cfg.QdrantCollection,
		chunker,
		m,
	)

	// Create retrieval engine and chat service
	engine := retrieval.NewEngine(vectorStore, cfg.QdrantCollection, chunkRepo, cfg.RetrievalTuning)
	answerer := llm.NewClient(cfg.Provider, cfg.ChatBaseURL, cfg.APIKey, cfg.ChatModel)
	chatService := chat.NewService(embedder, engine, answerer, messageRepo, cfg.RetrievalTuning, m)
	slog.Info("Chat service initialized")

	// Create router with dependencies
	deps := &http.Deps{
		ChatService: chatService,
		Pipeline:    pipeline,
		DocRepo:     docRepo,
		ChunkRepo:   chunkRepo,
		VectorStore: vectorStore,
		Collection:  cfg.QdrantCollection,
		Metrics:     m,
	}
	router := http.NewRouter(deps)

	// Start indexing in background after router is ready
	go func() {
		indexCtx := context.Background()
		slog.Info("Starting background indexing of notes", "path", cfg.NotesPath)
		if err := pipeline.IndexAll(indexCtx); err != nil {
			slog.Error("Indexing completed with errors", "error", err)
		} else {
			slog.Info("Indexing completed successfully")
		}

		if !cfg.WatchNotes {
			return
		}
		watcher, err := notes.NewWatcher()
		if err != nil {
			slog.Error("Failed to start notes watcher", "error", err)
			return
		}
		events, err := watcher.Watch(indexCtx, cfg.NotesPath)
		if err != nil {
			slog.Error("Failed to watch notes folder", "error", err)
			return
		}
		slog.Info("Watching notes folder for changes", "path", cfg.NotesPath)
		pipeline.Watch(indexCtx, events)
	}()

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
