package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Provider          string // "openai" or "gemini"
	APIKey            string
	ChatBaseURL       string
	ChatModel         string
	EmbeddingBaseURL  string
	EmbeddingModel    string
	VectorSize        int
	NotesPath         string
	WatchNotes        bool
	DBPath            string
	VectorBackend     string // "memory" or "qdrant"
	QdrantURL         string
	QdrantCollection  string
	APIPort           string
	LogLevel          slog.Level
	LogFormat         string
	RetrievalTuning   Tuning
	TuningPath        string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a .env next to go.mod
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		Provider:         strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		APIKey:           getEnv("LLM_API_KEY", ""),
		ChatBaseURL:      getEnv("CHAT_BASE_URL", ""),
		ChatModel:        getEnv("CHAT_MODEL", ""),
		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", ""),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", ""),
		NotesPath:        getEnv("NOTES_PATH", ""),
		WatchNotes:       getEnv("WATCH_NOTES", "true") == "true",
		DBPath:           getEnv("DB_PATH", "./data/notechat.db"),
		VectorBackend:    strings.ToLower(getEnv("VECTOR_BACKEND", "memory")),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "notes"),
		APIPort:          getEnv("API_PORT", "9000"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		TuningPath:       getEnv("RETRIEVAL_TUNING_PATH", ""),
	}

	switch cfg.Provider {
	case "openai", "gemini":
	default:
		return nil, fmt.Errorf("LLM_PROVIDER must be \"openai\" or \"gemini\", got %q", cfg.Provider)
	}

	// Base URLs and models default per provider.
	defaultBase := "https://api.openai.com"
	defaultChatModel := "gpt-4o-mini"
	defaultEmbedModel := "text-embedding-3-small"
	if cfg.Provider == "gemini" {
		defaultBase = "https://generativelanguage.googleapis.com"
		defaultChatModel = "gemini-2.0-flash"
		defaultEmbedModel = "text-embedding-004"
	}
	if cfg.ChatBaseURL == "" {
		cfg.ChatBaseURL = defaultBase
	}
	if cfg.EmbeddingBaseURL == "" {
		cfg.EmbeddingBaseURL = defaultBase
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = defaultEmbedModel
	}

	// Configuration errors fail fast, before any network call.
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}
	if cfg.NotesPath == "" {
		return nil, fmt.Errorf("NOTES_PATH is required")
	}
	if info, err := os.Stat(cfg.NotesPath); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("NOTES_PATH must be an existing directory: %s", cfg.NotesPath)
	}

	// Vector size must match the embedding model in use for the session.
	// Mixing dimensions across providers is never valid within one session.
	vectorSizeStr := getEnv("EMBEDDING_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be greater than 0")
	}
	cfg.VectorSize = vectorSize

	if cfg.VectorBackend != "memory" && cfg.VectorBackend != "qdrant" {
		return nil, fmt.Errorf("VECTOR_BACKEND must be \"memory\" or \"qdrant\", got %q", cfg.VectorBackend)
	}

	cfg.LogLevel = parseLogLevel(getEnv("LOG_LEVEL", "info"))

	tuning, err := LoadTuning(cfg.TuningPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load retrieval tuning: %w", err)
	}
	cfg.RetrievalTuning = tuning

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
