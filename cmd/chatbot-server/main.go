// Package main provides the chatbot HTTP server: SSE chat, admin
// indexing endpoints, health check, and the MCP tool surface.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/devansh003/chatbot/internal/admin"
	"github.com/devansh003/chatbot/internal/chat"
	"github.com/devansh003/chatbot/internal/config"
	"github.com/devansh003/chatbot/internal/content"
	"github.com/devansh003/chatbot/internal/embedding"
	"github.com/devansh003/chatbot/internal/indexer"
	mcpserver "github.com/devansh003/chatbot/internal/mcp"
	"github.com/devansh003/chatbot/internal/retriever"
	"github.com/devansh003/chatbot/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Create context that cancels on SIGTERM/SIGINT.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Storage.
	store, err := storage.NewStore(cfg.QdrantHost, cfg.QdrantPort, cfg.Collection, cfg.SiteURL)
	if err != nil {
		log.Fatalf("failed to connect to Qdrant: %v", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("failed to ensure collection: %v", err)
	}

	// Embedding and completion clients.
	client, err := embedding.NewClient(cfg)
	if err != nil {
		log.Fatalf("failed to create OpenAI client: %v", err)
	}
	embedder := embedding.NewEmbedder(client, cfg.EmbeddingModel)

	// Content source and indexing pipeline, subscribed to change events.
	source := content.NewWordPress(cfg.CMSBaseURL)
	pipeline := indexer.NewPipeline(source, embedder, store, cfg, logger)
	pipeline.Register()

	// Retrieval and chat.
	search := retriever.New(store, embedder, cfg, logger)
	completer := chat.NewCompleter(client, cfg)
	chatHandler := chat.NewHandler(search, completer, cfg.MaxSources, logger)

	// HTTP surface.
	mux := http.NewServeMux()
	mux.HandleFunc("/", mcpserver.NewLandingHandler())
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(store))
	mux.Handle("/chat", chatHandler)

	adminHandler := admin.NewHandler(pipeline, &source.Events, pipeline.Logs(), logger)
	adminHandler.Register(mux)

	server := mcpserver.NewServer(&mcpserver.Config{
		Searcher: search,
		Store:    store,
		Batches:  pipeline,
	})
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server))

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	logger.Info("Starting server", "addr", cfg.ListenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}
