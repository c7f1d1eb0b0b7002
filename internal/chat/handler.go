package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/devansh003/chatbot/internal/retriever"
	"github.com/devansh003/chatbot/internal/storage"
)

// Searcher is the retrieval surface the chat handler depends on.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]storage.SearchResult, error)
}

// Streamer runs a streaming chat completion.
type Streamer interface {
	Stream(ctx context.Context, system string, history []Message, message string, onDelta func(string) error) error
}

// Request is the chat request body.
type Request struct {
	Message string    `json:"message"`
	History []Message `json:"history"`
}

// searchLimit bounds the ranked list fed into context assembly.
const searchLimit = 5

// Handler streams chat answers over server-sent events.
type Handler struct {
	searcher   Searcher
	streamer   Streamer
	maxSources int
	logger     *slog.Logger
}

// NewHandler creates the chat HTTP handler.
func NewHandler(searcher Searcher, streamer Streamer, maxSources int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxSources <= 0 {
		maxSources = 3
	}
	return &Handler{searcher: searcher, streamer: streamer, maxSources: maxSources, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ew := NewEventWriter(w)

	if req.Message == "" {
		ew.Error("Message is required")
		return
	}

	results, err := h.searcher.Search(r.Context(), req.Message, searchLimit)
	if err != nil {
		h.logger.Warn("Search failed", "error", err)
		ew.Error("Sorry, I encountered an error. Please try again.")
		return
	}

	contextBlock, sources := BuildContext(results, h.maxSources)
	ew.Sources(sources)

	subject := retriever.ExtractSubject(req.Message)
	system := BuildSystemPrompt(subject, contextBlock)

	err = h.streamer.Stream(r.Context(), system, req.History, req.Message, func(delta string) error {
		ew.Content(delta)
		return nil
	})
	if err != nil {
		h.logger.Warn("Completion stream failed", "error", err)
		ew.Error("Sorry, I encountered an error. Please try again.")
		return
	}
	ew.Done()
}
