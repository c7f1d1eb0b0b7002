// Package admin exposes the bulk-indexing and content-event HTTP
// endpoints used by the CMS plugin and operators.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/devansh003/chatbot/internal/indexer"
)

// Pipeline is the batch-indexing surface the handlers drive.
type Pipeline interface {
	StartBatch(ctx context.Context) (int, error)
	ProcessNextBatch(ctx context.Context) (bool, *indexer.BatchStats, error)
	BatchStatus() (*indexer.BatchStats, bool, error)
}

// Notifier receives content-change events from the CMS webhook.
type Notifier interface {
	NotifyChanged(id int64)
	NotifyDeleted(id int64)
}

// Handler serves the admin endpoints.
type Handler struct {
	pipeline Pipeline
	notifier Notifier
	logs     *indexer.LogBuffer
	logger   *slog.Logger
}

// NewHandler creates the admin handler.
func NewHandler(pipeline Pipeline, notifier Notifier, logs *indexer.LogBuffer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{pipeline: pipeline, notifier: notifier, logs: logs, logger: logger}
}

// Register mounts the admin routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/index/start", h.startIndexing)
	mux.HandleFunc("/admin/index/batch", h.processNextBatch)
	mux.HandleFunc("/admin/index/status", h.status)
	mux.HandleFunc("/admin/index/logs", h.indexLogs)
	mux.HandleFunc("/admin/content-event", h.contentEvent)
}

func (h *Handler) startIndexing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	total, err := h.pipeline.StartBatch(r.Context())
	if err != nil {
		h.logger.Error("Start indexing failed", "error", err)
		http.Error(w, "failed to start indexing", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"total": total})
}

func (h *Handler) processNextBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	complete, stats, err := h.pipeline.ProcessNextBatch(r.Context())
	if err != nil {
		if errors.Is(err, indexer.ErrNoBatch) {
			http.Error(w, "no batch in progress", http.StatusConflict)
			return
		}
		h.logger.Error("Batch processing failed", "error", err)
		http.Error(w, "batch processing failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"is_complete": complete, "stats": stats})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	stats, complete, err := h.pipeline.BatchStatus()
	if err != nil {
		if errors.Is(err, indexer.ErrNoBatch) {
			http.Error(w, "no batch in progress", http.StatusNotFound)
			return
		}
		http.Error(w, "status unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"is_complete": complete, "stats": stats})
}

func (h *Handler) indexLogs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"logs": h.logs.Entries()})
}

// contentEventRequest is the webhook body the CMS plugin posts on item
// save or delete.
type contentEventRequest struct {
	Action string `json:"action"` // "changed" or "deleted"
	ID     int64  `json:"id"`
}

func (h *Handler) contentEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req contentEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == 0 {
		http.Error(w, "invalid event", http.StatusBadRequest)
		return
	}
	switch req.Action {
	case "changed":
		h.notifier.NotifyChanged(req.ID)
	case "deleted":
		h.notifier.NotifyDeleted(req.ID)
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Client went away mid-response; nothing to do.
		return
	}
}
