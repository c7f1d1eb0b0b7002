// Package indexer drives the extract -> chunk -> embed -> store pipeline
// across the content corpus, in full runs, single items, or resumable
// batches.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/devansh003/chatbot/internal/chunk"
	"github.com/devansh003/chatbot/internal/config"
	"github.com/devansh003/chatbot/internal/content"
	"github.com/devansh003/chatbot/internal/embedding"
	"github.com/devansh003/chatbot/internal/extract"
	"github.com/devansh003/chatbot/internal/storage"
)

// Store is the persistence surface the pipeline writes to.
type Store interface {
	Insert(ctx context.Context, rec *storage.Record) error
	DeleteBySourceID(ctx context.Context, sourceID int64) error
}

// Embedder turns chunk text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IndexResult aggregates the counts of one indexing run.
type IndexResult struct {
	Total    int           `json:"total"`
	Indexed  int           `json:"indexed"`
	Errors   int           `json:"errors"`
	Chunks   int           `json:"chunks"`
	Duration time.Duration `json:"duration"`
}

// Summary renders the result as the free-text line shown to operators.
func (r *IndexResult) Summary() string {
	return fmt.Sprintf("Indexed %d of %d items (%d chunks, %d errors) in %s",
		r.Indexed, r.Total, r.Chunks, r.Errors, r.Duration.Round(time.Millisecond))
}

// Pipeline orchestrates indexing for a single site.
type Pipeline struct {
	source    content.Source
	extractor *extract.Extractor
	splitter  *chunk.Splitter
	embedder  Embedder
	store     Store
	cfg       *config.Config
	chunkPace *rate.Limiter
	itemPace  *rate.Limiter
	batchPace *rate.Limiter
	logs      *LogBuffer
	logger    *slog.Logger
}

// NewPipeline creates an indexing pipeline with the given collaborators.
func NewPipeline(source content.Source, embedder Embedder, store Store, cfg *config.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:    source,
		extractor: extract.New(),
		splitter:  chunk.NewSplitter(cfg.MaxChunkSize, cfg.ChunkOverlap),
		embedder:  embedder,
		store:     store,
		cfg:       cfg,
		chunkPace: rate.NewLimiter(rate.Every(cfg.ChunkPause), 1),
		itemPace:  rate.NewLimiter(rate.Every(cfg.ItemPause), 1),
		batchPace: rate.NewLimiter(rate.Every(cfg.BatchPause), 1),
		logs:      NewLogBuffer(defaultLogCapacity),
		logger:    logger,
	}
}

// Logs exposes the recent per-item indexing log.
func (p *Pipeline) Logs() *LogBuffer {
	return p.logs
}

// Register subscribes the pipeline to content-change events. Changed
// items are re-indexed when auto-indexing is enabled; deletions always
// cascade to the store.
func (p *Pipeline) Register() {
	p.source.OnContentChanged(func(id int64) {
		if !p.cfg.AutoIndex {
			return
		}
		if _, err := p.IndexItem(context.Background(), id); err != nil {
			p.logger.Warn("Auto-index failed", "source_id", id, "error", err)
		}
	})
	p.source.OnContentDeleted(func(id int64) {
		if err := p.DeleteItem(context.Background(), id); err != nil {
			p.logger.Warn("Cascade delete failed", "source_id", id, "error", err)
		}
	})
}

// IndexAll indexes the whole corpus in one pass. Single-item failures are
// logged and counted, never fatal to the run.
func (p *Pipeline) IndexAll(ctx context.Context) (*IndexResult, error) {
	start := time.Now()

	ids, err := p.source.ListPublishedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published items: %w", err)
	}

	result := &IndexResult{Total: len(ids)}
	p.logger.Info("Starting full index", "items", len(ids))

	for i, id := range ids {
		if err := p.itemPace.Wait(ctx); err != nil {
			return result, err
		}
		chunks, err := p.IndexItem(ctx, id)
		if err != nil {
			result.Errors++
			continue
		}
		result.Indexed++
		result.Chunks += chunks

		if (i+1)%10 == 0 {
			p.logger.Info("Indexing progress", "processed", i+1, "total", len(ids))
		}
	}

	result.Duration = time.Since(start)
	p.logger.Info("Full index complete",
		"indexed", result.Indexed,
		"errors", result.Errors,
		"chunks", result.Chunks,
		"duration", result.Duration,
	)
	return result, nil
}

// IndexItem runs the full pipeline for one content item and returns the
// number of chunks stored. Unpublished items and items with no extractable
// text are skipped with a zero count.
func (p *Pipeline) IndexItem(ctx context.Context, id int64) (int, error) {
	item, err := p.source.Fetch(ctx, id)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			p.logs.Add(id, false, "item not found")
			return 0, err
		}
		p.logs.Add(id, false, "fetch failed: "+err.Error())
		return 0, fmt.Errorf("fetch item %d: %w", id, err)
	}

	if !item.Published() {
		p.logger.Debug("Skipping unpublished item", "source_id", id, "status", item.Status)
		return 0, nil
	}

	doc := p.extractor.Extract(item)
	if doc.Text == "" {
		p.logs.Add(id, true, "no indexable content")
		p.logger.Debug("Nothing to index", "source_id", id)
		return 0, nil
	}

	chunks := p.splitter.Split(doc.Text, doc.Title)

	// Full replace: stale chunks from the previous pass must not survive,
	// regardless of how boundaries shifted.
	if err := p.store.DeleteBySourceID(ctx, id); err != nil {
		p.logs.Add(id, false, "delete failed: "+err.Error())
		return 0, fmt.Errorf("delete chunks for %d: %w", id, err)
	}

	stored := 0
	for _, c := range chunks {
		if len(c.Raw) < p.cfg.MinChunkLength {
			p.logger.Debug("Discarding short chunk", "source_id", id, "chunk", c.Index, "length", len(c.Raw))
			continue
		}
		if err := p.chunkPace.Wait(ctx); err != nil {
			return stored, err
		}
		if err := p.indexChunk(ctx, doc, c); err != nil {
			// A failed chunk is logged and skipped; the rest of the
			// document still indexes.
			p.logger.Warn("Chunk failed", "source_id", id, "chunk", c.Index, "error", err)
			continue
		}
		stored++
	}

	p.logs.Add(id, true, fmt.Sprintf("indexed %d chunks", stored))
	p.logger.Info("Indexed item", "source_id", id, "title", doc.Title, "chunks", stored)
	return stored, nil
}

func (p *Pipeline) indexChunk(ctx context.Context, doc *extract.Document, c chunk.Chunk) error {
	vector, err := p.embedder.Embed(ctx, embedding.Truncate(c.Text))
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	rec := &storage.Record{
		ID:          uuid.New().String(),
		SourceID:    doc.SourceID,
		ChunkIndex:  c.Index,
		Title:       c.Title,
		Content:     c.Raw,
		URL:         doc.URL,
		SiteURL:     p.cfg.SiteURL,
		PublishedAt: doc.PublishedAt,
		Embedding:   vector,
	}
	if err := p.store.Insert(ctx, rec); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// DeleteItem removes every stored chunk of a deleted content item.
func (p *Pipeline) DeleteItem(ctx context.Context, id int64) error {
	if err := p.store.DeleteBySourceID(ctx, id); err != nil {
		return fmt.Errorf("delete chunks for %d: %w", id, err)
	}
	p.logs.Add(id, true, "deleted")
	p.logger.Info("Deleted item chunks", "source_id", id)
	return nil
}
