package retriever

import (
	"context"
	"log/slog"
	"strings"

	"github.com/devansh003/chatbot/internal/config"
	"github.com/devansh003/chatbot/internal/storage"
)

// Store is the vector-store surface the retriever depends on.
type Store interface {
	SearchSimilar(ctx context.Context, embedding []float32, limit int, threshold float64) ([]storage.SearchResult, error)
	SearchKeyword(ctx context.Context, term string, limit int, scope storage.Scope) ([]storage.SearchResult, error)
	SearchPhrase(ctx context.Context, phrase string, limit int) ([]storage.SearchResult, error)
	GetBySourceID(ctx context.Context, sourceID int64) ([]storage.SearchResult, error)
	Recent(ctx context.Context, limit int) ([]storage.SearchResult, error)
	RecentAnySite(ctx context.Context, limit int) ([]storage.SearchResult, error)
}

// Embedder turns query text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever runs the hybrid search pipeline: intent classification,
// vector search, keyword supplementation, filtering, and ranking.
type Retriever struct {
	store    Store
	embedder Embedder
	cfg      *config.Config
	logger   *slog.Logger
}

// New creates a retriever over the given store and embedder.
func New(store Store, embedder Embedder, cfg *config.Config, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{store: store, embedder: embedder, cfg: cfg, logger: logger}
}

const (
	contextScanLimit = 5
	keywordScanLimit = 10
	supplementLimit  = 6
	servicesLimit    = 8
)

// Search turns a free-text query into a ranked, deduplicated result list.
// It returns ErrEmptyQuery for a blank query; every other failure along
// the pipeline degrades to the next fallback, so a non-empty query always
// yields at least one result.
func (r *Retriever) Search(ctx context.Context, query string, limit int) ([]storage.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = keywordScanLimit
	}

	intent := ClassifyIntent(query)
	subject := ExtractSubject(query)
	r.logger.Debug("Classified query", "intent", intent, "subject", subject)

	var pool []storage.SearchResult
	switch intent {
	case IntentContact:
		pool = r.contactLookup(ctx)
	case IntentPricing:
		pool = r.pricingSearch(ctx, query, subject, limit)
	default:
		// "benefit of X" queries name their subject exactly; an exact
		// phrase hit outranks any vector result.
		if pattern, ok := ParseBenefitPattern(query); ok {
			pool = r.phrase(ctx, pattern.Item, limit)
		}
	}

	// Base vector search. Contact hits carry a score above the vector
	// ceiling so they stay first after merging.
	if intent != IntentContact || len(pool) == 0 {
		pool = append(pool, r.vectorSearch(ctx, query, limit)...)
	}

	// Intent-aware keyword supplementation.
	switch intent {
	case IntentPricing:
		if len(pool) < r.cfg.PricingMinResults {
			pool = append(pool, r.keyword(ctx, "pricing", supplementLimit, storage.ScopeBoth)...)
			pool = append(pool, r.keyword(ctx, "service", supplementLimit, storage.ScopeBoth)...)
		}
	case IntentServices:
		pool = append(pool, r.keyword(ctx, "services", servicesLimit, storage.ScopeBoth)...)
	}

	// Keyword fallback when every search path came up empty.
	if len(pool) == 0 {
		pool = r.keyword(ctx, subject, limit, storage.ScopeBoth)
	}

	pool = suppressGeneric(pool)
	pool = dedupeBySource(pool)
	pool = filterByOverlap(pool, Tokenize(query), r.cfg.TokenOverlapThreshold)
	pool = prioritizeSections(pool)
	pool = orderParts(pool)
	pool = capResults(pool, limit)

	if len(pool) == 0 {
		pool = r.fallback(ctx, limit)
	}
	return pool, nil
}

// contactLookup loads the designated contact page. Its chunks get a score
// above the normal scale so they always sort first.
func (r *Retriever) contactLookup(ctx context.Context) []storage.SearchResult {
	if r.cfg.ContactPageID == 0 {
		return nil
	}
	results, err := r.store.GetBySourceID(ctx, r.cfg.ContactPageID)
	if err != nil {
		r.logger.Warn("Contact page lookup failed", "source_id", r.cfg.ContactPageID, "error", err)
		return nil
	}
	for i := range results {
		results[i].Similarity = storage.ContactScore
	}
	return results
}

// pricingSearch handles "price of X [in Y]" queries. With a scope phrase
// the scope is searched first and filtered down to rows mentioning the
// item; without one the canonical pricing page is tried first. Each step
// falls back to the next when it yields nothing.
func (r *Retriever) pricingSearch(ctx context.Context, query, subject string, limit int) []storage.SearchResult {
	pattern, ok := ParsePricePattern(query)
	if !ok {
		pattern = QueryPattern{Item: subject}
	}

	if pattern.Scope != "" {
		scoped := r.keyword(ctx, pattern.Scope, contextScanLimit, storage.ScopeBoth)
		if len(scoped) > 0 {
			if filtered := filterByItem(scoped, pattern.Item); len(filtered) > 0 {
				return filtered
			}
			return r.itemSearch(ctx, pattern.Item, limit)
		}
		// Scope phrase unknown to the corpus; fall through to the
		// canonical pricing page.
	}

	target := pattern.Item
	if target == "" {
		target = subject
	}
	pricingPage := r.keyword(ctx, r.cfg.PricingPageKeyword, contextScanLimit, storage.ScopeBoth)
	if len(pricingPage) > 0 {
		if filtered := filterByItem(pricingPage, target); len(filtered) > 0 {
			return filtered
		}
		return pricingPage
	}
	return r.itemSearch(ctx, target, limit)
}

// itemSearch runs a direct keyword search for the item, then an embedding
// search when keywords find nothing.
func (r *Retriever) itemSearch(ctx context.Context, item string, limit int) []storage.SearchResult {
	if item == "" {
		return nil
	}
	if results := r.keyword(ctx, item, keywordScanLimit, storage.ScopeBoth); len(results) > 0 {
		return results
	}
	return r.vectorSearch(ctx, item, limit)
}

// filterByItem keeps results whose title or content mention the item.
func filterByItem(results []storage.SearchResult, item string) []storage.SearchResult {
	if item == "" {
		return nil
	}
	kept := results[:0:0]
	for _, res := range results {
		if containsPhrase(res.Title, res.Content, item) {
			kept = append(kept, res)
		}
	}
	return kept
}

func (r *Retriever) vectorSearch(ctx context.Context, text string, limit int) []storage.SearchResult {
	embedding, err := r.embedder.Embed(ctx, text)
	if err != nil {
		r.logger.Warn("Query embedding failed", "error", err)
		return nil
	}
	results, err := r.store.SearchSimilar(ctx, embedding, limit, r.cfg.MatchThreshold)
	if err != nil {
		r.logger.Warn("Vector search failed", "error", err)
		return nil
	}
	return results
}

func (r *Retriever) phrase(ctx context.Context, phrase string, limit int) []storage.SearchResult {
	if strings.TrimSpace(phrase) == "" {
		return nil
	}
	results, err := r.store.SearchPhrase(ctx, phrase, limit)
	if err != nil {
		r.logger.Warn("Phrase search failed", "phrase", phrase, "error", err)
		return nil
	}
	return results
}

func (r *Retriever) keyword(ctx context.Context, term string, limit int, scope storage.Scope) []storage.SearchResult {
	if strings.TrimSpace(term) == "" {
		return nil
	}
	results, err := r.store.SearchKeyword(ctx, term, limit, scope)
	if err != nil {
		r.logger.Warn("Keyword search failed", "term", term, "error", err)
		return nil
	}
	return results
}

// fallback lists recently published items, first site-scoped, then
// unscoped, then a canned placeholder when the corpus is empty.
func (r *Retriever) fallback(ctx context.Context, limit int) []storage.SearchResult {
	if results, err := r.store.Recent(ctx, limit); err == nil && len(results) > 0 {
		return results
	}
	if results, err := r.store.RecentAnySite(ctx, limit); err == nil && len(results) > 0 {
		return results
	}
	r.logger.Warn("No indexed content available, returning placeholder")
	return []storage.SearchResult{{
		Title:      "Welcome",
		Content:    "Ask me about the pages, products, and services published on this site.",
		URL:        r.cfg.SiteURL,
		Similarity: 0.1,
	}}
}
