// Package storage persists embedded content chunks in Qdrant and serves the
// similarity, keyword, fuzzy, and listing queries the retriever layers on
// top of. Every row is scoped to a site namespace so tenants sharing the
// store stay isolated.
package storage

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// Store wraps the Qdrant client with connection management, validation, and
// the namespace-scoped query surface.
type Store struct {
	client     *qdrant.Client
	collection string
	siteURL    string
}

// NewStore creates a Qdrant-backed store with health validation. It fails
// fast with ErrStoreUnreachable if Qdrant does not answer within the retry
// window.
func NewStore(host string, port int, collection, siteURL string) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	s := &Store{
		client:     client,
		collection: collection,
		siteURL:    siteURL,
	}

	if err := s.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	return s, nil
}

func (s *Store) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(b, ctx))
}

// Health performs a single health check against the store.
func (s *Store) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the chunk collection and its payload indexes if
// they do not exist yet. Idempotent.
func (s *Store) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorDimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return s.createPayloadIndexes(ctx)
}

// createPayloadIndexes indexes every filterable field. Keyword search relies
// on the full-text indexes over title and content.
func (s *Store) createPayloadIndexes(ctx context.Context) error {
	fields := []struct {
		name string
		typ  qdrant.FieldType
	}{
		{"site_url", qdrant.FieldType_FieldTypeKeyword},
		{"source_id", qdrant.FieldType_FieldTypeInteger},
		{"chunk_index", qdrant.FieldType_FieldTypeInteger},
		{"published_at", qdrant.FieldType_FieldTypeInteger},
		{"title", qdrant.FieldType_FieldTypeText},
		{"content", qdrant.FieldType_FieldTypeText},
	}

	for _, field := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field.name,
			FieldType:      field.typ.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create index for field %s: %w", field.name, err)
		}
	}
	return nil
}

// Close closes the underlying client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// validate rejects a record before any network call is made: wrong vector
// dimensionality, non-finite values, or missing required fields.
func validate(rec *Record) error {
	if len(rec.Embedding) != VectorDimension {
		return fmt.Errorf("%w: got %d dimensions, expected %d",
			ErrDimensionMismatch, len(rec.Embedding), VectorDimension)
	}
	for _, v := range rec.Embedding {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: embedding contains non-finite values", ErrInvalidRecord)
		}
	}
	if rec.Title == "" || rec.Content == "" || rec.URL == "" {
		return fmt.Errorf("%w: missing required fields (title, content, or url)", ErrInvalidRecord)
	}
	return nil
}

// Insert stores one embedded chunk. The record is validated locally first;
// a validation failure never reaches the network.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	if err := validate(rec); err != nil {
		return err
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(rec.ID),
		Vectors: qdrant.NewVectors(rec.Embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			"source_id":    rec.SourceID,
			"chunk_index":  rec.ChunkIndex,
			"title":        rec.Title,
			"content":      rec.Content,
			"url":          rec.URL,
			"site_url":     rec.SiteURL,
			"published_at": rec.PublishedAt,
		}),
	}
	return s.upsertWithRetry(ctx, []*qdrant.PointStruct{point})
}

func (s *Store) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	}, backoff.WithContext(b, ctx))
}

// DeleteBySourceID removes every chunk of one content item within this
// site's namespace. Called before re-inserting so re-indexing never leaves
// stale or duplicate chunks behind.
func (s *Store) DeleteBySourceID(ctx context.Context, sourceID int64) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatchInt("source_id", sourceID),
				qdrant.NewMatch("site_url", s.siteURL),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("delete chunks for source %d: %w", sourceID, err)
	}
	return nil
}

// DeleteAll removes every chunk in this site's namespace.
func (s *Store) DeleteAll(ctx context.Context) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("site_url", s.siteURL),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("delete all chunks: %w", err)
	}
	return nil
}

// CountBySource returns the number of stored chunks for one content item.
func (s *Store) CountBySource(ctx context.Context, sourceID int64) (uint64, error) {
	return s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatchInt("source_id", sourceID),
				qdrant.NewMatch("site_url", s.siteURL),
			},
		},
		Exact: qdrant.PtrOf(true),
	})
}

// Count returns the number of chunks in this site's namespace.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	return s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("site_url", s.siteURL),
			},
		},
		Exact: qdrant.PtrOf(true),
	})
}

// SearchSimilar performs a vector similarity search scoped to this site,
// returning the top rows above threshold ordered by true similarity.
func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, limit int, threshold float64) ([]SearchResult, error) {
	if len(embedding) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), VectorDimension)
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("site_url", s.siteURL),
			},
		},
		Limit:          qdrant.PtrOf(uint64(limit)),
		ScoreThreshold: qdrant.PtrOf(float32(threshold)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		row := resultFromPayload(point.Id.GetUuid(), point.Payload)
		row.Similarity = float64(point.Score)
		results = append(results, row)
	}
	return results, nil
}

// SearchKeyword matches term against the selected scope, falling back to a
// crudely stemmed variant and then to per-token matching when nothing hits.
// Rows get synthetic descending scores below the vector range and are
// deduplicated by URL, first seen wins.
func (s *Store) SearchKeyword(ctx context.Context, term string, limit int, scope Scope) ([]SearchResult, error) {
	clean := strings.ToLower(strings.TrimSpace(term))
	if clean == "" {
		return nil, nil
	}

	rows, err := s.scrollKeyword(ctx, clean, limit, scope)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		if normalized := NormalizeKeyword(clean); normalized != clean && normalized != "" {
			rows, err = s.scrollKeyword(ctx, normalized, limit, scope)
			if err != nil {
				return nil, err
			}
		}
	}
	if len(rows) == 0 {
		rows, err = s.SearchFuzzy(ctx, clean, limit, scope)
		if err != nil {
			return nil, err
		}
		return rows, nil
	}
	return rows, nil
}

// SearchFuzzy is the loosest keyword tier: each significant token of term is
// matched independently and any hit qualifies.
func (s *Store) SearchFuzzy(ctx context.Context, term string, limit int, scope Scope) ([]SearchResult, error) {
	var should []*qdrant.Condition
	for _, token := range strings.Fields(NormalizeKeyword(term)) {
		for _, field := range scopeFields(scope) {
			should = append(should, qdrant.NewMatchText(field, token))
		}
	}
	if len(should) == 0 {
		return nil, nil
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("site_url", s.siteURL),
			},
			Should: should,
		},
		Limit:       qdrant.PtrOf(uint32(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("fuzzy search: %w", err)
	}
	return syntheticResults(points, keywordBase), nil
}

// SearchPhrase matches an exact phrase in title or content. Hits score
// PhraseScore so they sort above any vector hit.
func (s *Store) SearchPhrase(ctx context.Context, phrase string, limit int) ([]SearchResult, error) {
	clean := strings.TrimSpace(phrase)
	if clean == "" {
		return nil, nil
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("site_url", s.siteURL),
			},
			Should: []*qdrant.Condition{
				qdrant.NewMatchText("title", clean),
				qdrant.NewMatchText("content", clean),
			},
		},
		Limit:       qdrant.PtrOf(uint32(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("phrase search: %w", err)
	}

	results := dedupeByURL(points)
	for i := range results {
		results[i].Similarity = PhraseScore
	}
	return results, nil
}

func (s *Store) scrollKeyword(ctx context.Context, term string, limit int, scope Scope) ([]SearchResult, error) {
	var should []*qdrant.Condition
	for _, field := range scopeFields(scope) {
		should = append(should, qdrant.NewMatchText(field, term))
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("site_url", s.siteURL),
			},
			Should: should,
		},
		Limit:       qdrant.PtrOf(uint32(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return syntheticResults(points, keywordBase), nil
}

// GetBySourceID returns the stored chunks of one content item in chunk
// order. Used for the designated contact page lookup.
func (s *Store) GetBySourceID(ctx context.Context, sourceID int64) ([]SearchResult, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatchInt("source_id", sourceID),
				qdrant.NewMatch("site_url", s.siteURL),
			},
		},
		Limit: qdrant.PtrOf(uint32(32)),
		OrderBy: &qdrant.OrderBy{
			Key:       "chunk_index",
			Direction: qdrant.Direction_Asc.Enum(),
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get source %d: %w", sourceID, err)
	}
	if len(points) == 0 {
		return nil, ErrNotFound
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		results = append(results, resultFromPayload(point.Id.GetUuid(), point.Payload))
	}
	return results, nil
}

// Recent lists the most recently published chunks in this site's namespace
// with synthetic descending scores. The raw listing fallback of last resort.
func (s *Store) Recent(ctx context.Context, limit int) ([]SearchResult, error) {
	return s.recent(ctx, limit, true)
}

// RecentAnySite is Recent without the namespace filter, used only after the
// scoped listing came back empty.
func (s *Store) RecentAnySite(ctx context.Context, limit int) ([]SearchResult, error) {
	return s.recent(ctx, limit, false)
}

func (s *Store) recent(ctx context.Context, limit int, scoped bool) ([]SearchResult, error) {
	filter := &qdrant.Filter{}
	if scoped {
		filter.Must = []*qdrant.Condition{
			qdrant.NewMatch("site_url", s.siteURL),
		}
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint32(limit)),
		OrderBy: &qdrant.OrderBy{
			Key:       "published_at",
			Direction: qdrant.Direction_Desc.Enum(),
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("recent listing: %w", err)
	}
	return syntheticResults(points, listingBase), nil
}

func scopeFields(scope Scope) []string {
	switch scope {
	case ScopeTitle:
		return []string{"title"}
	case ScopeContent:
		return []string{"content"}
	default:
		return []string{"title", "content"}
	}
}

// syntheticResults assigns base - i*step scores to URL-deduplicated rows so
// fallback batches keep a stable internal ordering below genuine vector hits.
func syntheticResults(points []*qdrant.RetrievedPoint, base float64) []SearchResult {
	results := dedupeByURL(points)
	for i := range results {
		results[i].Similarity = base - float64(i)*scoreStep
	}
	return results
}

func dedupeByURL(points []*qdrant.RetrievedPoint) []SearchResult {
	seen := make(map[string]bool, len(points))
	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		row := resultFromPayload(point.Id.GetUuid(), point.Payload)
		if row.URL != "" && seen[row.URL] {
			continue
		}
		seen[row.URL] = true
		results = append(results, row)
	}
	return results
}

func resultFromPayload(id string, payload map[string]*qdrant.Value) SearchResult {
	return SearchResult{
		ID:       id,
		SourceID: payload["source_id"].GetIntegerValue(),
		Title:    payload["title"].GetStringValue(),
		Content:  payload["content"].GetStringValue(),
		URL:      payload["url"].GetStringValue(),
	}
}

var suffixRe = regexp.MustCompile(`(ing|ed|es|s|ly|er|est|tion|ions|ment|ments)$`)

// NormalizeKeyword lowercases, strips punctuation, and crudely stems each
// token (suffix stripping, not real stemming), deduplicating the survivors.
func NormalizeKeyword(keyword string) string {
	var cleaned strings.Builder
	for _, r := range strings.ToLower(keyword) {
		if r == ' ' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			cleaned.WriteRune(r)
		} else {
			cleaned.WriteRune(' ')
		}
	}

	seen := make(map[string]bool)
	var tokens []string
	for _, word := range strings.Fields(cleaned.String()) {
		stem := suffixRe.ReplaceAllString(word, "")
		if len(stem) <= 2 || seen[stem] {
			continue
		}
		seen[stem] = true
		tokens = append(tokens, stem)
	}
	return strings.Join(tokens, " ")
}
