package retriever

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devansh003/chatbot/internal/config"
	"github.com/devansh003/chatbot/internal/storage"
)

// stubStore records every call in order and serves canned results.
type stubStore struct {
	calls     []string
	keyword   map[string][]storage.SearchResult
	phrase    map[string][]storage.SearchResult
	bySource  map[int64][]storage.SearchResult
	similar   []storage.SearchResult
	recent    []storage.SearchResult
	recentAll []storage.SearchResult
}

func (s *stubStore) SearchSimilar(_ context.Context, _ []float32, _ int, _ float64) ([]storage.SearchResult, error) {
	s.calls = append(s.calls, "similar")
	return s.similar, nil
}

func (s *stubStore) SearchKeyword(_ context.Context, term string, _ int, _ storage.Scope) ([]storage.SearchResult, error) {
	s.calls = append(s.calls, "keyword:"+term)
	return s.keyword[term], nil
}

func (s *stubStore) SearchPhrase(_ context.Context, phrase string, _ int) ([]storage.SearchResult, error) {
	s.calls = append(s.calls, "phrase:"+phrase)
	return s.phrase[phrase], nil
}

func (s *stubStore) GetBySourceID(_ context.Context, sourceID int64) ([]storage.SearchResult, error) {
	s.calls = append(s.calls, fmt.Sprintf("source:%d", sourceID))
	return s.bySource[sourceID], nil
}

func (s *stubStore) Recent(_ context.Context, _ int) ([]storage.SearchResult, error) {
	s.calls = append(s.calls, "recent")
	return s.recent, nil
}

func (s *stubStore) RecentAnySite(_ context.Context, _ int) ([]storage.SearchResult, error) {
	s.calls = append(s.calls, "recent-any")
	return s.recentAll, nil
}

type stubEmbedder struct {
	calls int
}

func (e *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.calls++
	return make([]float32, storage.VectorDimension), nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.SiteURL = "https://example.com"
	cfg.ContactPageID = 2401
	return cfg
}

func result(sourceID int64, title, content, url string, score float64) storage.SearchResult {
	return storage.SearchResult{
		SourceID:   sourceID,
		Title:      title,
		Content:    content,
		URL:        url,
		Similarity: score,
	}
}

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		query string
		want  Intent
	}{
		{"How can I reach your support team?", IntentContact},
		{"what does an audit cost", IntentPricing},
		{"how do I contact you about fees", IntentContact},
		{"what services do you offer", IntentServices},
		{"tell me about document remediation", IntentGeneral},
		{"", IntentGeneral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyIntent(tt.query), "query %q", tt.query)
	}
}

func TestParsePricePattern(t *testing.T) {
	p, ok := ParsePricePattern("what is the price of pdf remediation in document services")
	require.True(t, ok)
	assert.Equal(t, "pdf remediation", p.Item)
	assert.Equal(t, "document services", p.Scope)

	p, ok = ParsePricePattern("price for accessibility audits")
	require.True(t, ok)
	assert.Equal(t, "accessibility audits", p.Item)
	assert.Empty(t, p.Scope)

	_, ok = ParsePricePattern("how much does it cost")
	assert.False(t, ok)
}

func TestParseBenefitPattern(t *testing.T) {
	p, ok := ParseBenefitPattern("what are the benefits of manual testing")
	require.True(t, ok)
	assert.Equal(t, "manual testing", p.Item)

	_, ok = ParseBenefitPattern("tell me about manual testing")
	assert.False(t, ok)
}

func TestExtractSubject(t *testing.T) {
	assert.Equal(t, "pricing accessibility audits", ExtractSubject("what is the pricing for accessibility audits?"))
	assert.Equal(t, "remediation", ExtractSubject("remediation"))
	// Only stopwords and short tokens left: fall back to the cleaned text.
	assert.Equal(t, "is it", ExtractSubject("is it?"))
}

func TestTokenizeAndOverlap(t *testing.T) {
	tokens := Tokenize("What is web-accessibility testing?")
	assert.Equal(t, []string{"what", "web", "accessibility", "testing"}, tokens)

	ratio := OverlapRatio(tokens, "Accessibility Testing Services", "")
	assert.InDelta(t, 0.5, ratio, 1e-9)
	assert.Zero(t, OverlapRatio(nil, "title", "content"))
}

func TestSearch_EmptyQueryRejectedBeforeAnyWork(t *testing.T) {
	store := &stubStore{}
	embedder := &stubEmbedder{}
	r := New(store, embedder, testConfig(), nil)

	_, err := r.Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Empty(t, store.calls)
	assert.Zero(t, embedder.calls)
}

func TestSearch_ScopedPricingQueryScopesFirst(t *testing.T) {
	store := &stubStore{
		keyword: map[string][]storage.SearchResult{
			"document services": {
				result(1, "Document Services", "We offer pdf remediation and audits.", "https://example.com/document-services/", 0.55),
				result(2, "Document Services FAQ", "General questions.", "https://example.com/faq/", 0.5),
			},
		},
	}
	r := New(store, &stubEmbedder{}, testConfig(), nil)

	results, err := r.Search(context.Background(), "price of pdf remediation in document services", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// The scope-phrase query must fire before any query for the item.
	require.NotEmpty(t, store.calls)
	assert.Equal(t, "keyword:document services", store.calls[0])
	assert.NotContains(t, store.calls[:1], "keyword:pdf remediation")

	assert.Equal(t, int64(1), results[0].SourceID)
}

func TestSearch_ScopedPricingFallsBackToItem(t *testing.T) {
	store := &stubStore{
		keyword: map[string][]storage.SearchResult{
			"document services": {
				result(1, "Document Services", "Nothing relevant here.", "https://example.com/document-services/", 0.55),
			},
			"pdf remediation": {
				result(2, "PDF Remediation Pricing", "pdf remediation costs per page", "https://example.com/pdf-remediation/", 0.55),
			},
		},
	}
	r := New(store, &stubEmbedder{}, testConfig(), nil)

	results, err := r.Search(context.Background(), "price of pdf remediation in document services", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, int64(2), results[0].SourceID)
}

func TestSearch_PricingScenario(t *testing.T) {
	pricing := result(10, "Accessibility Services Pricing", "Accessibility audits start at $500 per page batch.", "https://example.com/pricing/", 0.55)
	about := result(11, "About Us", "We are a friendly company.", "https://example.com/about/", 0.8)
	store := &stubStore{
		similar: []storage.SearchResult{about},
		keyword: map[string][]storage.SearchResult{
			"pricing": {pricing},
		},
	}
	r := New(store, &stubEmbedder{}, testConfig(), nil)

	results, err := r.Search(context.Background(), "what is your pricing for accessibility audits", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Accessibility Services Pricing", results[0].Title)
}

func TestSearch_NoDuplicateSourceIDs(t *testing.T) {
	page := result(20, "Accessibility Training", "training courses for accessibility teams", "https://example.com/training/", 0.9)
	store := &stubStore{
		similar: []storage.SearchResult{page, page},
		keyword: map[string][]storage.SearchResult{
			"services": {page},
		},
	}
	r := New(store, &stubEmbedder{}, testConfig(), nil)

	results, err := r.Search(context.Background(), "what accessibility services and training do you provide", 10)
	require.NoError(t, err)

	seen := make(map[int64]bool)
	for _, res := range results {
		assert.False(t, seen[res.SourceID], "duplicate source_id %d", res.SourceID)
		seen[res.SourceID] = true
	}
}

func TestSearch_ContactIntentAlwaysWins(t *testing.T) {
	store := &stubStore{
		bySource: map[int64][]storage.SearchResult{
			2401: {
				result(2401, "Contact", "Email us at hello@example.com or call 555-0100.", "https://example.com/contact/", 0),
			},
		},
	}
	embedder := &stubEmbedder{}
	r := New(store, embedder, testConfig(), nil)

	results, err := r.Search(context.Background(), "how do I get in touch", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, int64(2401), results[0].SourceID)
	assert.Equal(t, storage.ContactScore, results[0].Similarity)
	assert.Zero(t, embedder.calls, "contact lookup must not trigger embedding")
}

func TestSearch_BenefitQueryUsesPhraseSearch(t *testing.T) {
	store := &stubStore{
		phrase: map[string][]storage.SearchResult{
			"manual testing": {
				result(30, "Manual Testing", "benefits of manual testing include real user coverage", "https://example.com/manual-testing/", storage.PhraseScore),
			},
		},
	}
	r := New(store, &stubEmbedder{}, testConfig(), nil)

	results, err := r.Search(context.Background(), "what are the benefits of manual testing", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "phrase:manual testing", store.calls[0])
	assert.Equal(t, int64(30), results[0].SourceID)
}

func TestSearch_FallbackToRecentThenPlaceholder(t *testing.T) {
	recent := result(40, "Latest Post", "fresh content", "https://example.com/latest/", 0.7)

	store := &stubStore{recent: []storage.SearchResult{recent}}
	r := New(store, &stubEmbedder{}, testConfig(), nil)
	results, err := r.Search(context.Background(), "zzz unmatched query", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(40), results[0].SourceID)

	// Empty corpus: the retriever still returns something.
	empty := &stubStore{}
	r = New(empty, &stubEmbedder{}, testConfig(), nil)
	results, err = r.Search(context.Background(), "zzz unmatched query", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].Content)
	assert.Equal(t, "https://example.com", results[0].URL)
}

func TestSearch_CapsToLimit(t *testing.T) {
	var similar []storage.SearchResult
	for i := int64(0); i < 8; i++ {
		similar = append(similar, result(100+i,
			fmt.Sprintf("Accessibility Guide %d", i),
			"accessibility reference material", fmt.Sprintf("https://example.com/guide-%d/", i), 0.9))
	}
	store := &stubStore{similar: similar}
	r := New(store, &stubEmbedder{}, testConfig(), nil)

	results, err := r.Search(context.Background(), "accessibility guide", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}
