package mcp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devansh003/chatbot/internal/storage"
)

type stubSearcher struct {
	results []storage.SearchResult
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ int) ([]storage.SearchResult, error) {
	return s.results, nil
}

type stubStore struct {
	chunks map[int64][]storage.SearchResult
	count  uint64
}

func (s *stubStore) GetBySourceID(_ context.Context, sourceID int64) ([]storage.SearchResult, error) {
	chunks, ok := s.chunks[sourceID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return chunks, nil
}

func (s *stubStore) Count(_ context.Context) (uint64, error) {
	return s.count, nil
}

func TestSearchContentHandler(t *testing.T) {
	searcher := &stubSearcher{results: []storage.SearchResult{
		{SourceID: 1, Title: "Pricing", Content: "audit pricing details", URL: "https://example.com/pricing/", Similarity: 0.82},
	}}
	handler := makeSearchHandler(searcher)

	_, out, err := handler(context.Background(), nil, SearchContentInput{Query: "pricing"})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, int64(1), out.Results[0].SourceID)
	assert.Equal(t, "audit pricing details", out.Results[0].Snippet)
}

func TestFetchContentHandler_ReassemblesChunks(t *testing.T) {
	store := &stubStore{chunks: map[int64][]storage.SearchResult{
		5: {
			{SourceID: 5, Title: "Guide (Part 1/2)", Content: "first half", URL: "https://example.com/guide/"},
			{SourceID: 5, Title: "Guide (Part 2/2)", Content: "second half", URL: "https://example.com/guide/"},
		},
	}}
	handler := makeFetchHandler(store)

	_, out, err := handler(context.Background(), nil, FetchContentInput{SourceID: 5})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, "Guide", out.Title)
	assert.Equal(t, "first half\nsecond half", out.Content)
}

func TestFetchContentHandler_NotFound(t *testing.T) {
	handler := makeFetchHandler(&stubStore{chunks: map[int64][]storage.SearchResult{}})

	_, out, err := handler(context.Background(), nil, FetchContentInput{SourceID: 99})
	require.NoError(t, err)
	assert.False(t, out.Found)
}

func TestIndexStatusHandler(t *testing.T) {
	handler := makeStatusHandler(&stubStore{count: 120}, nil)

	_, out, err := handler(context.Background(), nil, IndexStatusInput{})
	require.NoError(t, err)
	assert.Equal(t, 120, out.TotalChunks)
	assert.False(t, out.BatchInProgress)
}

func TestNewHTTPHandler_WiresServer(t *testing.T) {
	server := NewServer(&Config{Searcher: &stubSearcher{}, Store: &stubStore{}})
	handler := NewHTTPHandler(server)
	require.NotNil(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.NotEqual(t, http.StatusNotFound, rec.Code)
}

type failingHealth struct{ err error }

func (f failingHealth) Health(_ context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(failingHealth{})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = httptest.NewRecorder()
	NewHealthHandler(failingHealth{err: errors.New("down")})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":"disconnected"`)
}
