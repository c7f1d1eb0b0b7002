package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devansh003/chatbot/internal/indexer"
)

type stubPipeline struct {
	total    int
	complete bool
	stats    indexer.BatchStats
	err      error
}

func (s *stubPipeline) StartBatch(_ context.Context) (int, error) {
	return s.total, s.err
}

func (s *stubPipeline) ProcessNextBatch(_ context.Context) (bool, *indexer.BatchStats, error) {
	if s.err != nil {
		return false, nil, s.err
	}
	return s.complete, &s.stats, nil
}

func (s *stubPipeline) BatchStatus() (*indexer.BatchStats, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	return &s.stats, s.complete, nil
}

type stubNotifier struct {
	changed []int64
	deleted []int64
}

func (s *stubNotifier) NotifyChanged(id int64) { s.changed = append(s.changed, id) }
func (s *stubNotifier) NotifyDeleted(id int64) { s.deleted = append(s.deleted, id) }

func newTestMux(pipeline Pipeline, notifier Notifier) *http.ServeMux {
	h := NewHandler(pipeline, notifier, indexer.NewLogBuffer(10), nil)
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestStartIndexing(t *testing.T) {
	mux := newTestMux(&stubPipeline{total: 42}, &stubNotifier{})

	rec := do(t, mux, http.MethodPost, "/admin/index/start", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 42, resp["total"])
}

func TestProcessNextBatch(t *testing.T) {
	pipeline := &stubPipeline{
		complete: false,
		stats:    indexer.BatchStats{Total: 10, Processed: 4, Indexed: 3, Errors: 1, Chunks: 7},
	}
	mux := newTestMux(pipeline, &stubNotifier{})

	rec := do(t, mux, http.MethodPost, "/admin/index/batch", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		IsComplete bool               `json:"is_complete"`
		Stats      indexer.BatchStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.IsComplete)
	assert.Equal(t, 4, resp.Stats.Processed)
	assert.Equal(t, 7, resp.Stats.Chunks)
}

func TestProcessNextBatch_NoBatch(t *testing.T) {
	mux := newTestMux(&stubPipeline{err: indexer.ErrNoBatch}, &stubNotifier{})
	rec := do(t, mux, http.MethodPost, "/admin/index/batch", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestContentEvent(t *testing.T) {
	notifier := &stubNotifier{}
	mux := newTestMux(&stubPipeline{}, notifier)

	rec := do(t, mux, http.MethodPost, "/admin/content-event", `{"action":"changed","id":7}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{7}, notifier.changed)

	rec = do(t, mux, http.MethodPost, "/admin/content-event", `{"action":"deleted","id":8}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{8}, notifier.deleted)

	rec = do(t, mux, http.MethodPost, "/admin/content-event", `{"action":"renamed","id":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodPost, "/admin/content-event", `{"action":"changed"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartIndexing_RejectsGet(t *testing.T) {
	mux := newTestMux(&stubPipeline{}, &stubNotifier{})
	rec := do(t, mux, http.MethodGet, "/admin/index/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
