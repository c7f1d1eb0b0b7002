package chat

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devansh003/chatbot/internal/storage"
)

type stubSearcher struct {
	results []storage.SearchResult
	calls   int
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ int) ([]storage.SearchResult, error) {
	s.calls++
	return s.results, nil
}

type stubStreamer struct {
	fragments []string
	err       error
}

func (s *stubStreamer) Stream(_ context.Context, _ string, _ []Message, _ string, onDelta func(string) error) error {
	if s.err != nil {
		return s.err
	}
	for _, f := range s.fragments {
		if err := onDelta(f); err != nil {
			return err
		}
	}
	return nil
}

func postChat(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_StreamsSourcesContentAndDone(t *testing.T) {
	searcher := &stubSearcher{results: []storage.SearchResult{
		{SourceID: 1, Title: "Pricing", Content: longContent("audit pricing"), URL: "https://example.com/pricing/"},
	}}
	streamer := &stubStreamer{fragments: []string{"Audits start ", "at $500."}}
	h := NewHandler(searcher, streamer, 3, nil)

	rec := postChat(t, h, `{"message":"what is your pricing"}`)
	body := rec.Body.String()

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	require.Len(t, frames, 4)
	assert.Equal(t, `data: {"type":"sources","sources":[{"title":"Pricing","url":"https://example.com/pricing/"}]}`, frames[0])
	assert.Equal(t, `data: {"type":"content","content":"Audits start "}`, frames[1])
	assert.Equal(t, `data: {"type":"content","content":"at $500."}`, frames[2])
	assert.Equal(t, `data: [DONE]`, frames[3])
}

func TestHandler_EmptyMessageRejectedBeforeSearch(t *testing.T) {
	searcher := &stubSearcher{}
	h := NewHandler(searcher, &stubStreamer{}, 3, nil)

	rec := postChat(t, h, `{"message":""}`)

	assert.Contains(t, rec.Body.String(), `"type":"error"`)
	assert.Zero(t, searcher.calls)
}

func TestHandler_StreamFailureEmitsErrorFrame(t *testing.T) {
	searcher := &stubSearcher{results: []storage.SearchResult{
		{SourceID: 1, Title: "Pricing", Content: longContent("audit pricing"), URL: "https://example.com/pricing/"},
	}}
	streamer := &stubStreamer{err: errors.New("upstream exploded")}
	h := NewHandler(searcher, streamer, 3, nil)

	rec := postChat(t, h, `{"message":"pricing"}`)
	body := rec.Body.String()

	assert.Contains(t, body, `"type":"error"`)
	// The raw upstream error never reaches the client.
	assert.NotContains(t, body, "upstream exploded")
	assert.NotContains(t, body, "[DONE]")
}

func TestHandler_RejectsNonPost(t *testing.T) {
	h := NewHandler(&stubSearcher{}, &stubStreamer{}, 3, nil)
	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEventWriter_FrameFormat(t *testing.T) {
	var buf bytes.Buffer
	ew := NewEventWriter(&buf)
	ew.Sources([]Source{{Title: "T", URL: "https://example.com/"}})
	ew.Content("hi")
	ew.Done()

	want := `data: {"type":"sources","sources":[{"title":"T","url":"https://example.com/"}]}` + "\n\n" +
		`data: {"type":"content","content":"hi"}` + "\n\n" +
		"data: [DONE]\n\n"
	assert.Equal(t, want, buf.String())
}
