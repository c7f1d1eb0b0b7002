package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devansh003/chatbot/internal/indexer"
	"github.com/devansh003/chatbot/internal/retriever"
	"github.com/devansh003/chatbot/internal/storage"
)

// snippetLength bounds the passage excerpt returned by search_content.
const snippetLength = 300

// Searcher is the retrieval surface of the search_content tool.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]storage.SearchResult, error)
}

// Store is the storage surface of the fetch and status tools.
type Store interface {
	GetBySourceID(ctx context.Context, sourceID int64) ([]storage.SearchResult, error)
	Count(ctx context.Context) (uint64, error)
}

// BatchReporter reports resumable-batch progress and the indexing log.
type BatchReporter interface {
	BatchStatus() (*indexer.BatchStats, bool, error)
	Logs() *indexer.LogBuffer
}

// makeSearchHandler creates the search_content tool handler. It runs the
// same hybrid pipeline the chat endpoint uses, so tool results match what
// the chatbot would cite.
func makeSearchHandler(searcher Searcher) func(
	context.Context, *mcp.CallToolRequest, SearchContentInput,
) (*mcp.CallToolResult, SearchContentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchContentInput) (
		*mcp.CallToolResult, SearchContentOutput, error,
	) {
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = 5
		}

		results, err := searcher.Search(ctx, input.Query, maxResults)
		if err != nil {
			if errors.Is(err, retriever.ErrEmptyQuery) {
				return nil, SearchContentOutput{
					Results: []ContentResult{},
					Message: "Query must not be empty.",
				}, nil
			}
			return nil, SearchContentOutput{}, fmt.Errorf("search failed: %w", err)
		}

		out := make([]ContentResult, 0, len(results))
		for _, r := range results {
			out = append(out, ContentResult{
				SourceID: r.SourceID,
				Title:    r.Title,
				Snippet:  snippet(r.Content),
				URL:      r.URL,
				Score:    r.Similarity,
			})
		}
		if len(out) == 0 {
			return nil, SearchContentOutput{
				Results: []ContentResult{},
				Message: "No matching content found. Try broader search terms.",
			}, nil
		}
		return nil, SearchContentOutput{Results: out}, nil
	}
}

// makeFetchHandler creates the fetch_content tool handler. Chunks are
// reassembled in index order into one document.
func makeFetchHandler(store Store) func(
	context.Context, *mcp.CallToolRequest, FetchContentInput,
) (*mcp.CallToolResult, FetchContentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input FetchContentInput) (
		*mcp.CallToolResult, FetchContentOutput, error,
	) {
		chunks, err := store.GetBySourceID(ctx, input.SourceID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, FetchContentOutput{Found: false}, nil
			}
			return nil, FetchContentOutput{}, fmt.Errorf("fetch content: %w", err)
		}

		parts := make([]string, 0, len(chunks))
		for _, c := range chunks {
			parts = append(parts, c.Content)
		}
		return nil, FetchContentOutput{
			Content: strings.Join(parts, "\n"),
			Title:   retriever.BaseTitle(chunks[0].Title),
			URL:     chunks[0].URL,
			Found:   true,
		}, nil
	}
}

// makeStatusHandler creates the index_status tool handler.
func makeStatusHandler(store Store, batches BatchReporter) func(
	context.Context, *mcp.CallToolRequest, IndexStatusInput,
) (*mcp.CallToolResult, IndexStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexStatusInput) (
		*mcp.CallToolResult, IndexStatusOutput, error,
	) {
		count, err := store.Count(ctx)
		if err != nil {
			return nil, IndexStatusOutput{}, fmt.Errorf("count chunks: %w", err)
		}

		out := IndexStatusOutput{TotalChunks: int(count)}

		if batches != nil {
			if stats, complete, err := batches.BatchStatus(); err == nil {
				out.BatchInProgress = !complete
				out.BatchProcessed = stats.Processed
				out.BatchTotal = stats.Total
			}
			if entries := batches.Logs().Entries(); len(entries) > 0 {
				out.LastIndexed = entries[len(entries)-1].Time
			}
		}
		return nil, out, nil
	}
}

func snippet(content string) string {
	if len(content) <= snippetLength {
		return content
	}
	return content[:snippetLength] + "..."
}
