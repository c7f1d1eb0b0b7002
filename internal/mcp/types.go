// Package mcp exposes the site's indexed content to MCP clients: semantic
// search, full-document fetch, and index status tools.
package mcp

import "time"

// SearchContentInput defines the input parameters for the search_content
// tool.
type SearchContentInput struct {
	// Query is the free-text search query.
	Query string `json:"query" jsonschema:"The search query for finding relevant site content"`
	// MaxResults is the maximum number of passages to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"Maximum number of passages to return"`
}

// SearchContentOutput contains the search results.
type SearchContentOutput struct {
	// Results is the ranked list of matching passages.
	Results []ContentResult `json:"results"`
	// Message provides informational context (e.g. "No matching content").
	Message string `json:"message,omitempty"`
}

// ContentResult is a single passage match.
type ContentResult struct {
	// SourceID is the CMS id of the content item.
	SourceID int64 `json:"source_id"`
	// Title is the chunk title, including any part suffix.
	Title string `json:"title"`
	// Snippet is a bounded excerpt of the passage text.
	Snippet string `json:"snippet"`
	// URL is the canonical page URL.
	URL string `json:"url"`
	// Score is the relevance score. Keyword and fallback hits carry
	// synthetic scores below genuine vector similarities.
	Score float64 `json:"score"`
}

// FetchContentInput defines the input parameters for the fetch_content
// tool.
type FetchContentInput struct {
	// SourceID is the CMS id of the content item to retrieve.
	SourceID int64 `json:"source_id" jsonschema:"The CMS id of the content item to retrieve"`
}

// FetchContentOutput contains the reassembled document.
type FetchContentOutput struct {
	// Content is the full text, chunks concatenated in order.
	Content string `json:"content"`
	// Title is the document's base title.
	Title string `json:"title"`
	// URL is the canonical page URL.
	URL string `json:"url"`
	// Found indicates whether the item exists in the index.
	Found bool `json:"found"`
}

// IndexStatusInput defines the input for the index_status tool. No
// parameters are required.
type IndexStatusInput struct{}

// IndexStatusOutput reports the state of the content index.
type IndexStatusOutput struct {
	// TotalChunks is the number of stored passages for this site.
	TotalChunks int `json:"total_chunks"`
	// BatchInProgress reports whether a resumable batch run is pending.
	BatchInProgress bool `json:"batch_in_progress"`
	// BatchProcessed and BatchTotal describe the pending batch, when any.
	BatchProcessed int `json:"batch_processed,omitempty"`
	BatchTotal     int `json:"batch_total,omitempty"`
	// LastIndexed is the time of the most recent indexing log entry.
	LastIndexed time.Time `json:"last_indexed"`
}
