package storage

// Record is one embedded chunk as persisted in the vector store. Records are
// mutated only through delete-by-source-id followed by re-insert.
type Record struct {
	ID          string // UUID point id
	SourceID    int64  // owning content item
	ChunkIndex  int    // position within the item (0, 1, 2...)
	Title       string // item title, "(Part i/n)" suffixed when chunked
	Content     string // chunk text with title prefix
	URL         string // canonical item URL
	SiteURL     string // namespace: isolates tenants sharing the store
	PublishedAt int64  // unix time, drives the recency fallback
	Embedding   []float32
}

// SearchResult is one ranked row. Similarity is relative, not absolute:
// vector hits carry true similarity in (0, 1]; fallback paths assign
// synthetic descending scores so they never outrank genuine vector hits, and
// forced hits score above the normal ceiling to guarantee they sort first.
type SearchResult struct {
	ID         string
	SourceID   int64
	Title      string
	Content    string
	URL        string
	Similarity float64
}

// Synthetic similarity scores for the non-vector retrieval paths.
const (
	// ContactScore marks the designated contact page as an always-win hit.
	ContactScore = 4.0
	// PhraseScore marks an exact phrase match, above any vector hit.
	PhraseScore = 0.95
	// listingBase seeds the scores of the raw listing fallback.
	listingBase = 0.7
	// keywordBase seeds the scores of keyword matches.
	keywordBase = 0.55
	// scoreStep is the per-row decrement within one synthetic batch.
	scoreStep = 0.05
)

// Scope selects which fields a keyword search matches against.
type Scope int

const (
	ScopeBoth Scope = iota
	ScopeTitle
	ScopeContent
)

// VectorDimension is the embedding size the collection is created with
// (text-embedding-3-small).
const VectorDimension = 1536
