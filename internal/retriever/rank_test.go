package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devansh003/chatbot/internal/storage"
)

func TestBaseTitle(t *testing.T) {
	assert.Equal(t, "WCAG Checklist", BaseTitle("WCAG Checklist (Part 2/5)"))
	assert.Equal(t, "WCAG Checklist", BaseTitle("WCAG Checklist"))
	assert.Equal(t, "Part 2", BaseTitle("Part 2"))
}

func TestOrderParts_LowerPartFirst(t *testing.T) {
	results := []storage.SearchResult{
		result(1, "WCAG Checklist (Part 3/3)", "", "https://example.com/wcag/", 0.9),
		result(2, "Pricing", "", "https://example.com/pricing/", 0.8),
		result(3, "WCAG Checklist (Part 1/3)", "", "https://example.com/wcag/", 0.7),
	}

	ordered := orderParts(results)
	require.Len(t, ordered, 3)
	assert.Equal(t, "WCAG Checklist (Part 1/3)", ordered[0].Title)
	// Unrelated results keep their ranked position.
	assert.Equal(t, "Pricing", ordered[1].Title)
	assert.Equal(t, "WCAG Checklist (Part 3/3)", ordered[2].Title)
}

func TestSuppressGeneric(t *testing.T) {
	results := []storage.SearchResult{
		result(1, "About Us", "", "https://example.com/company/", 0.9),
		result(2, "Audit Services", "", "https://example.com/resources/", 0.8),
		result(3, "Resource Library", "", "https://example.com/resources/wcag-guide/", 0.7),
	}

	kept := suppressGeneric(results)
	require.Len(t, kept, 1)
	// Deep links under /resources/ survive; only the bare landing page
	// and "about us" titles are dropped.
	assert.Equal(t, int64(3), kept[0].SourceID)
}

func TestPrioritizeSections(t *testing.T) {
	results := []storage.SearchResult{
		result(1, "Company History", "", "https://example.com/blog/company-history/", 0.9),
		result(2, "Team", "", "https://example.com/team/", 0.8),
		result(3, "Training Courses", "", "https://example.com/training/", 0.7),
	}

	ordered := prioritizeSections(results)
	require.Len(t, ordered, 3)
	assert.Equal(t, "Training Courses", ordered[0].Title)
	assert.Equal(t, "Team", ordered[1].Title)
	assert.Equal(t, "Company History", ordered[2].Title)
}

func TestFilterByOverlap_NeverEmptiesThePool(t *testing.T) {
	results := []storage.SearchResult{
		result(1, "Unrelated Page", "nothing in common", "https://example.com/a/", 0.9),
	}
	tokens := []string{"quantum", "chromodynamics"}

	kept := filterByOverlap(results, tokens, 0.15)
	assert.Equal(t, results, kept)
}

func TestDedupeBySource_FirstSeenWins(t *testing.T) {
	results := []storage.SearchResult{
		result(1, "First", "", "https://example.com/1/", 0.9),
		result(1, "Second copy", "", "https://example.com/1/", 0.8),
		result(2, "Other", "", "https://example.com/2/", 0.7),
	}

	kept := dedupeBySource(results)
	require.Len(t, kept, 2)
	assert.Equal(t, "First", kept[0].Title)
}
