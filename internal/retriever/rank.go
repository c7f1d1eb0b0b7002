package retriever

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/devansh003/chatbot/internal/storage"
)

var (
	genericTitleRe = regexp.MustCompile(`(?i)about\s+us`)
	genericURLRe   = regexp.MustCompile(`(?i)^https?://[^/]+/(about|about-us|resources|partnerships)/?$`)
	partSuffixRe   = regexp.MustCompile(`\s*\(Part (\d+)/(\d+)\)\s*$`)
	postPathRe     = regexp.MustCompile(`(?i)/(blog|news|post|article)s?/`)
)

var priorityMarkers = []string{
	"services", "training", "compliance", "accessibility",
	"pricing", "resources", "partnership",
}

// BaseTitle strips a "(Part i/n)" suffix from a chunk title.
func BaseTitle(title string) string {
	return strings.TrimSpace(partSuffixRe.ReplaceAllString(title, ""))
}

// partNumber returns the i of a "(Part i/n)" suffix, or 0 when absent.
func partNumber(title string) int {
	m := partSuffixRe.FindStringSubmatch(title)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// suppressGeneric drops boilerplate marketing pages that dilute relevance
// without answering anything specific.
func suppressGeneric(results []storage.SearchResult) []storage.SearchResult {
	kept := results[:0:0]
	for _, r := range results {
		if genericTitleRe.MatchString(r.Title) || genericURLRe.MatchString(r.URL) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// dedupeBySource keeps the first result seen for each source id.
func dedupeBySource(results []storage.SearchResult) []storage.SearchResult {
	seen := make(map[int64]bool, len(results))
	kept := results[:0:0]
	for _, r := range results {
		if seen[r.SourceID] {
			continue
		}
		seen[r.SourceID] = true
		kept = append(kept, r)
	}
	return kept
}

// filterByOverlap keeps results whose title+content share at least the
// threshold fraction of query tokens. When the filter would eliminate
// everything, the unfiltered input is returned instead so over-filtering
// never produces an empty result set.
func filterByOverlap(results []storage.SearchResult, tokens []string, threshold float64) []storage.SearchResult {
	if len(tokens) == 0 {
		return results
	}
	kept := results[:0:0]
	for _, r := range results {
		if OverlapRatio(tokens, r.Title, r.Content) >= threshold {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return results
	}
	return kept
}

// prioritizeSections orders results as priority topics, then plain pages,
// then blog-style posts. Pages outrank posts on the assumption pages are
// canonical reference content.
func prioritizeSections(results []storage.SearchResult) []storage.SearchResult {
	var priority, pages, posts []storage.SearchResult
	for _, r := range results {
		switch {
		case isPriority(r):
			priority = append(priority, r)
		case postPathRe.MatchString(r.URL):
			posts = append(posts, r)
		default:
			pages = append(pages, r)
		}
	}
	out := make([]storage.SearchResult, 0, len(results))
	out = append(out, priority...)
	out = append(out, pages...)
	return append(out, posts...)
}

func isPriority(r storage.SearchResult) bool {
	title := strings.ToLower(r.Title)
	url := strings.ToLower(r.URL)
	for _, marker := range priorityMarkers {
		if strings.Contains(title, marker) || strings.Contains(url, marker) {
			return true
		}
	}
	return false
}

// orderParts forces chunk order among results sharing a base title: the
// members of each title group are sorted by part number among themselves
// while keeping the group's positions in the overall ranking.
func orderParts(results []storage.SearchResult) []storage.SearchResult {
	groups := make(map[string][]int)
	for i, r := range results {
		base := BaseTitle(r.Title)
		groups[base] = append(groups[base], i)
	}
	out := make([]storage.SearchResult, len(results))
	copy(out, results)
	for _, positions := range groups {
		if len(positions) < 2 {
			continue
		}
		members := make([]storage.SearchResult, len(positions))
		for j, pos := range positions {
			members[j] = results[pos]
		}
		sort.SliceStable(members, func(a, b int) bool {
			return partNumber(members[a].Title) < partNumber(members[b].Title)
		})
		for j, pos := range positions {
			out[pos] = members[j]
		}
	}
	return out
}

// capResults truncates to the caller's limit.
func capResults(results []storage.SearchResult, limit int) []storage.SearchResult {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
