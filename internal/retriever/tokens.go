package retriever

import (
	"regexp"
	"strings"
)

var subjectStopwords = map[string]bool{
	"what": true, "is": true, "about": true, "for": true, "how": true,
	"does": true, "a": true, "an": true, "the": true, "in": true,
	"of": true, "on": true, "to": true, "and": true, "me": true,
}

var (
	nonWordRe  = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	splitterRe = regexp.MustCompile(`[\s,\.\?\!\-/]+`)
)

const maxSubjectWords = 4

// ExtractSubject narrows a free-text query to its first few significant
// words, dropping stopwords and very short tokens. Falls back to the
// cleaned query when nothing significant remains.
func ExtractSubject(query string) string {
	cleaned := strings.ToLower(nonWordRe.ReplaceAllString(query, ""))
	var words []string
	for _, w := range strings.Fields(cleaned) {
		if subjectStopwords[w] || len(w) <= 2 {
			continue
		}
		words = append(words, w)
		if len(words) == maxSubjectWords {
			break
		}
	}
	if len(words) == 0 {
		return strings.TrimSpace(cleaned)
	}
	return strings.Join(words, " ")
}

// Tokenize splits a query into lowercase tokens longer than two
// characters, treating hyphens as spaces.
func Tokenize(query string) []string {
	query = strings.ToLower(strings.ReplaceAll(query, "-", " "))
	var tokens []string
	for _, t := range splitterRe.Split(query, -1) {
		if len(t) > 2 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// OverlapRatio computes the fraction of query tokens present in the
// candidate's title or content.
func OverlapRatio(tokens []string, title, content string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	title = strings.ToLower(title)
	content = strings.ToLower(content)
	hits := 0
	for _, t := range tokens {
		if strings.Contains(title, t) || strings.Contains(content, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// containsPhrase reports whether the result's title or content mentions
// the phrase, case-insensitively.
func containsPhrase(title, content, phrase string) bool {
	phrase = strings.ToLower(phrase)
	return strings.Contains(strings.ToLower(title), phrase) ||
		strings.Contains(strings.ToLower(content), phrase)
}
