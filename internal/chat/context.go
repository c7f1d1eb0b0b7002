package chat

import (
	"fmt"
	"strings"

	"github.com/devansh003/chatbot/internal/retriever"
	"github.com/devansh003/chatbot/internal/storage"
)

// Source is a title/url citation sent to the client alongside the answer.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// minContextContentLength filters out stub passages too short to ground
// an answer.
const minContextContentLength = 100

// BuildContext assembles the completion context from ranked results: up
// to maxSources passages with distinct base titles and substantive
// content, concatenated in ranked order, plus the citation list shown to
// the user.
func BuildContext(results []storage.SearchResult, maxSources int) (string, []Source) {
	if maxSources <= 0 {
		maxSources = 3
	}

	var b strings.Builder
	var sources []Source
	seenTitles := make(map[string]bool)
	seenURLs := make(map[string]bool)

	for _, r := range results {
		if len(sources) == maxSources {
			break
		}
		base := retriever.BaseTitle(r.Title)
		if base == "" || seenTitles[base] {
			continue
		}
		if len(r.Content) <= minContextContentLength {
			continue
		}
		seenTitles[base] = true

		fmt.Fprintf(&b, "Title: %s\n%s\n\n", r.Title, r.Content)
		if r.URL != "" && !seenURLs[r.URL] {
			seenURLs[r.URL] = true
			sources = append(sources, Source{Title: r.Title, URL: r.URL})
		}
	}
	return b.String(), sources
}

// BuildSystemPrompt produces the instruction block for the completion
// model. The subject is the narrowed form of the user's query; the model
// is told to answer only from the supplied context.
func BuildSystemPrompt(subject, contextBlock string) string {
	var b strings.Builder
	b.WriteString("You are a helpful AI assistant for this website. Answer questions using only the context below.\n\n")
	if subject != "" {
		fmt.Fprintf(&b, "Focus your answer on %q.\n", subject)
	}
	b.WriteString("- When the context contains pricing information or tables, quote exact figures\n")
	b.WriteString("- If the context does not cover the question, say so politely instead of guessing\n")
	b.WriteString("- Be concise\n\n")
	if contextBlock != "" {
		b.WriteString("Context:\n")
		b.WriteString(contextBlock)
	} else {
		b.WriteString("No relevant content was found for this question. Politely indicate the information is missing.")
	}
	return b.String()
}
