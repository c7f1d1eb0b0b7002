// Package chunk splits extracted documents into overlapping fixed-size
// windows suitable for independent embedding.
package chunk

import "fmt"

// Default window geometry. The overlap is deliberately small: it exists to
// avoid severing a sentence exactly at a window boundary, not to provide
// semantic continuity.
const (
	DefaultMaxSize = 6000
	DefaultOverlap = 30
)

// Chunk is one window of a document's text. Text carries the title prefix so
// downstream consumers keep document context even out of order; Raw is the
// bare window.
type Chunk struct {
	Index int
	Title string // suffixed with "(Part i/n)" when the document splits
	Text  string
	Raw   string
}

// Splitter produces chunks with a fixed window size and overlap.
type Splitter struct {
	maxSize int
	overlap int
}

// NewSplitter creates a Splitter. Non-positive arguments fall back to the
// defaults; an overlap at or above the window size is clamped.
func NewSplitter(maxSize, overlap int) *Splitter {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= maxSize {
		overlap = maxSize / 2
	}
	return &Splitter{maxSize: maxSize, overlap: overlap}
}

// Split returns the ordered chunks of text. Short documents yield a single
// chunk; longer ones slide a window of maxSize with step maxSize-overlap, so
// consecutive windows share overlap characters.
func (s *Splitter) Split(text, title string) []Chunk {
	if text == "" {
		return nil
	}

	prefix := fmt.Sprintf("Title: %s\n\n", title)

	if len(text) <= s.maxSize {
		return []Chunk{{
			Index: 0,
			Title: title,
			Text:  prefix + text,
			Raw:   text,
		}}
	}

	var chunks []Chunk
	step := s.maxSize - s.overlap
	for start := 0; start < len(text); start += step {
		end := start + s.maxSize
		if end > len(text) {
			end = len(text)
		}
		window := text[start:end]
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  prefix + window,
			Raw:   window,
		})
		// The final window reaches the end of the text. Stepping again
		// would emit a tail chunk made purely of overlap.
		if end == len(text) {
			break
		}
	}

	total := len(chunks)
	for i := range chunks {
		chunks[i].Title = PartTitle(title, i, total)
	}
	return chunks
}

// PartTitle suffixes title with its part position when the document splits
// into more than one chunk.
func PartTitle(title string, index, total int) string {
	if total <= 1 {
		return title
	}
	return fmt.Sprintf("%s (Part %d/%d)", title, index+1, total)
}
