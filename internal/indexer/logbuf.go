package indexer

import (
	"sync"
	"time"
)

// defaultLogCapacity bounds the in-memory indexing log.
const defaultLogCapacity = 500

// LogEntry is one per-item record of an indexing attempt.
type LogEntry struct {
	Time     time.Time `json:"time"`
	SourceID int64     `json:"source_id"`
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
}

// LogBuffer keeps the most recent indexing log entries. Older entries are
// dropped once the capacity is reached.
type LogBuffer struct {
	mu      sync.Mutex
	entries []LogEntry
	cap     int
}

// NewLogBuffer creates a buffer holding at most capacity entries.
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = defaultLogCapacity
	}
	return &LogBuffer{cap: capacity}
}

// Add appends an entry, evicting the oldest when full.
func (b *LogBuffer) Add(sourceID int64, success bool, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, LogEntry{
		Time:     time.Now(),
		SourceID: sourceID,
		Success:  success,
		Message:  message,
	})
	if len(b.entries) > b.cap {
		b.entries = b.entries[len(b.entries)-b.cap:]
	}
}

// Entries returns a copy of the buffered entries, oldest first.
func (b *LogBuffer) Entries() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]LogEntry, len(b.entries))
	copy(out, b.entries)
	return out
}
