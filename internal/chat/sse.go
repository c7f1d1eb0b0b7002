package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// EventWriter emits the server-sent-event frames of the chat wire
// protocol. Write failures are ignored: a client that disconnected
// mid-stream must not fault the handler.
type EventWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEventWriter wraps a response writer. When w supports http.Flusher
// every frame is flushed immediately so fragments reach the browser as
// they arrive.
func NewEventWriter(w io.Writer) *EventWriter {
	ew := &EventWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		ew.flusher = f
	}
	return ew
}

type sourcesEvent struct {
	Type    string   `json:"type"`
	Sources []Source `json:"sources"`
}

type contentEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Sources emits the citation list. Sent at most once, before any content.
func (ew *EventWriter) Sources(sources []Source) {
	if len(sources) == 0 {
		return
	}
	ew.frame(sourcesEvent{Type: "sources", Sources: sources})
}

// Content forwards one incremental text fragment.
func (ew *EventWriter) Content(fragment string) {
	ew.frame(contentEvent{Type: "content", Content: fragment})
}

// Error emits a terminal error frame.
func (ew *EventWriter) Error(message string) {
	ew.frame(errorEvent{Type: "error", Message: message})
}

// Done emits the literal end-of-stream marker.
func (ew *EventWriter) Done() {
	fmt.Fprint(ew.w, "data: [DONE]\n\n")
	ew.flush()
}

func (ew *EventWriter) frame(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(ew.w, "data: %s\n\n", data)
	ew.flush()
}

func (ew *EventWriter) flush() {
	if ew.flusher != nil {
		ew.flusher.Flush()
	}
}
