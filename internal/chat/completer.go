package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/devansh003/chatbot/internal/config"
	"github.com/devansh003/chatbot/internal/embedding"
)

// Message is one turn of the conversation history as sent by the client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ErrEmptyCompletion is returned when the provider answers with no
// choices.
var ErrEmptyCompletion = errors.New("chat: completion returned no choices")

// Completer runs chat completions against the OpenAI API.
type Completer struct {
	client        *openai.Client
	model         string
	temperature   float64
	maxTokens     int
	historyWindow int
}

// NewCompleter creates a completer using the shared OpenAI client.
func NewCompleter(client *embedding.Client, cfg *config.Config) *Completer {
	return &Completer{
		client:        client.Client(),
		model:         cfg.ChatModel,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		historyWindow: cfg.HistoryWindow,
	}
}

// Stream runs a streaming completion, invoking onDelta for every text
// fragment as it arrives. A non-nil error from onDelta aborts the stream.
func (c *Completer) Stream(ctx context.Context, system string, history []Message, message string, onDelta func(string) error) error {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(system, history, message))
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := onDelta(delta); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("completion stream: %w", err)
	}
	return nil
}

// Complete runs a non-streaming completion and returns the full text.
func (c *Completer) Complete(ctx context.Context, system string, history []Message, message string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(system, history, message))
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Completer) params(system string, history []Message, message string) openai.ChatCompletionNewParams {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
	}
	for _, m := range trimHistory(history, c.historyWindow) {
		switch m.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		case "user":
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(message))

	return openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
	}
}

// trimHistory keeps only the most recent window of turns.
func trimHistory(history []Message, window int) []Message {
	if window <= 0 || len(history) <= window {
		return history
	}
	return history[len(history)-window:]
}
