// Package embedding generates fixed-length vectors for text using OpenAI's
// embedding models, with defensive truncation and response validation.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// Dimension is the vector size for text-embedding-3-small. It must
	// match the store's configured vector dimension.
	Dimension = 1536

	// maxInputChars truncates input before the provider's ~8191-token
	// budget is hit. 25000 chars leaves headroom for multi-byte text.
	maxInputChars = 25000
)

var (
	// ErrEmptyInput is returned when the text to embed is blank.
	ErrEmptyInput = errors.New("embedding input is empty")

	// ErrInvalidVector is returned when the provider answers with a vector
	// of the wrong dimension or with non-finite values.
	ErrInvalidVector = errors.New("provider returned invalid embedding vector")
)

// Embedder generates embeddings with exponential backoff on rate limits.
type Embedder struct {
	client *Client
	model  string
}

// NewEmbedder creates an Embedder. An empty model selects
// text-embedding-3-small.
func NewEmbedder(client *Client, model string) *Embedder {
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	return &Embedder{client: client, model: model}
}

// Embed generates the embedding for a single text. Input is truncated to the
// provider's safe character budget before the call; the response vector is
// validated before it is returned.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for several texts in one provider call,
// retrying with exponential backoff on rate limit errors.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	inputs := make([]string, len(texts))
	for i, text := range texts {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil, ErrEmptyInput
		}
		inputs[i] = Truncate(trimmed)
	}

	var vectors [][]float32
	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: inputs,
			},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err // retried with backoff
			}
			return backoff.Permanent(err)
		}
		if len(resp.Data) != len(inputs) {
			return backoff.Permanent(fmt.Errorf("%w: got %d vectors for %d inputs",
				ErrInvalidVector, len(resp.Data), len(inputs)))
		}

		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vector := toFloat32(data.Embedding)
			if err := Validate(vector); err != nil {
				return backoff.Permanent(err)
			}
			vectors[i] = vector
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return vectors, nil
}

// TestConnection verifies the API key and model by embedding a short probe.
func (e *Embedder) TestConnection(ctx context.Context) error {
	if _, err := e.Embed(ctx, "connection test"); err != nil {
		return fmt.Errorf("openai connection test: %w", err)
	}
	return nil
}

// Truncate limits text to the provider-safe character budget.
func Truncate(text string) string {
	if len(text) <= maxInputChars {
		return text
	}
	return text[:maxInputChars]
}

// Validate checks vector dimensionality and numeric-ness. Call before
// persisting or querying with a vector.
func Validate(vector []float32) error {
	if len(vector) != Dimension {
		return fmt.Errorf("%w: got %d dimensions, expected %d",
			ErrInvalidVector, len(vector), Dimension)
	}
	for _, v := range vector {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidVector)
		}
	}
	return nil
}

// isRateLimitError checks for an HTTP 429 from the provider.
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts the provider's float64 response for storage.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
