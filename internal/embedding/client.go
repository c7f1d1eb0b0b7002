package embedding

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/devansh003/chatbot/internal/config"
)

// Client wraps the OpenAI client for embedding and completion calls.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client from the injected configuration.
// Returns config.ErrMissingCredentials when no API key is set.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, config.ErrMissingCredentials
	}
	client := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages
// (e.g. completion streaming).
func (c *Client) Client() *openai.Client {
	return c.client
}
