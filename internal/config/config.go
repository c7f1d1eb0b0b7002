// Package config defines the explicit configuration value injected into every
// component at construction. Values come from an optional YAML file with
// environment-variable overrides; every recognized field has a default.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all recognized settings for the chat and indexing services.
type Config struct {
	// Vector store connection.
	QdrantHost string `yaml:"qdrant_host"`
	QdrantPort int    `yaml:"qdrant_port"`
	Collection string `yaml:"collection"`

	// Completion / embedding provider.
	OpenAIAPIKey   string  `yaml:"openai_api_key"`
	ChatModel      string  `yaml:"chat_model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`

	// Content source.
	SiteURL       string `yaml:"site_url"`
	CMSBaseURL    string `yaml:"cms_base_url"`
	ContactPageID int64  `yaml:"contact_page_id"`
	AutoIndex     bool   `yaml:"auto_index"`

	// Retrieval tuning. MatchThreshold is the similarity floor for vector
	// hits; TokenOverlapThreshold and PricingMinResults are empirically tuned
	// and kept configurable rather than derived.
	MatchThreshold        float64 `yaml:"match_threshold"`
	TokenOverlapThreshold float64 `yaml:"token_overlap_threshold"`
	PricingMinResults     int     `yaml:"pricing_min_results"`
	PricingPageKeyword    string  `yaml:"pricing_page_keyword"`
	MaxSources            int     `yaml:"max_sources"`
	HistoryWindow         int     `yaml:"history_window"`

	// Chunking.
	MaxChunkSize   int `yaml:"max_chunk_size"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	MinChunkLength int `yaml:"min_chunk_length"`

	// Indexing pace. Pauses keep the embedding provider under its
	// throughput ceiling.
	ChunkPause time.Duration `yaml:"chunk_pause"`
	ItemPause  time.Duration `yaml:"item_pause"`
	BatchPause time.Duration `yaml:"batch_pause"`
	BatchSize  int           `yaml:"batch_size"`

	// HTTP server.
	ListenAddr string `yaml:"listen_addr"`

	// Batch checkpoint location.
	StateDir string `yaml:"state_dir"`
}

// Default returns a Config populated with every default value.
func Default() *Config {
	return &Config{
		QdrantHost:            "localhost",
		QdrantPort:            6334,
		Collection:            "site_content",
		ChatModel:             "gpt-4o-mini",
		EmbeddingModel:        "text-embedding-3-small",
		Temperature:           0.7,
		MaxTokens:             900,
		AutoIndex:             true,
		MatchThreshold:        0.5,
		TokenOverlapThreshold: 0.15,
		PricingMinResults:     2,
		PricingPageKeyword:    "pricing",
		MaxSources:            3,
		HistoryWindow:         10,
		MaxChunkSize:          6000,
		ChunkOverlap:          30,
		MinChunkLength:        50,
		ChunkPause:            250 * time.Millisecond,
		ItemPause:             500 * time.Millisecond,
		BatchPause:            2 * time.Second,
		BatchSize:             10,
		ListenAddr:            "0.0.0.0:8080",
		StateDir:              ".chatbot-state",
	}
}

// Load reads configuration from path (defaults apply when the file is
// missing), then applies environment overrides. A missing path is not an
// error; a malformed file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides file values from the environment. Only connection and
// credential settings are exposed this way; tuning stays in the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("QDRANT_HOST"); v != "" {
		c.QdrantHost = v
	}
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.QdrantPort = p
		}
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIAPIKey = v
	}
	if v := os.Getenv("SITE_URL"); v != "" {
		c.SiteURL = v
	}
	if v := os.Getenv("CMS_BASE_URL"); v != "" {
		c.CMSBaseURL = v
	}
	if v := os.Getenv("CHAT_MODEL"); v != "" {
		c.ChatModel = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("CONTACT_PAGE_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.ContactPageID = id
		}
	}
}

// Validate reports missing settings required before any remote call is made.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return ErrMissingCredentials
	}
	if c.SiteURL == "" {
		return ErrMissingSiteURL
	}
	return nil
}

var (
	ErrMissingCredentials = errors.New("openai api key not configured")
	ErrMissingSiteURL     = errors.New("site url not configured")
)
