// Package main provides the indexing CLI for site content.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/devansh003/chatbot/internal/config"
	"github.com/devansh003/chatbot/internal/content"
	"github.com/devansh003/chatbot/internal/embedding"
	"github.com/devansh003/chatbot/internal/indexer"
	"github.com/devansh003/chatbot/internal/storage"
)

var (
	configPath string
	itemID     int64
)

var rootCmd = &cobra.Command{
	Use:   "chatbot-sync",
	Short: "Site content indexing tool",
	Long:  "CLI tool for managing the chatbot's content index in Qdrant",
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Re-index all published site content",
	Long: `Indexes every published item from the CMS into Qdrant.

Each item is fully replaced: its existing chunks are deleted before the
new ones are inserted, so the command is safe to re-run at any time.

Environment variables:
  QDRANT_HOST     Qdrant hostname (default: localhost)
  QDRANT_PORT     Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY  OpenAI API key for embeddings (required)
  SITE_URL        Site namespace in the shared collection (required)
  CMS_BASE_URL    Base URL of the CMS REST API (required)`,
	RunE: runSync,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index a single content item by id",
	RunE:  runIndex,
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete all stored chunks of a content item",
	RunE:  runDelete,
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run resumable batch indexing",
	Long: `Starts a batch when none is in progress, then processes one window of
items per invocation. Re-run until it reports completion; state is
checkpointed on disk between runs.`,
	RunE: runBatch,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and batch status",
	RunE:  runStatus,
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every stored chunk for this site",
	RunE:  runPurge,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	indexCmd.Flags().Int64Var(&itemID, "id", 0, "content item id")
	indexCmd.MarkFlagRequired("id")
	deleteCmd.Flags().Int64Var(&itemID, "id", 0, "content item id")
	deleteCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(syncCmd, indexCmd, deleteCmd, batchCmd, statusCmd, purgeCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup wires the store, embedder, and pipeline from configuration.
func setup(ctx context.Context) (*config.Config, *storage.Store, *indexer.Pipeline, error) {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := storage.NewStore(cfg.QdrantHost, cfg.QdrantPort, cfg.Collection, cfg.SiteURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to Qdrant: %w", err)
	}
	if err := store.Health(ctx); err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("Qdrant health check failed: %w", err)
	}
	if err := store.EnsureCollection(ctx); err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("ensure collection: %w", err)
	}

	client, err := embedding.NewClient(cfg)
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("create OpenAI client: %w", err)
	}
	embedder := embedding.NewEmbedder(client, cfg.EmbeddingModel)

	source := content.NewWordPress(cfg.CMSBaseURL)
	pipeline := indexer.NewPipeline(source, embedder, store, cfg, slog.Default())
	return cfg, store, pipeline, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	fmt.Println("Starting sync...")
	_, store, pipeline, err := setup(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := pipeline.IndexAll(ctx)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Sync complete!")
	fmt.Printf("  Items: %d/%d\n", result.Indexed, result.Total)
	fmt.Printf("  Chunks: %d\n", result.Chunks)
	fmt.Printf("  Errors: %d\n", result.Errors)
	fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	_, store, pipeline, err := setup(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	chunks, err := pipeline.IndexItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("index item %d: %w", itemID, err)
	}
	fmt.Printf("Indexed item %d (%d chunks)\n", itemID, chunks)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	_, store, pipeline, err := setup(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := pipeline.DeleteItem(ctx, itemID); err != nil {
		return err
	}
	fmt.Printf("Deleted chunks for item %d\n", itemID)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	_, store, pipeline, err := setup(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, _, err := pipeline.BatchStatus(); errors.Is(err, indexer.ErrNoBatch) {
		total, err := pipeline.StartBatch(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Batch started: %d items queued\n", total)
	}

	complete, stats, err := pipeline.ProcessNextBatch(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Processed %d/%d (indexed %d, errors %d, chunks %d)\n",
		stats.Processed, stats.Total, stats.Indexed, stats.Errors, stats.Chunks)
	if complete {
		fmt.Println("Batch complete")
	} else {
		fmt.Println("Run again to continue")
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, store, pipeline, err := setup(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	fmt.Println("Qdrant: connected")

	client, err := embedding.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("create OpenAI client: %w", err)
	}
	if err := embedding.NewEmbedder(client, cfg.EmbeddingModel).TestConnection(ctx); err != nil {
		fmt.Printf("OpenAI: %v\n", err)
	} else {
		fmt.Println("OpenAI: connected")
	}

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}
	fmt.Printf("Stored chunks: %d\n", count)

	stats, complete, err := pipeline.BatchStatus()
	if errors.Is(err, indexer.ErrNoBatch) {
		fmt.Println("No batch in progress")
		return nil
	}
	if err != nil {
		return err
	}
	if complete {
		fmt.Printf("Last batch complete: %d/%d indexed\n", stats.Indexed, stats.Total)
	} else {
		fmt.Printf("Batch in progress: %d/%d processed\n", stats.Processed, stats.Total)
	}
	return nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, store, _, err := setup(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	fmt.Printf("Deleted all chunks for %s\n", cfg.SiteURL)
	return nil
}
