package indexer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devansh003/chatbot/internal/content"
)

func batchSource(itemCount int) *stubSource {
	source := &stubSource{items: map[int64]*content.Item{}}
	for i := 1; i <= itemCount; i++ {
		id := int64(i)
		source.ids = append(source.ids, id)
		source.items[id] = publishedItem(id, "Page", "<p>"+strings.Repeat("Site content for indexing. ", 10)+"</p>")
	}
	return source
}

func TestBatchFlow_ProcessesInWindows(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 2
	store := &stubStore{}
	p := NewPipeline(batchSource(5), &stubEmbedder{}, store, cfg, nil)

	total, err := p.StartBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	complete, stats, err := p.ProcessNextBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, complete)
	assert.Equal(t, 2, stats.Processed)

	complete, stats, err = p.ProcessNextBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, complete)
	assert.Equal(t, 4, stats.Processed)

	complete, stats, err = p.ProcessNextBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, 5, stats.Processed)
	assert.Equal(t, 5, stats.Indexed)
	assert.Equal(t, 5, stats.Chunks)
	assert.Zero(t, stats.Errors)
}

func TestBatchFlow_ResumesAcrossPipelines(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 2
	source := batchSource(3)

	first := NewPipeline(source, &stubEmbedder{}, &stubStore{}, cfg, nil)
	_, err := first.StartBatch(context.Background())
	require.NoError(t, err)
	complete, _, err := first.ProcessNextBatch(context.Background())
	require.NoError(t, err)
	require.False(t, complete)

	// A fresh pipeline over the same state dir picks up where the first
	// one stopped.
	second := NewPipeline(source, &stubEmbedder{}, &stubStore{}, cfg, nil)
	complete, stats, err := second.ProcessNextBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, 3, stats.Processed)
}

func TestProcessNextBatch_WithoutStart(t *testing.T) {
	p := NewPipeline(batchSource(0), &stubEmbedder{}, &stubStore{}, testConfig(t), nil)
	_, _, err := p.ProcessNextBatch(context.Background())
	assert.ErrorIs(t, err, ErrNoBatch)
}

func TestBatchStatus(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 1
	p := NewPipeline(batchSource(2), &stubEmbedder{}, &stubStore{}, cfg, nil)

	_, err := p.StartBatch(context.Background())
	require.NoError(t, err)

	stats, complete, err := p.BatchStatus()
	require.NoError(t, err)
	assert.False(t, complete)
	assert.Equal(t, 2, stats.Total)
	assert.Zero(t, stats.Processed)
}
