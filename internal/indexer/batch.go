package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoBatch is returned when ProcessNextBatch runs without a started
// batch.
var ErrNoBatch = errors.New("indexer: no batch in progress")

// batchStateFile holds the resumable queue between invocations.
const batchStateFile = "index-queue.json"

// BatchStats carries the running totals of a batch indexing flow.
type BatchStats struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Indexed   int `json:"indexed"`
	Errors    int `json:"errors"`
	Chunks    int `json:"chunks"`
}

type batchState struct {
	Queue []int64    `json:"queue"`
	Stats BatchStats `json:"stats"`
}

// StartBatch snapshots the published item ids into a fresh resumable
// queue and returns the total count. Any previous batch is discarded.
func (p *Pipeline) StartBatch(ctx context.Context) (int, error) {
	ids, err := p.source.ListPublishedIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list published items: %w", err)
	}
	state := &batchState{
		Queue: ids,
		Stats: BatchStats{Total: len(ids)},
	}
	if err := p.saveBatchState(state); err != nil {
		return 0, err
	}
	p.logger.Info("Batch indexing started", "items", len(ids))
	return len(ids), nil
}

// ProcessNextBatch indexes the next window of queued items, checkpoints
// the remaining queue and totals, and reports whether the batch is
// complete. Item failures increment the error counter and the batch
// continues.
func (p *Pipeline) ProcessNextBatch(ctx context.Context) (bool, *BatchStats, error) {
	state, err := p.loadBatchState()
	if err != nil {
		return false, nil, err
	}
	if err := p.batchPace.Wait(ctx); err != nil {
		return false, &state.Stats, err
	}
	if len(state.Queue) == 0 {
		return true, &state.Stats, nil
	}

	size := p.cfg.BatchSize
	if size <= 0 || size > len(state.Queue) {
		size = len(state.Queue)
	}
	window := state.Queue[:size]
	state.Queue = state.Queue[size:]

	for _, id := range window {
		if err := p.itemPace.Wait(ctx); err != nil {
			return false, &state.Stats, err
		}
		chunks, err := p.IndexItem(ctx, id)
		state.Stats.Processed++
		if err != nil {
			state.Stats.Errors++
			continue
		}
		state.Stats.Indexed++
		state.Stats.Chunks += chunks
	}

	if err := p.saveBatchState(state); err != nil {
		return false, &state.Stats, err
	}

	complete := len(state.Queue) == 0
	p.logger.Info("Batch processed",
		"processed", state.Stats.Processed,
		"total", state.Stats.Total,
		"complete", complete,
	)
	return complete, &state.Stats, nil
}

// BatchStatus returns the current totals without processing anything.
func (p *Pipeline) BatchStatus() (*BatchStats, bool, error) {
	state, err := p.loadBatchState()
	if err != nil {
		return nil, false, err
	}
	return &state.Stats, len(state.Queue) == 0, nil
}

func (p *Pipeline) batchStatePath() string {
	return filepath.Join(p.cfg.StateDir, batchStateFile)
}

func (p *Pipeline) saveBatchState(state *batchState) error {
	if err := os.MkdirAll(p.cfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode batch state: %w", err)
	}
	if err := os.WriteFile(p.batchStatePath(), data, 0o644); err != nil {
		return fmt.Errorf("write batch state: %w", err)
	}
	return nil
}

func (p *Pipeline) loadBatchState() (*batchState, error) {
	data, err := os.ReadFile(p.batchStatePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoBatch
		}
		return nil, fmt.Errorf("read batch state: %w", err)
	}
	var state batchState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode batch state: %w", err)
	}
	return &state, nil
}
