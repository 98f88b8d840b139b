package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relaycrm/triage/internal/model"
)

// Batch defaults.
const (
	DefaultConcurrency = 4
)

// ResultWriter persists completed pipeline results.
type ResultWriter interface {
	InsertResult(ctx context.Context, r *model.PipelineResult) error
}

// Batch reprocesses a set of items with bounded concurrency. A started
// item always runs to completion; cancellation is honored between
// items.
type Batch struct {
	pipe        *Pipeline
	writer      ResultWriter
	concurrency int
	maxItems    int
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithConcurrency bounds how many items run at once.
func WithConcurrency(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithMaxItems caps how many items one run processes.
func WithMaxItems(n int) BatchOption {
	return func(b *Batch) { b.maxItems = n }
}

// WithResultWriter persists each result as it completes. A write fault
// is logged and does not stop the batch.
func WithResultWriter(w ResultWriter) BatchOption {
	return func(b *Batch) { b.writer = w }
}

// NewBatch creates a Batch over the pipeline.
func NewBatch(pipe *Pipeline, opts ...BatchOption) *Batch {
	b := &Batch{
		pipe:        pipe,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run processes items for one tenant and returns the results for the
// items that ran. A cancelled context stops scheduling new items and
// returns the partial results alongside the context error.
func (b *Batch) Run(ctx context.Context, items []model.ContentItem, tenantID string, opts Options) ([]*model.PipelineResult, error) {
	if b.maxItems > 0 && len(items) > b.maxItems {
		zap.L().Info("batch: truncating to max items",
			zap.Int("requested", len(items)),
			zap.Int("max", b.maxItems),
		)
		items = items[:b.maxItems]
	}

	results := make([]*model.PipelineResult, 0, len(items))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		item := item
		g.Go(func() error {
			result := b.pipe.Process(ctx, item, tenantID, opts)
			if b.writer != nil {
				if err := b.writer.InsertResult(ctx, result); err != nil {
					zap.L().Warn("batch: persist result failed",
						zap.String("item_id", item.ID), zap.Error(err))
				}
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		zap.L().Warn("batch: cancelled",
			zap.Int("processed", len(results)),
			zap.Int("requested", len(items)),
		)
		return results, err
	}
	return results, nil
}
