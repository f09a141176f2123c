package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/htmldepth/internal/model"
)

// defaultConcurrency is used when WithConcurrency is not given.
const defaultConcurrency = 4

// BatchProcessor analyses many locators concurrently.
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each locator.
	pipelineFactory func() *Pipeline

	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger. A nil logger keeps the default.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithConcurrency sets the maximum number of concurrent analyses.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     defaultConcurrency,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(bp)
	}
	return bp
}

// ProcessBatch analyses urls and returns one analysis per url, in input order.
// A failed fetch is recorded in its analysis and does not stop the batch.
// The error is non-nil only when ctx was cancelled before every analysis
// started; those analyses are nil. Fetches interrupted by cancellation are
// recorded as connection errors.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string) ([]*model.Analysis, error) {
	results := make([]*model.Analysis, len(urls))

	err := bp.ProcessBatchWithCallback(ctx, urls, func(analysis *model.Analysis, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = analysis
	})

	return results, err
}

// ProcessBatchWithCallback analyses urls and calls callback as each one
// completes, from the goroutine that ran it. Completion order is not input
// order; index is the position in urls.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	urls []string,
	callback func(analysis *model.Analysis, index int),
) error {
	bp.logger.Debug("starting batch",
		"total", len(urls),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, url := range urls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			analysis := model.NewAnalysis(url)
			err := bp.pipelineFactory().Execute(ctx, analysis)
			if err != nil && ctx.Err() != nil && analysis.Status == model.StatusUnknown {
				// Interrupted before any verdict; nothing to report.
				return ctx.Err()
			}

			bp.logger.Debug("analysis complete",
				"url", url,
				"index", i+1,
				"total", len(urls),
				"status", analysis.Status,
			)
			callback(analysis, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Debug("batch complete",
		"total", len(urls),
		"elapsed", time.Since(start),
	)
	return err
}
