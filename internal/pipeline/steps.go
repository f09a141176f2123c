package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/htmldepth/internal/analyzer"
	"github.com/nao1215/htmldepth/internal/fetch"
	"github.com/nao1215/htmldepth/internal/model"
)

// FetchStep retrieves the document of an analysis.
type FetchStep struct {
	fetcher fetch.Fetcher
	logger  *slog.Logger
}

// NewFetchStep creates a FetchStep using fetcher.
func NewFetchStep(fetcher fetch.Fetcher, logger *slog.Logger) *FetchStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchStep{fetcher: fetcher, logger: logger}
}

// Name returns "fetch".
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do fetches analysis.URL. On failure the analysis is marked as a
// connection error and the error is returned to stop the pipeline.
func (s *FetchStep) Do(ctx context.Context, analysis *model.Analysis) error {
	text, err := s.fetcher.Fetch(ctx, analysis.URL)
	if err != nil {
		s.logger.Debug("failed to fetch document", "url", analysis.URL, "error", err)
		analysis.ApplyTransportError(err)
		return err
	}

	analysis.SetDocument(text)
	return nil
}

// AnalyzeStep scans the fetched document for its deepest text.
type AnalyzeStep struct {
	keepDocument bool
	logger       *slog.Logger
}

// AnalyzeStepOption configures an AnalyzeStep.
type AnalyzeStepOption func(*AnalyzeStep)

// WithKeepDocument keeps the document text on the analysis after scanning.
// By default it is released once the verdict is recorded.
func WithKeepDocument(keep bool) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.keepDocument = keep
	}
}

// WithAnalyzeLogger sets the logger.
func WithAnalyzeLogger(logger *slog.Logger) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAnalyzeStep creates an AnalyzeStep.
func NewAnalyzeStep(opts ...AnalyzeStepOption) *AnalyzeStep {
	s := &AnalyzeStep{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns "analyze".
func (s *AnalyzeStep) Name() string {
	return "analyze"
}

// Do records the verdict for analysis.Document. It never fails: a
// malformed document is a verdict, not an error.
func (s *AnalyzeStep) Do(_ context.Context, analysis *model.Analysis) error {
	result := analyzer.Analyze(analysis.Document)
	analysis.ApplyResult(result)

	if err := result.Err(); err != nil {
		s.logger.Debug("document is malformed", "url", analysis.URL, "reason", err)
	} else {
		s.logger.Debug("deepest text found",
			"url", analysis.URL,
			"depth", result.Depth,
			"lines", result.Stats.Lines,
		)
	}

	if !s.keepDocument {
		analysis.Document = ""
	}
	return nil
}

// NewAnalysisPipeline returns the standard fetch then analyze pipeline.
func NewAnalysisPipeline(fetcher fetch.Fetcher, logger *slog.Logger) *Pipeline {
	p := New(WithLogger(logger))
	p.AddSteps(
		NewFetchStep(fetcher, logger),
		NewAnalyzeStep(WithAnalyzeLogger(logger)),
	)
	return p
}
