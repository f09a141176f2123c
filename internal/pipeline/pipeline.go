package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/htmldepth/internal/model"
)

// Step is one stage of an analysis.
type Step interface {
	// Do runs the stage. A non-nil error stops the pipeline; the step is
	// expected to have recorded the failure in the analysis already.
	Do(ctx context.Context, analysis *model.Analysis) error

	// Name identifies the step in logs.
	Name() string
}

// Pipeline runs its steps in order.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:  make([]Step, 0),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in order and returns the first error. Cancellation
// is checked before each step. The analysis duration is set on return.
func (p *Pipeline) Execute(ctx context.Context, analysis *model.Analysis) error {
	defer analysis.Finish()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"url", analysis.URL,
				"reason", err,
			)
			return err
		}

		p.logger.Debug("executing step", "step", step.Name(), "url", analysis.URL)

		if err := step.Do(ctx, analysis); err != nil {
			p.logger.Debug("step failed",
				"step", step.Name(),
				"url", analysis.URL,
				"error", err,
			)
			return err
		}
	}

	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
