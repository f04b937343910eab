package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/femdyn/internal/fem"
)

// Run drives the elements through a prescribed loading. Each step loads
// new histories, evaluates the batch, notifies the observers and, when
// configured, commits plastic flow before the next step.
func (e *Evaluator) Run(ctx context.Context, elems []Element, load Loading, cfg Config, observers ...Observer) (*Trace, error) {
	if cfg.Steps <= 0 {
		return nil, fmt.Errorf("%w: steps must be positive, got %d", fem.ErrParameterBounds, cfg.Steps)
	}
	if load == nil {
		return nil, fmt.Errorf("%w: no loading", fem.ErrParameterBounds)
	}

	work := make([]Element, len(elems))
	copy(work, elems)

	trace := &Trace{
		Objectives: make([]float64, 0, cfg.Steps),
		GradNorms:  make([]float64, 0, cfg.Steps),
		Yields:     make([]int, 0, cfg.Steps),
	}

	for step := 0; step < cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			return trace, ctx.Err()
		default:
		}

		for i := range work {
			h, err := load(step, i)
			if err != nil {
				return trace, fmt.Errorf("step %d: load element %d: %w", step, i, err)
			}
			work[i].History = h
		}

		res, err := e.Evaluate(ctx, work, cfg.Level)
		if err != nil {
			return trace, fmt.Errorf("step %d: %w", step, err)
		}

		yields := 0
		if cfg.AdvancePlastic {
			yields, err = e.AdvancePlasticState(ctx, work)
			if err != nil {
				return trace, fmt.Errorf("step %d: %w", step, err)
			}
		}

		for _, obs := range observers {
			obs.OnStep(step, res, yields)
		}

		trace.Objectives = append(trace.Objectives, res.Objective)
		trace.GradNorms = append(trace.GradNorms, res.GradientNorm())
		trace.Yields = append(trace.Yields, yields)
		trace.StepsTaken++
	}

	e.logger.Debug("run finished",
		slog.Int("steps", trace.StepsTaken),
		slog.Int("elements", len(elems)))
	return trace, nil
}
