package sim

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/integrators"
	"github.com/san-kum/femdyn/internal/material"
	"golang.org/x/sync/errgroup"
)

// Evaluator runs an integrator over many elements in parallel.
//
// Evaluation and plastic commits are separate phases: any number of
// Evaluate calls may overlap, but AdvancePlasticState waits for them and
// blocks new ones until the commit is done.
type Evaluator struct {
	integrator integrators.Integrator
	workers    int
	logger     *slog.Logger

	phase sync.RWMutex
}

type Option func(*Evaluator)

// WithWorkers bounds the number of concurrent element evaluations.
func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

func NewEvaluator(integ integrators.Integrator, opts ...Option) *Evaluator {
	e := &Evaluator{
		integrator: integ,
		workers:    runtime.GOMAXPROCS(0),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Integrator() integrators.Integrator { return e.integrator }

// Evaluate computes every element's contribution at level. The first
// failure cancels the remaining work and is returned as a *fem.EvalError
// carrying the element index.
func (e *Evaluator) Evaluate(ctx context.Context, elems []Element, level fem.Level) (*Result, error) {
	e.phase.RLock()
	defer e.phase.RUnlock()

	res := &Result{
		Level:         level,
		Contributions: make([]integrators.Contribution, len(elems)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range elems {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			el := elems[i]
			c, err := e.integrator.Evaluate(level, el.Attrs, el.Force, el.Damping, el.History)
			if err != nil {
				return e.atElement(i, level, err)
			}
			res.Contributions[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, c := range res.Contributions {
		res.Objective += c.Objective
	}
	e.logger.Debug("evaluated batch",
		slog.String("integrator", e.integrator.Name()),
		slog.String("level", level.String()),
		slog.Int("elements", len(elems)),
		slog.Float64("objective", res.Objective))
	return res, nil
}

// AdvancePlasticState applies the return map to every plastic element at
// the deformation of its newest displacement and reports how many
// yielded. Elastic elements are skipped.
func (e *Evaluator) AdvancePlasticState(ctx context.Context, elems []Element) (int, error) {
	e.phase.Lock()
	defer e.phase.Unlock()

	var yields atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range elems {
		i := i
		el := elems[i]
		if el.Force == nil || !el.Force.Kind().IsPlastic() || el.Attrs == nil || el.Attrs.Plastic == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if len(el.History) == 0 {
				return e.atElement(i, fem.LevelObjective, fem.ErrHistoryLength)
			}
			u := el.History[len(el.History)-1]
			if !fem.IsFinite(u.RawVector().Data...) {
				return e.atElement(i, fem.LevelObjective, fem.ErrInvalidState)
			}
			F := element.ComputeDeformationGradient(el.Attrs.Minv, u)
			if material.ReturnMap(el.Attrs, F) {
				yields.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n := int(yields.Load())
	if n > 0 {
		e.logger.Info("plastic state advanced", slog.Int("yielded", n))
	}
	return n, nil
}

func (e *Evaluator) atElement(i int, level fem.Level, err error) error {
	var ee *fem.EvalError
	if errors.As(err, &ee) {
		c := *ee
		c.Element = i
		return &c
	}
	return &fem.EvalError{Element: i, Integrator: e.integrator.Name(), Op: integrators.Op(level), Wrapped: err}
}
