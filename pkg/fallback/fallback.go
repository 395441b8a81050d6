// Package fallback evaluates ordered alternative strategies for catalog
// operations. The first strategy that succeeds with an accepted result wins.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapconnect/pkg/connerr"
)

// ErrEmpty is recorded for a strategy that ran cleanly but whose result was
// rejected by the chain's accept function.
var ErrEmpty = errors.New("strategy returned no result")

// Strategy is one step of a chain.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Attempt records the outcome of one strategy.
type Attempt struct {
	Strategy string
	Err      error
}

// Succeeded reports whether the attempt produced the winning result.
func (a Attempt) Succeeded() bool {
	return a.Err == nil
}

// Chain is an ordered list of strategies for producing a T.
type Chain[T any] struct {
	// Op names the operation in log lines and errors (e.g. "list schemas").
	Op         string
	Strategies []Strategy[T]
	// Accept filters successful results; nil accepts everything.
	Accept func(T) bool
	Logger *slog.Logger
}

// Run evaluates the strategies in order and returns the first accepted
// result together with every attempt made. When the chain is exhausted the
// error is a connerr.KindCatalogQuery error joining each strategy's failure.
func (c Chain[T]) Run(ctx context.Context) (T, []Attempt, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var (
		zero     T
		attempts = make([]Attempt, 0, len(c.Strategies))
		errs     []error
	)
	for _, s := range c.Strategies {
		v, err := s.Run(ctx)
		if err == nil && c.Accept != nil && !c.Accept(v) {
			err = ErrEmpty
		}
		attempts = append(attempts, Attempt{Strategy: s.Name, Err: err})
		if err == nil {
			logger.Debug("fallback strategy succeeded",
				slog.String("op", c.Op),
				slog.String("strategy", s.Name))
			return v, attempts, nil
		}
		logger.Warn("fallback strategy failed",
			slog.String("op", c.Op),
			slog.String("strategy", s.Name),
			slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no strategies"))
	}
	return zero, attempts, connerr.CatalogQuery(c.Op, errors.Join(errs...))
}

// NonEmpty accepts slices with at least one element.
func NonEmpty[E any](v []E) bool {
	return len(v) > 0
}

// Or runs the chain and returns def when it is exhausted. The exhaustion
// error is logged, never returned.
func (c Chain[T]) Or(ctx context.Context, def T) T {
	v, _, err := c.Run(ctx)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warn("all fallback strategies failed, using default",
				slog.String("op", c.Op),
				slog.String("error", err.Error()))
		}
		return def
	}
	return v
}
