package irt

import (
	"context"
	"fmt"
)

// FitState describes how a fit terminated. Exhausted and Stopped are normal
// terminations, not errors: the returned items are simply a weaker fit.
type FitState string

const (
	StateConverged FitState = "converged"
	StateExhausted FitState = "exhausted"
	StateStopped   FitState = "stopped"
)

// FitOptions configures an EM fit. Zero values take the documented defaults.
type FitOptions struct {
	Model            ModelType // default Model2PL
	MaxIter          int       // default DefaultMaxIter
	LearningRate     float64   // default DefaultLearningRate
	QuadraturePoints int       // default: the model's grid
	YieldEvery       int       // default DefaultYieldEvery

	// OnCycle, when set, is invoked every YieldEvery cycles with the current
	// iteration count, a snapshot of the items so far, and the cycle's
	// maximum parameter change. Returning false stops the fit at that
	// boundary; the best-so-far items are returned with StateStopped.
	OnCycle func(iteration int, items []Item, maxChange float64) bool
}

// FitResult is the outcome of a fit. Items is caller-owned.
type FitResult struct {
	Items      []Item
	State      FitState
	Iterations int
	MaxChange  float64
}

// Fit estimates item parameters from a response matrix by EM: each cycle
// recomputes respondent posteriors over the quadrature grid (E-step), then
// applies one gradient step per item (M-step). The loop stops when the
// maximum per-item change falls below tolerance, when MaxIter cycles have
// run, or when the caller stops it via ctx or OnCycle; cancellation is only
// observed at cycle boundaries, every YieldEvery cycles.
func (m *Model) Fit(ctx context.Context, matrix ResponseMatrix, opts FitOptions) (*FitResult, error) {
	if err := validateMatrix(matrix); err != nil {
		return nil, err
	}

	if opts.Model == "" {
		opts.Model = Model2PL
	}
	if !ValidModelTypes[opts.Model] {
		return nil, fmt.Errorf("%w: unknown model type %q", ErrInvalidConfiguration, opts.Model)
	}
	if opts.MaxIter == 0 {
		opts.MaxIter = DefaultMaxIter
	}
	if opts.MaxIter < 0 {
		return nil, fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidConfiguration, opts.MaxIter)
	}
	if opts.LearningRate == 0 {
		opts.LearningRate = DefaultLearningRate
	}
	if opts.LearningRate < 0 {
		return nil, fmt.Errorf("%w: learning rate must be positive, got %g", ErrInvalidConfiguration, opts.LearningRate)
	}
	if opts.YieldEvery <= 0 {
		opts.YieldEvery = DefaultYieldEvery
	}

	grid := m.Grid
	if opts.QuadraturePoints != 0 {
		var err error
		if grid, err = NewGrid(opts.QuadraturePoints); err != nil {
			return nil, err
		}
	}

	items := initialItems(opts.Model, m.Dimensions, len(matrix[0]))

	var maxChange float64
	for iter := 1; iter <= opts.MaxIter; iter++ {
		post := posteriors(matrix, items, grid)

		maxChange = 0
		for j := range items {
			change := updateItem(&items[j], j, matrix, post, grid, opts.Model, opts.LearningRate)
			if change > maxChange {
				maxChange = change
			}
		}

		if maxChange < convergenceTolerance {
			return &FitResult{Items: items, State: StateConverged, Iterations: iter, MaxChange: maxChange}, nil
		}

		if iter%opts.YieldEvery == 0 {
			if ctx.Err() != nil {
				return &FitResult{Items: items, State: StateStopped, Iterations: iter, MaxChange: maxChange}, nil
			}
			if opts.OnCycle != nil && !opts.OnCycle(iter, snapshotItems(items), maxChange) {
				return &FitResult{Items: items, State: StateStopped, Iterations: iter, MaxChange: maxChange}, nil
			}
		}
	}

	return &FitResult{Items: items, State: StateExhausted, Iterations: opts.MaxIter, MaxChange: maxChange}, nil
}

// initialItems allocates one item per matrix column: unit discriminations,
// zero intercept, and asymptotes matching the model family (a 0.2 guessing
// floor for 3PL/4PL, a 0.95 ceiling for 4PL).
func initialItems(model ModelType, dimensions, count int) []Item {
	items := make([]Item, count)
	for j := range items {
		a := make([]float64, dimensions)
		for k := range a {
			a[k] = 1
		}
		item := Item{A: a, Gamma: 1}
		switch model {
		case Model3PL:
			item.C = 0.2
		case Model4PL:
			item.C = 0.2
			item.Gamma = 0.95
		}
		items[j] = item
	}
	return items
}

// snapshotItems deep-copies the item slice so OnCycle callbacks can hold it
// past the cycle boundary while the fit keeps mutating the originals.
func snapshotItems(items []Item) []Item {
	out := make([]Item, len(items))
	for j, item := range items {
		a := make([]float64, len(item.A))
		copy(a, item.A)
		item.A = a
		out[j] = item
	}
	return out
}
