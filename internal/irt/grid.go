package irt

import (
	"fmt"
	"math"
)

// Grid is a discrete approximation of the standard-normal prior over the
// latent trait: nodes evenly spaced over [-4, 4] standard deviations with
// weights proportional to the normal density, normalized to sum to 1.
// A Grid is immutable once built and is shared by fitting and scoring.
type Grid struct {
	Nodes   []float64 `json:"nodes"`
	Weights []float64 `json:"weights"`
}

const (
	gridMin = -4.0
	gridMax = 4.0
)

// NewGrid builds a grid with exactly n nodes. n must be at least 2.
func NewGrid(n int) (*Grid, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: quadrature grid needs at least 2 nodes, got %d", ErrInvalidConfiguration, n)
	}

	step := (gridMax - gridMin) / float64(n-1)
	nodes := make([]float64, n)
	weights := make([]float64, n)

	var total float64
	for i := range nodes {
		x := gridMin + float64(i)*step
		nodes[i] = x
		weights[i] = math.Exp(-x * x / 2)
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}

	return &Grid{Nodes: nodes, Weights: weights}, nil
}
