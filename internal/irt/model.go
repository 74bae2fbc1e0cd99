// Package irt implements multidimensional Item Response Theory fitting and
// scoring: a quadrature-based EM estimator for the 1PL-4PL logistic models
// and an EAP (posterior mean) scorer for new respondents.
package irt

import (
	"errors"
	"fmt"
)

// ModelType selects which item parameters the optimizer is allowed to move.
type ModelType string

const (
	Model1PL ModelType = "1PL" // difficulty only, discriminations fixed
	Model2PL ModelType = "2PL" // difficulty + discrimination
	Model3PL ModelType = "3PL" // adds a guessing floor
	Model4PL ModelType = "4PL" // adds an upper asymptote
)

var ValidModelTypes = map[ModelType]bool{
	Model1PL: true,
	Model2PL: true,
	Model3PL: true,
	Model4PL: true,
}

// Item holds the four-parameter logistic parameters for one question.
// A is the discrimination vector (one weight per latent dimension), D the
// intercept, C the lower asymptote (guessing floor), Gamma the upper
// asymptote. Invariant: 0 <= C <= Gamma <= 1.
type Item struct {
	A     []float64 `json:"a"`
	D     float64   `json:"d"`
	C     float64   `json:"c"`
	Gamma float64   `json:"gamma"`
}

// Missing marks an unanswered cell in a response matrix or vector.
const Missing int8 = -1

// ResponseMatrix is respondents x items, entries 0, 1, or Missing.
type ResponseMatrix [][]int8

var (
	// ErrInvalidConfiguration covers bad engine setup: too few quadrature
	// nodes, unknown model types, dimensionality mismatches.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrMalformedInput covers bad response data: empty matrices, ragged
	// rows, values outside {0, 1, missing}.
	ErrMalformedInput = errors.New("malformed input")
)

const (
	DefaultMaxIter          = 100
	DefaultLearningRate     = 0.05
	DefaultQuadraturePoints = 21
	DefaultYieldEvery       = 5

	convergenceTolerance = 1e-4
	evidenceEpsilon      = 1e-10
)

// Model holds the latent-trait configuration shared by fitting and scoring.
// It carries no fitted state: Fit returns a caller-owned item slice and
// ScoreEAP takes one, so independent fits can run concurrently against the
// same Model.
type Model struct {
	Dimensions int
	Grid       *Grid
}

// New constructs a Model with the given trait dimensionality and the default
// quadrature grid. dimensions == 0 selects the default single dimension.
func New(dimensions int) (*Model, error) {
	if dimensions == 0 {
		dimensions = 1
	}
	if dimensions < 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %d", ErrInvalidConfiguration, dimensions)
	}
	grid, err := NewGrid(DefaultQuadraturePoints)
	if err != nil {
		return nil, err
	}
	return &Model{Dimensions: dimensions, Grid: grid}, nil
}

// validateMatrix rejects empty matrices, ragged rows, and out-of-range cells.
func validateMatrix(matrix ResponseMatrix) error {
	if len(matrix) == 0 {
		return fmt.Errorf("%w: response matrix has no rows", ErrMalformedInput)
	}
	width := len(matrix[0])
	if width == 0 {
		return fmt.Errorf("%w: response matrix has no items", ErrMalformedInput)
	}
	for i, row := range matrix {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d entries, expected %d", ErrMalformedInput, i, len(row), width)
		}
		for j, v := range row {
			if v != 0 && v != 1 && v != Missing {
				return fmt.Errorf("%w: row %d item %d has value %d, expected 0, 1, or missing", ErrMalformedInput, i, j, v)
			}
		}
	}
	return nil
}
