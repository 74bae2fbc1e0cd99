package irt

import (
	"context"
	"errors"
	"math"
	"testing"
)

// endToEndMatrix is a small binary matrix with both uniform and mixed
// columns, used across the fit tests.
var endToEndMatrix = ResponseMatrix{
	{1, 0, 1},
	{1, 1, 1},
	{0, 0, 0},
	{1, 0, 0},
	{0, 1, 1},
}

func TestFitEndToEnd2PL(t *testing.T) {
	model, err := New(1)
	if err != nil {
		t.Fatalf("New(1) returned error: %v", err)
	}

	result, err := model.Fit(context.Background(), endToEndMatrix, FitOptions{Model: Model2PL, MaxIter: 50})
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	if len(result.Items) != 3 {
		t.Fatalf("got %d items, want 3", len(result.Items))
	}
	if result.State != StateConverged && result.State != StateExhausted {
		t.Fatalf("unexpected terminal state %q", result.State)
	}

	moved := false
	for j, item := range result.Items {
		if math.IsNaN(item.D) || math.IsInf(item.D, 0) || math.IsNaN(item.A[0]) || math.IsInf(item.A[0], 0) {
			t.Fatalf("item %d has non-finite parameters: %+v", j, item)
		}
		if item.Gamma < item.C {
			t.Errorf("item %d violates c <= gamma: c=%g gamma=%g", j, item.C, item.Gamma)
		}
		if item.D != 0 && item.A[0] != 1 {
			moved = true
		}
	}
	if !moved {
		t.Error("at least one item with non-uniform responses should move off its initial (d=0, a=1)")
	}
}

func TestFitInitialization(t *testing.T) {
	tests := []struct {
		model ModelType
		c     float64
		gamma float64
	}{
		{Model1PL, 0, 1},
		{Model2PL, 0, 1},
		{Model3PL, 0.2, 1},
		{Model4PL, 0.2, 0.95},
	}

	for _, tt := range tests {
		items := initialItems(tt.model, 2, 4)
		if len(items) != 4 {
			t.Fatalf("%s: got %d items, want 4", tt.model, len(items))
		}
		for _, item := range items {
			if item.C != tt.c || item.Gamma != tt.gamma {
				t.Errorf("%s: initial asymptotes (%g, %g), want (%g, %g)", tt.model, item.C, item.Gamma, tt.c, tt.gamma)
			}
			if item.D != 0 {
				t.Errorf("%s: initial intercept %g, want 0", tt.model, item.D)
			}
			if len(item.A) != 2 || item.A[0] != 1 || item.A[1] != 1 {
				t.Errorf("%s: initial discriminations %v, want [1 1]", tt.model, item.A)
			}
		}
	}
}

func TestFit1PLHoldsDiscriminationsFixed(t *testing.T) {
	model, _ := New(1)
	result, err := model.Fit(context.Background(), endToEndMatrix, FitOptions{Model: Model1PL, MaxIter: 30})
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	for j, item := range result.Items {
		if item.A[0] != 1 {
			t.Errorf("1PL item %d discrimination = %g, want 1", j, item.A[0])
		}
	}
}

func TestFitMultidimensionalKeepsHigherDiscriminations(t *testing.T) {
	// Only the first trait dimension's discrimination is estimated; the
	// rest stay at their initial value of 1 for every item.
	model, _ := New(3)
	result, err := model.Fit(context.Background(), endToEndMatrix, FitOptions{MaxIter: 25})
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	for j, item := range result.Items {
		if len(item.A) != 3 {
			t.Fatalf("item %d has %d discrimination weights, want 3", j, len(item.A))
		}
		if item.A[1] != 1 || item.A[2] != 1 {
			t.Errorf("item %d higher discriminations moved: %v", j, item.A)
		}
	}
}

func TestFitTerminatesWithinMaxIter(t *testing.T) {
	model, _ := New(1)
	result, err := model.Fit(context.Background(), endToEndMatrix, FitOptions{MaxIter: 7})
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	if result.Iterations > 7 {
		t.Errorf("ran %d iterations, cap was 7", result.Iterations)
	}
	if result.State != StateConverged && result.State != StateExhausted {
		t.Errorf("terminal state %q, want converged or exhausted", result.State)
	}
}

func TestFitOnCycleCheckpoints(t *testing.T) {
	model, _ := New(1)

	var calls []int
	_, err := model.Fit(context.Background(), endToEndMatrix, FitOptions{
		MaxIter:    20,
		YieldEvery: 5,
		OnCycle: func(iteration int, items []Item, maxChange float64) bool {
			if len(items) != 3 {
				t.Errorf("OnCycle got %d items, want 3", len(items))
			}
			calls = append(calls, iteration)
			return true
		},
	})
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}

	for i, iter := range calls {
		if iter != (i+1)*5 {
			t.Errorf("call %d at iteration %d, want %d", i, iter, (i+1)*5)
		}
	}
}

func TestFitOnCycleStops(t *testing.T) {
	model, _ := New(1)
	result, err := model.Fit(context.Background(), endToEndMatrix, FitOptions{
		MaxIter:    200,
		YieldEvery: 5,
		OnCycle: func(iteration int, items []Item, maxChange float64) bool {
			return iteration < 10
		},
	})
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	if result.State != StateStopped {
		t.Fatalf("state = %q, want stopped", result.State)
	}
	if result.Iterations != 10 {
		t.Errorf("stopped at iteration %d, want 10", result.Iterations)
	}
	if len(result.Items) != 3 {
		t.Errorf("stopped fit should still return the best-so-far items")
	}
}

func TestFitContextCancellation(t *testing.T) {
	model, _ := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := model.Fit(ctx, endToEndMatrix, FitOptions{MaxIter: 200, YieldEvery: 5})
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	if result.State != StateStopped {
		t.Fatalf("state = %q, want stopped for a cancelled context", result.State)
	}
	if result.Iterations != 5 {
		t.Errorf("cancellation observed at iteration %d, want the first yield boundary (5)", result.Iterations)
	}
}

func TestFitOnCycleSnapshotIsolation(t *testing.T) {
	model, _ := New(1)
	var snapshot []Item
	result, err := model.Fit(context.Background(), endToEndMatrix, FitOptions{
		MaxIter:    20,
		YieldEvery: 5,
		OnCycle: func(iteration int, items []Item, maxChange float64) bool {
			if snapshot == nil {
				snapshot = items
			}
			return true
		},
	})
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	if snapshot == nil {
		t.Skip("fit converged before the first yield boundary")
	}

	// Mutating the snapshot must not touch the fit's items.
	snapshot[0].A[0] = 999
	if result.Items[0].A[0] == 999 {
		t.Error("OnCycle snapshot shares backing arrays with the fit")
	}
}

func TestFitMalformedInput(t *testing.T) {
	model, _ := New(1)

	tests := []struct {
		name   string
		matrix ResponseMatrix
	}{
		{"empty", ResponseMatrix{}},
		{"empty rows", ResponseMatrix{{}, {}}},
		{"ragged", ResponseMatrix{{1, 0}, {1}}},
		{"bad value", ResponseMatrix{{1, 0}, {1, 7}}},
	}
	for _, tt := range tests {
		_, err := model.Fit(context.Background(), tt.matrix, FitOptions{})
		if !errors.Is(err, ErrMalformedInput) {
			t.Errorf("%s: error = %v, want ErrMalformedInput", tt.name, err)
		}
	}
}

func TestFitInvalidConfiguration(t *testing.T) {
	model, _ := New(1)

	tests := []struct {
		name string
		opts FitOptions
	}{
		{"unknown model", FitOptions{Model: "5PL"}},
		{"negative max iter", FitOptions{MaxIter: -1}},
		{"negative learning rate", FitOptions{LearningRate: -0.1}},
		{"one quadrature point", FitOptions{QuadraturePoints: 1}},
	}
	for _, tt := range tests {
		_, err := model.Fit(context.Background(), endToEndMatrix, tt.opts)
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("%s: error = %v, want ErrInvalidConfiguration", tt.name, err)
		}
	}

	if _, err := New(-2); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("New(-2) error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestFitDefaults(t *testing.T) {
	model, err := New(0)
	if err != nil {
		t.Fatalf("New(0) returned error: %v", err)
	}
	if model.Dimensions != 1 {
		t.Errorf("New(0) dimensions = %d, want default 1", model.Dimensions)
	}
	if len(model.Grid.Nodes) != DefaultQuadraturePoints {
		t.Errorf("default grid has %d nodes, want %d", len(model.Grid.Nodes), DefaultQuadraturePoints)
	}

	// Zero-valued options take 2PL and the documented defaults without error.
	result, err := model.Fit(context.Background(), endToEndMatrix, FitOptions{})
	if err != nil {
		t.Fatalf("Fit with zero options returned error: %v", err)
	}
	if result.Iterations < 1 || result.Iterations > DefaultMaxIter {
		t.Errorf("iterations = %d, want within [1, %d]", result.Iterations, DefaultMaxIter)
	}
}

func TestFitConvergesWithSmallLearningRate(t *testing.T) {
	model, _ := New(1)
	result, err := model.Fit(context.Background(), endToEndMatrix, FitOptions{
		MaxIter:      5000,
		LearningRate: 0.005,
	})
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	if result.State != StateConverged {
		t.Fatalf("state = %q (max change %g after %d iterations), want converged", result.State, result.MaxChange, result.Iterations)
	}
	if result.MaxChange >= 1e-4 {
		t.Errorf("converged with max change %g, want < 1e-4", result.MaxChange)
	}
}
