package irt

import (
	"math"
	"testing"
)

func TestProbabilityZeroKernel(t *testing.T) {
	item := Item{A: []float64{1}, D: 0, C: 0, Gamma: 1}
	got := Probability([]float64{0}, item)
	if got != 0.5 {
		t.Errorf("Probability(0) = %g, want exactly 0.5", got)
	}
}

func TestProbabilityStaysWithinAsymptotes(t *testing.T) {
	items := []Item{
		{A: []float64{1}, D: 0, C: 0, Gamma: 1},
		{A: []float64{2.5}, D: -1, C: 0.2, Gamma: 1},
		{A: []float64{0.8}, D: 2, C: 0.2, Gamma: 0.95},
		{A: []float64{1.7}, D: -3, C: 0.25, Gamma: 0.9},
	}
	thetas := []float64{-50, -4, -1, 0, 1, 4, 50}

	for _, item := range items {
		for _, theta := range thetas {
			p := Probability([]float64{theta}, item)
			if math.IsNaN(p) || math.IsInf(p, 0) {
				t.Fatalf("Probability(%g, %+v) = %g", theta, item, p)
			}
			if p < item.C || p > item.Gamma {
				t.Errorf("Probability(%g, %+v) = %g, want within [%g, %g]", theta, item, p, item.C, item.Gamma)
			}
		}
	}
}

func TestProbabilityMonotonic(t *testing.T) {
	item := Item{A: []float64{1.3}, D: -0.5, C: 0.1, Gamma: 0.95}
	prev := math.Inf(-1)
	for theta := -6.0; theta <= 6.0; theta += 0.25 {
		p := Probability([]float64{theta}, item)
		if p < prev {
			t.Fatalf("probability decreased at theta=%g: %g < %g", theta, p, prev)
		}
		prev = p
	}
}

func TestProbabilityApproachesAsymptotes(t *testing.T) {
	item := Item{A: []float64{1}, D: 0, C: 0.2, Gamma: 0.95}

	low := Probability([]float64{-50}, item)
	if math.Abs(low-item.C) > 1e-9 {
		t.Errorf("probability at theta=-50 is %g, want ~%g", low, item.C)
	}
	high := Probability([]float64{50}, item)
	if math.Abs(high-item.Gamma) > 1e-9 {
		t.Errorf("probability at theta=50 is %g, want ~%g", high, item.Gamma)
	}
}

func TestProbabilityMissingTraitComponentIsZero(t *testing.T) {
	// A two-dimensional item scored with a one-dimensional theta: the second
	// component contributes nothing to the kernel.
	item := Item{A: []float64{1, 3}, D: 0.5, C: 0, Gamma: 1}
	got := Probability([]float64{0.7}, item)
	want := Probability([]float64{0.7, 0}, item)
	if got != want {
		t.Errorf("short theta = %g, padded theta = %g; want equal", got, want)
	}
}
