package irt

import "math"

// Probability returns P(correct | theta) for an item under the
// four-parameter logistic model. The kernel is sum(a[k]*theta[k]) + d; trait
// components beyond len(theta) count as 0. The result always lies in
// [item.C, item.Gamma].
func Probability(theta []float64, item Item) float64 {
	kernel := item.D
	for k, a := range item.A {
		if k < len(theta) {
			kernel += a * theta[k]
		}
	}
	return item.C + (item.Gamma-item.C)*logistic(kernel)
}

// logistic computes 1/(1+e^-x) without overflowing for large |x|.
func logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
