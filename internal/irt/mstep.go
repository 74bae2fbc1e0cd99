package irt

import "math"

// updateItem runs one expected-gradient ascent step for a single item,
// mutating it in place, and returns the magnitude of the intercept move. The
// fit loop uses that magnitude as its per-item convergence signal.
//
// The gradient of the marginal log-likelihood is accumulated over all
// respondents with a recorded answer for this item, weighted by their
// posterior mass at each node. The intercept always moves; the
// discrimination moves only for models that estimate it, and only in its
// first component. Higher trait dimensions keep their initial value — a
// full-vector gradient would change fitted output, so the restriction is
// kept and pinned by tests rather than silently extended.
func updateItem(item *Item, col int, matrix ResponseMatrix, post [][]float64, grid *Grid, model ModelType, learningRate float64) float64 {
	var gradD, gradA float64
	theta := make([]float64, 1)

	for i, row := range matrix {
		obs := row[col]
		if obs == Missing {
			continue
		}
		observed := float64(obs)
		for q, node := range grid.Nodes {
			theta[0] = node
			resid := (observed - Probability(theta, *item)) * post[i][q]
			gradD += resid
			gradA += resid * node
		}
	}

	item.D += gradD * learningRate
	if model != Model1PL {
		item.A[0] += gradA * learningRate
	}

	return math.Abs(gradD * learningRate)
}
