package irt

// posteriors runs the E-step: for each respondent, a posterior distribution
// over the grid's nodes given their observed responses and the current item
// parameters. Missing responses contribute no likelihood factor. Each row
// sums to 1 up to the epsilon guarding the evidence denominator.
func posteriors(matrix ResponseMatrix, items []Item, grid *Grid) [][]float64 {
	post := make([][]float64, len(matrix))
	theta := make([]float64, 1)

	for i, row := range matrix {
		weights := make([]float64, len(grid.Nodes))
		evidence := evidenceEpsilon

		for q, node := range grid.Nodes {
			theta[0] = node
			likelihood := 1.0
			for j, obs := range row {
				if obs == Missing {
					continue
				}
				p := Probability(theta, items[j])
				if obs == 1 {
					likelihood *= p
				} else {
					likelihood *= 1 - p
				}
			}
			weights[q] = likelihood * grid.Weights[q]
			evidence += weights[q]
		}

		for q := range weights {
			weights[q] /= evidence
		}
		post[i] = weights
	}

	return post
}
