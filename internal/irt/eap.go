package irt

import "fmt"

// ScoreEAP returns the Expected A Posteriori estimate of a respondent's
// latent trait: the posterior mean over the grid's nodes given their
// responses and a fitted item set. Missing responses are skipped. A vector
// with no present responses yields the prior mean (0 for the default
// symmetric grid) rather than failing.
func ScoreEAP(responses []int8, items []Item, grid *Grid) float64 {
	theta := make([]float64, 1)
	evidence := evidenceEpsilon
	var weighted float64

	for q, node := range grid.Nodes {
		theta[0] = node
		likelihood := 1.0
		for j, obs := range responses {
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
		mass := likelihood * grid.Weights[q]
		evidence += mass
		weighted += mass * node
	}

	return weighted / evidence
}

// ScoreEAP validates a response vector against an item set (fitted by this
// model or supplied externally) and scores it. The items must match the
// model's trait dimensionality and the vector must have one entry per item.
func (m *Model) ScoreEAP(responses []int8, items []Item) (float64, error) {
	if len(items) == 0 {
		return 0, fmt.Errorf("%w: no items to score against", ErrMalformedInput)
	}
	for j, item := range items {
		if len(item.A) != m.Dimensions {
			return 0, fmt.Errorf("%w: item %d has %d discrimination weights, model has %d dimensions",
				ErrInvalidConfiguration, j, len(item.A), m.Dimensions)
		}
	}
	if len(responses) != len(items) {
		return 0, fmt.Errorf("%w: response vector has %d entries, expected %d", ErrMalformedInput, len(responses), len(items))
	}
	for j, v := range responses {
		if v != 0 && v != 1 && v != Missing {
			return 0, fmt.Errorf("%w: response %d has value %d, expected 0, 1, or missing", ErrMalformedInput, j, v)
		}
	}
	return ScoreEAP(responses, items, m.Grid), nil
}
