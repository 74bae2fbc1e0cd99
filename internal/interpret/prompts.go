package interpret

import (
	"fmt"
	"strings"

	"github.com/lsat-prep/calibration/internal/irt"
	"github.com/lsat-prep/calibration/internal/models"
)

// Items below this discrimination barely separate strong and weak
// respondents; items above this guessing floor are answerable by guessing
// too often. Both get flagged in the prompt so the summary calls them out.
const (
	lowDiscrimination = 0.35
	highGuessingFloor = 0.3
)

func SystemPrompt() string {
	return `You are a psychometrician reviewing Item Response Theory calibration results for a test-prep question pool.

You will receive fitted item parameters from a logistic IRT model:
- DISCRIMINATION (a): how sharply correctness probability rises with ability. Below ~0.35 an item barely separates respondents.
- INTERCEPT (d): shifts the response curve; large negative means hard, large positive means easy.
- GUESSING FLOOR (c): minimum correctness probability. Above ~0.3 suggests guessable items.
- CEILING (gamma): maximum correctness probability. Well below 1 suggests ambiguity or a keying problem.

Write a concise review in plain prose (no JSON, no markdown tables):
1. One paragraph on the overall health of the pool.
2. One short paragraph per flagged item, naming the item index and the concern.
3. A closing recommendation: promote the parameters, or rework specific items first.`
}

// BuildSummaryPrompt renders a run's fitted parameters, pre-flagging items
// the reviewer should look at.
func BuildSummaryPrompt(run *models.CalibrationRun, items []irt.Item) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Calibration run %d: %s model, %d iterations, status %s.\n",
		run.ID, run.ModelType, run.Iterations, run.Status)
	if run.MaxChange != nil {
		fmt.Fprintf(&b, "Final max parameter change: %.6f.\n", *run.MaxChange)
	}
	fmt.Fprintf(&b, "\nFITTED ITEMS (%d):\n", len(items))

	for j, item := range items {
		fmt.Fprintf(&b, "item %d: a=%.3f d=%.3f c=%.3f gamma=%.3f",
			j, item.A[0], item.D, item.C, item.Gamma)

		var flags []string
		if item.A[0] < lowDiscrimination {
			flags = append(flags, "LOW DISCRIMINATION")
		}
		if item.C > highGuessingFloor {
			flags = append(flags, "HIGH GUESSING FLOOR")
		}
		if len(flags) > 0 {
			fmt.Fprintf(&b, "  [%s]", strings.Join(flags, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nSummarize this calibration for the content team.")
	return b.String()
}
