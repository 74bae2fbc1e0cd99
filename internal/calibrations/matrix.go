package calibrations

import (
	"fmt"

	"github.com/lsat-prep/calibration/internal/irt"
)

// matrixFromRows converts an API matrix of nullable ints (null = not
// answered) into the engine's response matrix. Shape and value problems are
// reported as the engine's malformed-input error so handlers can map them to
// a 400 uniformly.
func matrixFromRows(rows [][]*int) (irt.ResponseMatrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: matrix has no rows", irt.ErrMalformedInput)
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("%w: matrix has no items", irt.ErrMalformedInput)
	}

	matrix := make(irt.ResponseMatrix, len(rows))
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d entries, expected %d", irt.ErrMalformedInput, i, len(row), width)
		}
		converted := make([]int8, width)
		for j, cell := range row {
			switch {
			case cell == nil:
				converted[j] = irt.Missing
			case *cell == 0 || *cell == 1:
				converted[j] = int8(*cell)
			default:
				return nil, fmt.Errorf("%w: row %d item %d has value %d, expected 0, 1, or null", irt.ErrMalformedInput, i, j, *cell)
			}
		}
		matrix[i] = converted
	}
	return matrix, nil
}

// vectorFromRequest converts a nullable response vector for scoring.
func vectorFromRequest(responses []*int) ([]int8, error) {
	if len(responses) == 0 {
		return nil, fmt.Errorf("%w: response vector is empty", irt.ErrMalformedInput)
	}
	vector := make([]int8, len(responses))
	for j, cell := range responses {
		switch {
		case cell == nil:
			vector[j] = irt.Missing
		case *cell == 0 || *cell == 1:
			vector[j] = int8(*cell)
		default:
			return nil, fmt.Errorf("%w: entry %d has value %d, expected 0, 1, or null", irt.ErrMalformedInput, j, *cell)
		}
	}
	return vector, nil
}

// rowToArray widens a response row for storage in an INT[] column.
func rowToArray(row []int8) []int64 {
	out := make([]int64, len(row))
	for j, v := range row {
		out[j] = int64(v)
	}
	return out
}

// arrayToRow narrows a stored INT[] row back to engine form.
func arrayToRow(values []int64) []int8 {
	out := make([]int8, len(values))
	for j, v := range values {
		out[j] = int8(v)
	}
	return out
}
