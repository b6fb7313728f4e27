// Package cellrange expands an (A1, C3)-style range into its member cells.
// Expansion is always column-major: the order is visible to dependency
// tracking and to tests, and must be preserved (§4.4). Row-major 2-D
// arguments for lookup functions are produced separately at the boundary
// by package cellvalue / eval, per the canonical-layout decision in
// SPEC_FULL.md.
package cellrange

import (
	"fmt"

	"karl/address"
)

// Expand returns every cell in the rectangle bounded by from and to, in
// column-major order: column by column, top to bottom within a column.
// Reversed ranges (from > to in either dimension) are rejected.
func Expand(from, to address.CellID) ([]address.CellID, error) {
	r1, c1, ok1 := address.Parse(string(from))
	r2, c2, ok2 := address.Parse(string(to))
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("cellrange: invalid endpoint %q or %q", from, to)
	}
	if r1 > r2 || c1 > c2 {
		return nil, fmt.Errorf("cellrange: reversed range %s:%s", from, to)
	}

	cells := make([]address.CellID, 0, (r2-r1+1)*(c2-c1+1))
	for c := c1; c <= c2; c++ {
		for r := r1; r <= r2; r++ {
			cells = append(cells, address.Format(r, c))
		}
	}
	return cells, nil
}

// Dimensions returns the (rows, cols) shape of the rectangle, used to lay
// out a row-major cellvalue.Range at the evaluator boundary.
func Dimensions(from, to address.CellID) (rows, cols int, err error) {
	r1, c1, ok1 := address.Parse(string(from))
	r2, c2, ok2 := address.Parse(string(to))
	if !ok1 || !ok2 {
		return 0, 0, fmt.Errorf("cellrange: invalid endpoint %q or %q", from, to)
	}
	if r1 > r2 || c1 > c2 {
		return 0, 0, fmt.Errorf("cellrange: reversed range %s:%s", from, to)
	}
	return r2 - r1 + 1, c2 - c1 + 1, nil
}
