// Package rewriter implements the pure string -> string reference rewrite
// used when an editor inserts/deletes a row or column, or fills a formula
// from a source cell to a destination cell (§4.8). It walks the formula
// with the lexer and splices each CellRef/Range endpoint in place, leaving
// every other byte — including original whitespace — untouched.
package rewriter

import (
	"strings"

	"karl/address"
	"karl/lexer"
	"karl/token"
)

// Shift maps a 0-based (row, col) to its new coordinates. ok is false when
// the reference should become #REF! (deleted row/column, or out of bounds).
type Shift func(row, col int) (newRow, newCol int, ok bool)

const refErrorLiteral = "#REF!"

// Rewrite applies shift to every CellRef and Range endpoint found in
// formula (the full cell content, including the leading '='). Non-formula
// content (no leading '=') is returned unchanged.
func Rewrite(formula string, shift Shift) string {
	if !strings.HasPrefix(formula, "=") {
		return formula
	}
	body := formula[1:]

	type edit struct {
		start, end int
		text       string
	}
	var edits []edit

	l := lexer.New(body)
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		if tok.Type != token.CELLREF {
			continue
		}
		row, col, ok := address.Parse(tok.Literal)
		if !ok {
			continue
		}
		newRow, newCol, valid := shift(row, col)
		var repl string
		if valid {
			repl = string(address.Format(newRow, newCol))
		} else {
			repl = refErrorLiteral
		}
		edits = append(edits, edit{start: tok.Offset, end: tok.Offset + len(tok.Literal), text: repl})
	}

	if len(edits) == 0 {
		return formula
	}

	var b strings.Builder
	b.WriteByte('=')
	cursor := 0
	for _, e := range edits {
		b.WriteString(body[cursor:e.start])
		b.WriteString(e.text)
		cursor = e.end
	}
	b.WriteString(body[cursor:])
	return b.String()
}

// InsertColumnBefore shifts every reference with col >= at by +1 column
// (0-based col index).
func InsertColumnBefore(formula string, at int) string {
	return Rewrite(formula, func(row, col int) (int, int, bool) {
		if col >= at {
			col++
		}
		return row, col, true
	})
}

// DeleteColumn turns references to column at into #REF! and shifts
// references with col > at left by one.
func DeleteColumn(formula string, at int) string {
	return Rewrite(formula, func(row, col int) (int, int, bool) {
		if col == at {
			return row, col, false
		}
		if col > at {
			col--
		}
		return row, col, true
	})
}

// InsertRowBefore shifts every reference with row >= at by +1 row.
func InsertRowBefore(formula string, at int) string {
	return Rewrite(formula, func(row, col int) (int, int, bool) {
		if row >= at {
			row++
		}
		return row, col, true
	})
}

// DeleteRow turns references to row at into #REF! and shifts references
// with row > at up by one.
func DeleteRow(formula string, at int) string {
	return Rewrite(formula, func(row, col int) (int, int, bool) {
		if row == at {
			return row, col, false
		}
		if row > at {
			row--
		}
		return row, col, true
	})
}

// Fill translates formula from source cell to destination cell: each
// reference (r, c) becomes (r+rD-rS, c+cD-cS), clamped to [0, rows)x[0,
// cols); out-of-bounds results become #REF!.
func Fill(formula string, source, dest address.CellID, rows, cols int) string {
	sr, sc, ok1 := address.Parse(string(source))
	dr, dc, ok2 := address.Parse(string(dest))
	if !ok1 || !ok2 {
		return formula
	}
	rowDelta := dr - sr
	colDelta := dc - sc
	return Rewrite(formula, func(row, col int) (int, int, bool) {
		row += rowDelta
		col += colDelta
		if row < 0 || row >= rows || col < 0 || col >= cols {
			return row, col, false
		}
		return row, col, true
	})
}
