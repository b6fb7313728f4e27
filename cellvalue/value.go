// Package cellvalue implements the polymorphic CellValue domain: numbers,
// text, and empty, plus the coercion rules used during evaluation. It maps
// to a single tagged struct rather than an interface hierarchy — there is
// no dynamic dispatch beyond the Kind discriminant.
package cellvalue

import (
	"strconv"
	"strings"
)

type Kind int

const (
	KindEmpty Kind = iota
	KindNumber
	KindText
)

// Value is the sum type number | text | empty.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

func Empty() Value          { return Value{Kind: KindEmpty} }
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func Text(s string) Value    { return Value{Kind: KindText, Str: s} }

func (v Value) IsEmpty() bool  { return v.Kind == KindEmpty }
func (v Value) IsNumber() bool { return v.Kind == KindNumber }
func (v Value) IsText() bool   { return v.Kind == KindText }

// String renders v the way it would be substituted into a text context
// (e.g. CONCATENATE arguments).
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return formatNumber(v.Num)
	case KindText:
		return v.Str
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToNumber coerces v to a float64 per §4.6: numbers pass through, strings
// parse via standard float parsing, empty coerces to 0 only when the
// caller explicitly allows it (aggregate-function context).
func (v Value) ToNumber(emptyAsZero bool) (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case KindEmpty:
		if emptyAsZero {
			return 0, true
		}
		return 0, false
	}
	return 0, false
}

// Truthy implements the IF() truthiness predicate from §4.6.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNumber:
		return v.Num != 0
	case KindText:
		s := strings.ToLower(strings.TrimSpace(v.Str))
		if s == "true" || s == "1" {
			return true
		}
		if s == "" || s == "false" || s == "0" {
			return false
		}
		return true
	default:
		return false
	}
}

// EqualCaseInsensitiveText compares the text forms of two values,
// ignoring case. The '=' / '<>' formula operators do not use it: they
// compare non-numeric operands case-sensitively.
func (v Value) EqualCaseInsensitiveText(other Value) bool {
	return strings.EqualFold(v.String(), other.String())
}

// Range is the 2-D matrix produced by evaluating a Range AST node.
// Internally it is stored row-major (Rows[row][col]) to match the
// VLOOKUP/HLOOKUP/INDEX/MATCH surface; dependency extraction uses the
// column-major order produced separately by package cellrange.
type Range struct {
	Rows [][]Value
}

func (r Range) NumRows() int { return len(r.Rows) }
func (r Range) NumCols() int {
	if len(r.Rows) == 0 {
		return 0
	}
	return len(r.Rows[0])
}

// Flatten returns every value in row-major order, for functions (SUM,
// AVERAGE, ...) that don't care about shape.
func (r Range) Flatten() []Value {
	out := make([]Value, 0, r.NumRows()*r.NumCols())
	for _, row := range r.Rows {
		out = append(out, row...)
	}
	return out
}
