package eval

import (
	"testing"

	"karl/address"
	"karl/cellvalue"
	"karl/evalerr"
	"karl/parser"
	"karl/registry"
)

type fakeLookup map[address.CellID]CellResult

func (f fakeLookup) Result(id address.CellID) (CellResult, bool) {
	r, ok := f[id]
	return r, ok
}

func evalFormula(t *testing.T, body string, lookup fakeLookup) (float64, *evalerr.Error) {
	t.Helper()
	expr, errs := parser.Parse(body)
	if len(errs) > 0 {
		t.Fatalf("parse error for %q: %v", body, errs)
	}
	val, err := Evaluate(expr, lookup, registry.Default())
	if err != nil {
		return 0, err
	}
	f, ok := val.ToNumber(false)
	if !ok {
		t.Fatalf("result of %q is not numeric: %v", body, val)
	}
	return f, nil
}

func TestArithmeticPrecedence(t *testing.T) {
	f, err := evalFormula(t, "2+3*4", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != 14 {
		t.Errorf("2+3*4 = %v, want 14", f)
	}

	f, err = evalFormula(t, "(2+3)*4", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != 20 {
		t.Errorf("(2+3)*4 = %v, want 20", f)
	}
}

func TestLeftAssociativity(t *testing.T) {
	f, err := evalFormula(t, "10-5-2", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != 3 {
		t.Errorf("10-5-2 = %v, want 3", f)
	}
}

func TestUnaryMinus(t *testing.T) {
	f, err := evalFormula(t, "--5", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != 5 {
		t.Errorf("--5 = %v, want 5", f)
	}
}

func TestCellRefMissingIsEmptyCellError(t *testing.T) {
	_, err := evalFormula(t, "A1+1", fakeLookup{})
	if err == nil || err.Kind != evalerr.KindEmptyCell {
		t.Fatalf("expected EmptyCell, got %v", err)
	}
}

func TestCellRefReferencedError(t *testing.T) {
	lookup := fakeLookup{
		"A1": {Err: evalerr.New(evalerr.KindDivisionByZero, "division by zero")},
	}
	_, err := evalFormula(t, "A1+1", lookup)
	if err == nil || err.Kind != evalerr.KindReferencedError {
		t.Fatalf("expected ReferencedError, got %v", err)
	}
}

func TestDivisionByZero(t *testing.T) {
	_, err := evalFormula(t, "1/0", nil)
	if err == nil || err.Kind != evalerr.KindDivisionByZero {
		t.Fatalf("expected DivisionByZero, got %v", err)
	}
}

func TestComparisonOperators(t *testing.T) {
	f, err := evalFormula(t, `2<3`, nil)
	if err != nil || f != 1 {
		t.Errorf(`2<3 = %v, %v; want 1, nil`, f, err)
	}
	f, err = evalFormula(t, `"abc"="abc"`, nil)
	if err != nil || f != 1 {
		t.Errorf(`"abc"="abc" = %v, %v; want 1, nil`, f, err)
	}
	f, err = evalFormula(t, `"abc"<>"xyz"`, nil)
	if err != nil || f != 1 {
		t.Errorf(`"abc"<>"xyz" = %v, %v; want 1, nil`, f, err)
	}
}

func TestSumOverRangeSkipsEmpties(t *testing.T) {
	lookup := fakeLookup{
		"A1": {Value: cellvalue.Number(1)},
		"A2": {Value: cellvalue.Number(2)},
		// A3 never evaluated: treated as empty inside a range.
	}
	f, err := evalFormula(t, "SUM(A1:A3)", lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != 3 {
		t.Errorf("SUM(A1:A3) = %v, want 3", f)
	}
}

func TestIfTruthiness(t *testing.T) {
	f, err := evalFormula(t, `IF(1,10,20)`, nil)
	if err != nil || f != 10 {
		t.Errorf("IF(1,10,20) = %v, %v; want 10, nil", f, err)
	}
	f, err = evalFormula(t, `IF(0,10,20)`, nil)
	if err != nil || f != 20 {
		t.Errorf("IF(0,10,20) = %v, %v; want 20, nil", f, err)
	}
}

func TestUnknownFunction(t *testing.T) {
	_, err := evalFormula(t, "NOPE(1)", nil)
	if err == nil || err.Kind != evalerr.KindUnknownFunction {
		t.Fatalf("expected UnknownFunction, got %v", err)
	}
}

func TestRangeAsScalarIsTypeMismatch(t *testing.T) {
	lookup := fakeLookup{"A1": {Value: cellvalue.Number(1)}, "A2": {Value: cellvalue.Number(2)}}
	_, err := evalFormula(t, "A1:A2", lookup)
	if err == nil || err.Kind != evalerr.KindTypeMismatch {
		t.Fatalf("expected TypeMismatch, got %v", err)
	}
}
