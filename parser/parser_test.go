package parser

import (
	"testing"

	"karl/ast"
)

func TestPrecedenceTreeShape(t *testing.T) {
	expr, errs := Parse("2+3*4")
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	bin, ok := expr.(*ast.BinaryOp)
	if !ok {
		t.Fatalf("expected top-level BinaryOp, got %T", expr)
	}
	if _, ok := bin.Left.(*ast.Number); !ok {
		t.Errorf("expected left operand to be the literal 2, got %T", bin.Left)
	}
	if _, ok := bin.Right.(*ast.BinaryOp); !ok {
		t.Errorf("expected right operand to be the nested 3*4, got %T", bin.Right)
	}
}

func TestLeftAssociativeSubtraction(t *testing.T) {
	expr, errs := Parse("10-5-2")
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	top, ok := expr.(*ast.BinaryOp)
	if !ok {
		t.Fatalf("expected BinaryOp, got %T", expr)
	}
	if _, ok := top.Left.(*ast.BinaryOp); !ok {
		t.Errorf("expected left-associative tree: left operand should be (10-5), got %T", top.Left)
	}
}

func TestRangeParsing(t *testing.T) {
	expr, errs := Parse("A1:B2")
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	rng, ok := expr.(*ast.Range)
	if !ok {
		t.Fatalf("expected Range, got %T", expr)
	}
	if rng.From != "A1" || rng.To != "B2" {
		t.Errorf("Range = %+v, want From=A1 To=B2", rng)
	}
}

func TestFunctionCallArgs(t *testing.T) {
	expr, errs := Parse("SUM(A1,A2,1)")
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	call, ok := expr.(*ast.FunctionCall)
	if !ok {
		t.Fatalf("expected FunctionCall, got %T", expr)
	}
	if call.Name != "SUM" || len(call.Args) != 3 {
		t.Errorf("FunctionCall = %+v, want Name=SUM with 3 args", call)
	}
}

func TestUnmatchedParenIsParseError(t *testing.T) {
	_, errs := Parse("(1+2")
	if len(errs) == 0 {
		t.Fatal("expected a parse error for an unterminated parenthesis")
	}
}

func TestTrailingTokensAreParseError(t *testing.T) {
	_, errs := Parse("1+2)")
	if len(errs) == 0 {
		t.Fatal("expected a parse error for trailing tokens after a complete expression")
	}
}

func TestRefErrorSentinelParses(t *testing.T) {
	expr, errs := Parse("#REF!+1")
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	bin, ok := expr.(*ast.BinaryOp)
	if !ok {
		t.Fatalf("expected BinaryOp, got %T", expr)
	}
	if _, ok := bin.Left.(*ast.RefError); !ok {
		t.Errorf("expected left operand to be RefError, got %T", bin.Left)
	}
}

func TestComparisonIsLowestPrecedence(t *testing.T) {
	expr, errs := Parse("1+2<3*4")
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	top, ok := expr.(*ast.BinaryOp)
	if !ok {
		t.Fatalf("expected BinaryOp, got %T", expr)
	}
	if _, ok := top.Left.(*ast.BinaryOp); !ok {
		t.Errorf("expected left operand to be the nested 1+2, got %T", top.Left)
	}
	if _, ok := top.Right.(*ast.BinaryOp); !ok {
		t.Errorf("expected right operand to be the nested 3*4, got %T", top.Right)
	}
}

func TestFormatParseErrorsEmpty(t *testing.T) {
	if got := FormatParseErrors(nil, "", ""); got != "" {
		t.Errorf("FormatParseErrors(nil) = %q, want empty", got)
	}
}

func TestFormatParseErrorsIncludesLocation(t *testing.T) {
	_, errs := Parse("1+")
	if len(errs) == 0 {
		t.Fatal("expected a parse error")
	}
	got := FormatParseErrors(errs, "1+", "")
	if got == "" {
		t.Error("expected a non-empty formatted message")
	}
}
