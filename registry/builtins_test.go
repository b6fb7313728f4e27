package registry

import (
	"testing"

	"karl/cellvalue"
	"karl/evalerr"
)

func scalar(v cellvalue.Value) Arg { return Arg{Value: v} }

func rangeArg(rows [][]cellvalue.Value) Arg {
	return Arg{IsRange: true, Range: cellvalue.Range{Rows: rows}}
}

func mustNumber(t *testing.T, v cellvalue.Value) float64 {
	t.Helper()
	f, ok := v.ToNumber(false)
	if !ok {
		t.Fatalf("expected numeric result, got %v", v)
	}
	return f
}

func TestDefaultRegistryLookupAndAliases(t *testing.T) {
	r := Default()
	if _, ok := r.Lookup("SUM"); !ok {
		t.Fatal("expected SUM to be registered")
	}
	if _, ok := r.Lookup("avg"); !ok {
		t.Fatal("expected AVG alias to resolve case-insensitively")
	}
	if _, ok := r.Lookup("NOPE"); ok {
		t.Fatal("expected unknown function to be absent")
	}
}

func TestSumAndAverageSkipEmpties(t *testing.T) {
	args := []Arg{rangeArg([][]cellvalue.Value{
		{cellvalue.Number(1), cellvalue.Empty()},
		{cellvalue.Number(2), cellvalue.Number(3)},
	})}
	sum, err := sumFn(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mustNumber(t, sum) != 6 {
		t.Errorf("SUM = %v, want 6", sum)
	}
	avg, err := averageFn(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mustNumber(t, avg) != 2 {
		t.Errorf("AVERAGE = %v, want 2 (empties excluded from count)", avg)
	}
}

func TestMinMaxCount(t *testing.T) {
	args := []Arg{rangeArg([][]cellvalue.Value{{cellvalue.Number(5), cellvalue.Number(-2), cellvalue.Number(9)}})}
	if v, err := minFn(args); err != nil || mustNumber(t, v) != -2 {
		t.Errorf("MIN = %v, %v; want -2", v, err)
	}
	if v, err := maxFn(args); err != nil || mustNumber(t, v) != 9 {
		t.Errorf("MAX = %v, %v; want 9", v, err)
	}
	if v, err := countFn(args); err != nil || mustNumber(t, v) != 3 {
		t.Errorf("COUNT = %v, %v; want 3", v, err)
	}
}

func TestDivByZero(t *testing.T) {
	_, err := divFn([]Arg{scalar(cellvalue.Number(1)), scalar(cellvalue.Number(0))})
	if err == nil || err.Kind != evalerr.KindDivisionByZero {
		t.Fatalf("expected DivisionByZero, got %v", err)
	}
}

func TestIfBranchSelection(t *testing.T) {
	v, err := ifFn([]Arg{scalar(cellvalue.Number(1)), scalar(cellvalue.Text("yes")), scalar(cellvalue.Text("no"))})
	if err != nil || v.String() != "yes" {
		t.Errorf("IF(1,...) = %v, %v; want yes", v, err)
	}
	v, err = ifFn([]Arg{scalar(cellvalue.Number(0)), scalar(cellvalue.Text("yes")), scalar(cellvalue.Text("no"))})
	if err != nil || v.String() != "no" {
		t.Errorf("IF(0,...) = %v, %v; want no", v, err)
	}
}

func TestConcatenate(t *testing.T) {
	v, err := concatFn([]Arg{scalar(cellvalue.Text("foo")), scalar(cellvalue.Text("bar"))})
	if err != nil || v.String() != "foobar" {
		t.Errorf("CONCATENATE = %v, %v; want foobar", v, err)
	}
}

func TestLeftRightTrimUpperLower(t *testing.T) {
	if v, err := leftFn([]Arg{scalar(cellvalue.Text("hello")), scalar(cellvalue.Number(2))}); err != nil || v.String() != "he" {
		t.Errorf("LEFT = %v, %v; want he", v, err)
	}
	if v, err := rightFn([]Arg{scalar(cellvalue.Text("hello")), scalar(cellvalue.Number(2))}); err != nil || v.String() != "lo" {
		t.Errorf("RIGHT = %v, %v; want lo", v, err)
	}
	if v, err := trimFn([]Arg{scalar(cellvalue.Text("  hi  "))}); err != nil || v.String() != "hi" {
		t.Errorf("TRIM = %v, %v; want hi", v, err)
	}
	if v, err := upperFn([]Arg{scalar(cellvalue.Text("hi"))}); err != nil || v.String() != "HI" {
		t.Errorf("UPPER = %v, %v; want HI", v, err)
	}
	if v, err := lowerFn([]Arg{scalar(cellvalue.Text("HI"))}); err != nil || v.String() != "hi" {
		t.Errorf("LOWER = %v, %v; want hi", v, err)
	}
}

func TestLeftRightClampToStringLength(t *testing.T) {
	v, err := leftFn([]Arg{scalar(cellvalue.Text("hi")), scalar(cellvalue.Number(10))})
	if err != nil || v.String() != "hi" {
		t.Errorf("LEFT with oversized count = %v, %v; want hi", v, err)
	}
}

func TestCountif(t *testing.T) {
	args := []Arg{
		rangeArg([][]cellvalue.Value{{cellvalue.Number(5), cellvalue.Number(10), cellvalue.Number(15)}}),
		scalar(cellvalue.Text(">=10")),
	}
	v, err := countifFn(args)
	if err != nil || mustNumber(t, v) != 2 {
		t.Errorf("COUNTIF(>=10) = %v, %v; want 2", v, err)
	}
}

func TestSumif(t *testing.T) {
	args := []Arg{
		rangeArg([][]cellvalue.Value{{cellvalue.Text("a"), cellvalue.Text("b"), cellvalue.Text("a")}}),
		scalar(cellvalue.Text("a")),
		rangeArg([][]cellvalue.Value{{cellvalue.Number(10), cellvalue.Number(20), cellvalue.Number(30)}}),
	}
	v, err := sumifFn(args)
	if err != nil || mustNumber(t, v) != 40 {
		t.Errorf("SUMIF = %v, %v; want 40", v, err)
	}
}

func TestSumifsRequiresAllCriteriaToMatch(t *testing.T) {
	args := []Arg{
		rangeArg([][]cellvalue.Value{{cellvalue.Number(10), cellvalue.Number(20), cellvalue.Number(30)}}),
		rangeArg([][]cellvalue.Value{{cellvalue.Text("a"), cellvalue.Text("a"), cellvalue.Text("b")}}),
		scalar(cellvalue.Text("a")),
		rangeArg([][]cellvalue.Value{{cellvalue.Number(1), cellvalue.Number(2), cellvalue.Number(2)}}),
		scalar(cellvalue.Text(">1")),
	}
	v, err := sumifsFn(args)
	if err != nil || mustNumber(t, v) != 20 {
		t.Errorf("SUMIFS = %v, %v; want 20 (only row 2 matches both criteria)", v, err)
	}
}

func TestVlookupExactMatch(t *testing.T) {
	table := rangeArg([][]cellvalue.Value{
		{cellvalue.Text("a"), cellvalue.Number(1)},
		{cellvalue.Text("b"), cellvalue.Number(2)},
	})
	v, err := vlookupFn([]Arg{scalar(cellvalue.Text("b")), table, scalar(cellvalue.Number(2))})
	if err != nil || mustNumber(t, v) != 2 {
		t.Errorf("VLOOKUP = %v, %v; want 2", v, err)
	}
}

func TestVlookupNoMatch(t *testing.T) {
	table := rangeArg([][]cellvalue.Value{{cellvalue.Text("a"), cellvalue.Number(1)}})
	_, err := vlookupFn([]Arg{scalar(cellvalue.Text("z")), table, scalar(cellvalue.Number(2))})
	if err == nil || err.Kind != evalerr.KindArgumentError {
		t.Fatalf("expected ArgumentError for no match, got %v", err)
	}
}

func TestMatchExact(t *testing.T) {
	vec := rangeArg([][]cellvalue.Value{{cellvalue.Number(10), cellvalue.Number(20), cellvalue.Number(30)}})
	v, err := matchFn([]Arg{scalar(cellvalue.Number(20)), vec, scalar(cellvalue.Number(0))})
	if err != nil || mustNumber(t, v) != 2 {
		t.Errorf("MATCH exact = %v, %v; want 2", v, err)
	}
}

func TestIndex(t *testing.T) {
	table := rangeArg([][]cellvalue.Value{
		{cellvalue.Number(1), cellvalue.Number(2)},
		{cellvalue.Number(3), cellvalue.Number(4)},
	})
	v, err := indexFn([]Arg{table, scalar(cellvalue.Number(2)), scalar(cellvalue.Number(1))})
	if err != nil || mustNumber(t, v) != 3 {
		t.Errorf("INDEX(table,2,1) = %v, %v; want 3", v, err)
	}
}

func TestIndexOutOfRange(t *testing.T) {
	table := rangeArg([][]cellvalue.Value{{cellvalue.Number(1)}})
	_, err := indexFn([]Arg{table, scalar(cellvalue.Number(5))})
	if err == nil || err.Kind != evalerr.KindArgumentError {
		t.Fatalf("expected ArgumentError for out-of-range index, got %v", err)
	}
}

func TestDatedifDays(t *testing.T) {
	start := scalar(cellvalue.Number(0))
	end := scalar(cellvalue.Number(float64(2 * 24 * 60 * 60 * 1000)))
	v, err := datedifFn([]Arg{start, end, scalar(cellvalue.Text("D"))})
	if err != nil || mustNumber(t, v) != 2 {
		t.Errorf("DATEDIF days = %v, %v; want 2", v, err)
	}
}

func TestDatedifUnknownUnit(t *testing.T) {
	_, err := datedifFn([]Arg{scalar(cellvalue.Number(0)), scalar(cellvalue.Number(1)), scalar(cellvalue.Text("X"))})
	if err == nil || err.Kind != evalerr.KindArgumentError {
		t.Fatalf("expected ArgumentError for unknown unit, got %v", err)
	}
}
