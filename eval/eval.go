// Package eval walks an expression tree, resolving cell references through
// a Lookup callback and dispatching function calls through a
// registry.Registry, per §4.6.
package eval

import (
	"fmt"
	"strings"

	"karl/address"
	"karl/ast"
	"karl/cellrange"
	"karl/cellvalue"
	"karl/evalerr"
	"karl/registry"
	"karl/token"
)

// CellResult is what a Lookup returns for a single cell: either a value or
// a recorded evaluation error.
type CellResult struct {
	Value cellvalue.Value
	Err   *evalerr.Error
}

// Lookup reads a cell's last-cached result. It never triggers evaluation
// itself — that is the engine's job.
type Lookup interface {
	Result(id address.CellID) (CellResult, bool)
}

// Evaluate computes the scalar value of expr. A *ast.Range at the top level
// is a TypeMismatch: ranges are only meaningful as function arguments.
func Evaluate(expr ast.Expression, lookup Lookup, reg *registry.Registry) (cellvalue.Value, *evalerr.Error) {
	if _, isRange := expr.(*ast.Range); isRange {
		return cellvalue.Value{}, evalerr.New(evalerr.KindTypeMismatch, "a range cannot be used where a scalar value is required")
	}
	return evalScalar(expr, lookup, reg)
}

func evalScalar(expr ast.Expression, lookup Lookup, reg *registry.Registry) (cellvalue.Value, *evalerr.Error) {
	switch n := expr.(type) {
	case *ast.Number:
		return cellvalue.Number(n.Value), nil

	case *ast.Text:
		return cellvalue.Text(n.Value), nil

	case *ast.RefError:
		return cellvalue.Value{}, evalerr.New(evalerr.KindReferenceError, "#REF!: reference is no longer valid")

	case *ast.CellRef:
		return evalCellRef(address.CellID(n.ID), lookup)

	case *ast.Range:
		return cellvalue.Value{}, evalerr.New(evalerr.KindTypeMismatch, "a range cannot be used where a scalar value is required")

	case *ast.UnaryOp:
		child, err := evalScalar(n.Child, lookup, reg)
		if err != nil {
			return cellvalue.Value{}, err
		}
		f, ok := child.ToNumber(false)
		if !ok {
			return cellvalue.Value{}, evalerr.New(evalerr.KindTypeMismatch, "unary '-' requires a numeric operand")
		}
		return cellvalue.Number(-f), nil

	case *ast.BinaryOp:
		return evalBinary(n, lookup, reg)

	case *ast.FunctionCall:
		return evalFunctionCall(n, lookup, reg)

	default:
		return cellvalue.Value{}, evalerr.New(evalerr.KindParseError, fmt.Sprintf("unhandled expression node %T", expr))
	}
}

func evalCellRef(id address.CellID, lookup Lookup) (cellvalue.Value, *evalerr.Error) {
	res, ok := lookup.Result(id)
	if !ok {
		return cellvalue.Value{}, evalerr.New(evalerr.KindEmptyCell, fmt.Sprintf("%s has never been evaluated", id))
	}
	if res.Err != nil {
		return cellvalue.Value{}, evalerr.New(evalerr.KindReferencedError,
			fmt.Sprintf("%s: %s", id, res.Err.Message))
	}
	return res.Value, nil
}

func evalBinary(n *ast.BinaryOp, lookup Lookup, reg *registry.Registry) (cellvalue.Value, *evalerr.Error) {
	left, err := evalScalar(n.Left, lookup, reg)
	if err != nil {
		return cellvalue.Value{}, err
	}
	right, err := evalScalar(n.Right, lookup, reg)
	if err != nil {
		return cellvalue.Value{}, err
	}

	if n.Op.IsComparison() {
		return evalComparison(n.Op, left, right)
	}

	lf, lok := left.ToNumber(false)
	rf, rok := right.ToNumber(false)
	if !lok || !rok {
		return cellvalue.Value{}, evalerr.New(evalerr.KindTypeMismatch,
			fmt.Sprintf("operator %q requires numeric operands", n.Op))
	}

	switch n.Op {
	case token.PLUS:
		return cellvalue.Number(lf + rf), nil
	case token.MINUS:
		return cellvalue.Number(lf - rf), nil
	case token.ASTERISK:
		return cellvalue.Number(lf * rf), nil
	case token.SLASH:
		if rf == 0 {
			return cellvalue.Value{}, evalerr.New(evalerr.KindDivisionByZero, "division by zero")
		}
		return cellvalue.Number(lf / rf), nil
	default:
		return cellvalue.Value{}, evalerr.New(evalerr.KindParseError, fmt.Sprintf("unknown operator %q", n.Op))
	}
}

// evalComparison implements §4.6: '=' and '<>' compare by type after
// coercion (numeric vs numeric, else case-sensitive string); the ordering
// operators always coerce to number. The result is the plain number 1 or 0
// so comparisons chain into further arithmetic.
func evalComparison(op token.TokenType, left, right cellvalue.Value) (cellvalue.Value, *evalerr.Error) {
	lf, lok := left.ToNumber(false)
	rf, rok := right.ToNumber(false)
	bothNumeric := lok && rok

	switch op {
	case token.EQ, token.NEQ:
		var equal bool
		if bothNumeric {
			equal = lf == rf
		} else {
			equal = left.String() == right.String()
		}
		if op == token.NEQ {
			equal = !equal
		}
		return boolValue(equal), nil

	case token.LT, token.GT, token.LE, token.GE:
		if !bothNumeric {
			return cellvalue.Value{}, evalerr.New(evalerr.KindTypeMismatch,
				fmt.Sprintf("operator %q requires numeric operands", op))
		}
		var result bool
		switch op {
		case token.LT:
			result = lf < rf
		case token.GT:
			result = lf > rf
		case token.LE:
			result = lf <= rf
		case token.GE:
			result = lf >= rf
		}
		return boolValue(result), nil

	default:
		return cellvalue.Value{}, evalerr.New(evalerr.KindParseError, fmt.Sprintf("unknown comparison operator %q", op))
	}
}

func boolValue(b bool) cellvalue.Value {
	if b {
		return cellvalue.Number(1)
	}
	return cellvalue.Number(0)
}

func evalFunctionCall(n *ast.FunctionCall, lookup Lookup, reg *registry.Registry) (cellvalue.Value, *evalerr.Error) {
	name := strings.ToUpper(n.Name)
	entry, ok := reg.Lookup(name)
	if !ok {
		return cellvalue.Value{}, evalerr.New(evalerr.KindUnknownFunction, fmt.Sprintf("unknown function %s", name))
	}
	if !entry.Arity(len(n.Args)) {
		return cellvalue.Value{}, evalerr.New(evalerr.KindArgumentError,
			fmt.Sprintf("%s: wrong number of arguments (got %d)", name, len(n.Args)))
	}

	args := make([]registry.Arg, len(n.Args))
	for i, argExpr := range n.Args {
		arg, err := evalArg(argExpr, lookup, reg)
		if err != nil {
			return cellvalue.Value{}, err
		}
		args[i] = arg
	}

	return entry.Handler(args)
}

// evalArg evaluates a function argument, preserving Range shape instead of
// collapsing it to a scalar immediately — aggregate functions need the
// expanded membership, lookup functions need the 2-D shape.
func evalArg(expr ast.Expression, lookup Lookup, reg *registry.Registry) (registry.Arg, *evalerr.Error) {
	rng, isRange := expr.(*ast.Range)
	if !isRange {
		v, err := evalScalar(expr, lookup, reg)
		if err != nil {
			return registry.Arg{}, err
		}
		return registry.Arg{Value: v}, nil
	}

	rows, cols, dimErr := cellrange.Dimensions(address.CellID(rng.From), address.CellID(rng.To))
	if dimErr != nil {
		return registry.Arg{}, evalerr.New(evalerr.KindReferenceError, dimErr.Error())
	}
	members, expandErr := cellrange.Expand(address.CellID(rng.From), address.CellID(rng.To))
	if expandErr != nil {
		return registry.Arg{}, evalerr.New(evalerr.KindReferenceError, expandErr.Error())
	}

	// members is column-major; lay it out row-major to match the
	// VLOOKUP/HLOOKUP/INDEX/MATCH canonical shape (SPEC_FULL.md).
	grid := make([][]cellvalue.Value, rows)
	for r := range grid {
		grid[r] = make([]cellvalue.Value, cols)
	}
	for i, id := range members {
		col := i / rows
		row := i % rows
		v, err := evalCellRefAllowEmpty(id, lookup)
		if err != nil {
			return registry.Arg{}, err
		}
		grid[row][col] = v
	}

	return registry.Arg{IsRange: true, Range: cellvalue.Range{Rows: grid}}, nil
}

// evalCellRefAllowEmpty reads a range member cell; unlike a bare scalar
// CellRef, a cell that has never been evaluated contributes empty rather
// than failing outright — ranges commonly span never-touched cells.
func evalCellRefAllowEmpty(id address.CellID, lookup Lookup) (cellvalue.Value, *evalerr.Error) {
	res, ok := lookup.Result(id)
	if !ok {
		return cellvalue.Empty(), nil
	}
	if res.Err != nil {
		return cellvalue.Value{}, evalerr.New(evalerr.KindReferencedError,
			fmt.Sprintf("%s: %s", id, res.Err.Message))
	}
	return res.Value, nil
}
