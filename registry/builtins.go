package registry

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"karl/cellvalue"
	"karl/evalerr"
)

// Default builds the registry of required built-in functions (§4.5).
func Default() *Registry {
	r := New()

	r.Register(&Entry{Name: "SUM", Arity: AtLeast(1), Handler: sumFn})
	r.Register(&Entry{Name: "AVERAGE", Aliases: []string{"AVG"}, Arity: AtLeast(1), Handler: averageFn})
	r.Register(&Entry{Name: "MIN", Arity: AtLeast(1), Handler: minFn})
	r.Register(&Entry{Name: "MAX", Arity: AtLeast(1), Handler: maxFn})
	r.Register(&Entry{Name: "COUNT", Arity: AtLeast(1), Handler: countFn})

	r.Register(&Entry{Name: "ADD", Arity: Exactly(2), Handler: binArith(func(a, b float64) float64 { return a + b })})
	r.Register(&Entry{Name: "SUB", Arity: Exactly(2), Handler: binArith(func(a, b float64) float64 { return a - b })})
	r.Register(&Entry{Name: "MUL", Aliases: []string{"MULTIPLY"}, Arity: Exactly(2), Handler: binArith(func(a, b float64) float64 { return a * b })})
	r.Register(&Entry{Name: "DIV", Aliases: []string{"DIVIDE"}, Arity: Exactly(2), Handler: divFn})

	r.Register(&Entry{Name: "IF", Arity: Exactly(3), Handler: ifFn})

	r.Register(&Entry{Name: "CONCATENATE", Aliases: []string{"CONCAT"}, Arity: AtLeast(1), Handler: concatFn})
	r.Register(&Entry{Name: "LEFT", Arity: Exactly(2), Handler: leftFn})
	r.Register(&Entry{Name: "RIGHT", Arity: Exactly(2), Handler: rightFn})
	r.Register(&Entry{Name: "TRIM", Arity: Exactly(1), Handler: trimFn})
	r.Register(&Entry{Name: "UPPER", Arity: Exactly(1), Handler: upperFn})
	r.Register(&Entry{Name: "LOWER", Arity: Exactly(1), Handler: lowerFn})

	r.Register(&Entry{Name: "NOW", Arity: Exactly(0), Handler: nowFn})
	r.Register(&Entry{Name: "TODAY", Arity: Exactly(0), Handler: todayFn})
	r.Register(&Entry{Name: "DATE", Arity: Exactly(3), Handler: dateFn})
	r.Register(&Entry{Name: "DATEDIF", Arity: Exactly(3), Handler: datedifFn})

	r.Register(&Entry{Name: "COUNTIF", Arity: Exactly(2), Handler: countifFn})
	r.Register(&Entry{Name: "SUMIF", Arity: OneOf(2, 3), Handler: sumifFn})
	r.Register(&Entry{Name: "SUMIFS", Arity: OddAtLeast(3), Handler: sumifsFn})

	r.Register(&Entry{Name: "VLOOKUP", Arity: OneOf(3, 4), Handler: vlookupFn})
	r.Register(&Entry{Name: "HLOOKUP", Arity: OneOf(3, 4), Handler: hlookupFn})
	r.Register(&Entry{Name: "MATCH", Arity: OneOf(2, 3), Handler: matchFn})
	r.Register(&Entry{Name: "INDEX", Arity: OneOf(2, 3), Handler: indexFn})

	return r
}

func argErr(msg string) *evalerr.Error { return evalerr.New(evalerr.KindArgumentError, msg) }
func typeErr(msg string) *evalerr.Error { return evalerr.New(evalerr.KindTypeMismatch, msg) }

func numAggregate(args []Arg) ([]float64, *evalerr.Error) {
	var out []float64
	for _, a := range args {
		for _, v := range a.Values() {
			if v.IsEmpty() {
				continue // empties are skipped by aggregate functions
			}
			f, ok := v.ToNumber(true)
			if !ok {
				return nil, typeErr("expected numeric value in aggregate argument")
			}
			out = append(out, f)
		}
	}
	return out, nil
}

func sumFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	nums, err := numAggregate(args)
	if err != nil {
		return cellvalue.Value{}, err
	}
	var sum float64
	for _, n := range nums {
		sum += n
	}
	return cellvalue.Number(sum), nil
}

func averageFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	nums, err := numAggregate(args)
	if err != nil {
		return cellvalue.Value{}, err
	}
	if len(nums) == 0 {
		return cellvalue.Value{}, argErr("AVERAGE requires at least one numeric value")
	}
	var sum float64
	for _, n := range nums {
		sum += n
	}
	return cellvalue.Number(sum / float64(len(nums))), nil
}

func minFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	nums, err := numAggregate(args)
	if err != nil {
		return cellvalue.Value{}, err
	}
	if len(nums) == 0 {
		return cellvalue.Value{}, argErr("MIN requires at least one numeric value")
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return cellvalue.Number(m), nil
}

func maxFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	nums, err := numAggregate(args)
	if err != nil {
		return cellvalue.Value{}, err
	}
	if len(nums) == 0 {
		return cellvalue.Value{}, argErr("MAX requires at least one numeric value")
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return cellvalue.Number(m), nil
}

func countFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	count := 0
	for _, a := range args {
		for _, v := range a.Values() {
			if _, ok := v.ToNumber(false); ok && !v.IsEmpty() {
				count++
			}
		}
	}
	return cellvalue.Number(float64(count)), nil
}

func binArith(op func(a, b float64) float64) Handler {
	return func(args []Arg) (cellvalue.Value, *evalerr.Error) {
		a, err := scalarNumber(args[0])
		if err != nil {
			return cellvalue.Value{}, err
		}
		b, err := scalarNumber(args[1])
		if err != nil {
			return cellvalue.Value{}, err
		}
		return cellvalue.Number(op(a, b)), nil
	}
}

func divFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	a, err := scalarNumber(args[0])
	if err != nil {
		return cellvalue.Value{}, err
	}
	b, err := scalarNumber(args[1])
	if err != nil {
		return cellvalue.Value{}, err
	}
	if b == 0 {
		return cellvalue.Value{}, evalerr.New(evalerr.KindDivisionByZero, "division by zero")
	}
	return cellvalue.Number(a / b), nil
}

func scalarNumber(a Arg) (float64, *evalerr.Error) {
	if a.IsRange {
		return 0, typeErr("expected a scalar, got a range")
	}
	f, ok := a.Value.ToNumber(false)
	if !ok {
		return 0, typeErr("expected a numeric value")
	}
	return f, nil
}

func ifFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	if args[0].IsRange {
		return cellvalue.Value{}, typeErr("IF condition must be a scalar")
	}
	if args[0].Value.Truthy() {
		if args[1].IsRange {
			return cellvalue.Value{}, typeErr("IF branch must be a scalar")
		}
		return args[1].Value, nil
	}
	if args[2].IsRange {
		return cellvalue.Value{}, typeErr("IF branch must be a scalar")
	}
	return args[2].Value, nil
}

func concatFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	var b strings.Builder
	for _, a := range args {
		for _, v := range a.Values() {
			b.WriteString(v.String())
		}
	}
	return cellvalue.Text(b.String()), nil
}

func leftFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	return substrFn(args, true)
}

func rightFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	return substrFn(args, false)
}

func substrFn(args []Arg, fromLeft bool) (cellvalue.Value, *evalerr.Error) {
	if args[0].IsRange {
		return cellvalue.Value{}, typeErr("expected a scalar string")
	}
	s := args[0].Value.String()
	n, err := scalarNumber(args[1])
	if err != nil {
		return cellvalue.Value{}, err
	}
	count := int(n)
	runes := []rune(s)
	if count < 0 {
		count = 0
	}
	if count > len(runes) {
		count = len(runes)
	}
	if fromLeft {
		return cellvalue.Text(string(runes[:count])), nil
	}
	return cellvalue.Text(string(runes[len(runes)-count:])), nil
}

func trimFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	if args[0].IsRange {
		return cellvalue.Value{}, typeErr("expected a scalar string")
	}
	return cellvalue.Text(strings.TrimFunc(args[0].Value.String(), unicode.IsSpace)), nil
}

func upperFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	if args[0].IsRange {
		return cellvalue.Value{}, typeErr("expected a scalar string")
	}
	return cellvalue.Text(strings.ToUpper(args[0].Value.String())), nil
}

func lowerFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	if args[0].IsRange {
		return cellvalue.Value{}, typeErr("expected a scalar string")
	}
	return cellvalue.Text(strings.ToLower(args[0].Value.String())), nil
}

func nowFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	return cellvalue.Number(float64(time.Now().UnixMilli())), nil
}

func todayFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return cellvalue.Number(float64(midnight.UnixMilli())), nil
}

func dateFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	y, err := scalarNumber(args[0])
	if err != nil {
		return cellvalue.Value{}, err
	}
	m, err := scalarNumber(args[1])
	if err != nil {
		return cellvalue.Value{}, err
	}
	d, err := scalarNumber(args[2])
	if err != nil {
		return cellvalue.Value{}, err
	}
	t := time.Date(int(y), time.Month(int(m)), int(d), 0, 0, 0, 0, time.Local)
	return cellvalue.Number(float64(t.UnixMilli())), nil
}

func datedifFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	startMs, err := scalarNumber(args[0])
	if err != nil {
		return cellvalue.Value{}, err
	}
	endMs, err := scalarNumber(args[1])
	if err != nil {
		return cellvalue.Value{}, err
	}
	if args[2].IsRange {
		return cellvalue.Value{}, typeErr("DATEDIF unit must be a scalar string")
	}
	unit := strings.ToUpper(strings.TrimSpace(args[2].Value.String()))

	start := time.UnixMilli(int64(startMs))
	end := time.UnixMilli(int64(endMs))

	switch unit {
	case "D":
		days := end.Sub(start).Hours() / 24
		return cellvalue.Number(float64(int(days))), nil
	case "M":
		months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
		if end.Day() < start.Day() {
			months--
		}
		return cellvalue.Number(float64(months)), nil
	case "Y":
		years := end.Year() - start.Year()
		if end.Month() < start.Month() || (end.Month() == start.Month() && end.Day() < start.Day()) {
			years--
		}
		return cellvalue.Number(float64(years)), nil
	default:
		return cellvalue.Value{}, argErr("DATEDIF unit must be D, M, or Y")
	}
}

// parseCriteria splits a criteria string like "<=10" into an operator
// ("<=", ">", ... or "" for exact match) and the remaining literal text.
func parseCriteria(criteria string) (op string, literal string) {
	for _, candidate := range []string{">=", "<=", "<>", ">", "<", "="} {
		if strings.HasPrefix(criteria, candidate) {
			return candidate, strings.TrimSpace(criteria[len(candidate):])
		}
	}
	return "", criteria
}

func matchesCriteria(v cellvalue.Value, criteria string) bool {
	op, literal := parseCriteria(criteria)
	if op == "" || op == "=" {
		if num, ok := v.ToNumber(false); ok {
			if lit, err := strconv.ParseFloat(literal, 64); err == nil {
				return num == lit
			}
		}
		return strings.EqualFold(v.String(), literal)
	}

	vNum, vOK := v.ToNumber(false)
	litFloat, err := strconv.ParseFloat(literal, 64)
	numericCompare := vOK && err == nil
	if op == "<>" {
		if numericCompare {
			return vNum != litFloat
		}
		return !strings.EqualFold(v.String(), literal)
	}
	if !numericCompare {
		return false // non-parseable string is never numerically equal/ordered
	}
	switch op {
	case ">":
		return vNum > litFloat
	case "<":
		return vNum < litFloat
	case ">=":
		return vNum >= litFloat
	case "<=":
		return vNum <= litFloat
	}
	return false
}

func countifFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	if args[1].IsRange {
		return cellvalue.Value{}, typeErr("COUNTIF criteria must be a scalar")
	}
	criteria := args[1].Value.String()
	count := 0
	for _, v := range args[0].Values() {
		if matchesCriteria(v, criteria) {
			count++
		}
	}
	return cellvalue.Number(float64(count)), nil
}

func sumifFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	if args[1].IsRange {
		return cellvalue.Value{}, typeErr("SUMIF criteria must be a scalar")
	}
	criteria := args[1].Value.String()
	rangeVals := args[0].Values()
	sumVals := rangeVals
	if len(args) == 3 {
		sumVals = args[2].Values()
	}
	if len(sumVals) != len(rangeVals) {
		return cellvalue.Value{}, argErr("SUMIF sum_range must match range in size")
	}
	var sum float64
	for i, v := range rangeVals {
		if !matchesCriteria(v, criteria) {
			continue
		}
		f, ok := sumVals[i].ToNumber(true)
		if !ok {
			continue
		}
		sum += f
	}
	return cellvalue.Number(sum), nil
}

func sumifsFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	sumVals := args[0].Values()
	pairs := args[1:]
	if len(pairs)%2 != 0 {
		return cellvalue.Value{}, argErr("SUMIFS requires criteria_range/criteria pairs")
	}
	var sum float64
	for i := range sumVals {
		matchAll := true
		for p := 0; p < len(pairs); p += 2 {
			critRange := pairs[p].Values()
			if i >= len(critRange) {
				matchAll = false
				break
			}
			if pairs[p+1].IsRange {
				return cellvalue.Value{}, typeErr("SUMIFS criteria must be scalars")
			}
			if !matchesCriteria(critRange[i], pairs[p+1].Value.String()) {
				matchAll = false
				break
			}
		}
		if !matchAll {
			continue
		}
		f, ok := sumVals[i].ToNumber(true)
		if !ok {
			continue
		}
		sum += f
	}
	return cellvalue.Number(sum), nil
}

func lookupExact(v cellvalue.Value, target cellvalue.Value) bool {
	if vn, ok := v.ToNumber(false); ok {
		if tn, ok2 := target.ToNumber(false); ok2 {
			return vn == tn
		}
	}
	return strings.EqualFold(v.String(), target.String())
}

func vlookupFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	if !args[1].IsRange {
		return cellvalue.Value{}, typeErr("VLOOKUP requires a range table_array")
	}
	lookup := args[0].Value
	table := args[1].Range
	colIdx, err := scalarNumber(args[2])
	if err != nil {
		return cellvalue.Value{}, err
	}
	approximate := len(args) == 4 && scalarTruthy(args[3])

	rowIdx, found := findRow(table, 0, lookup, approximate)
	if !found {
		return cellvalue.Value{}, evalerr.New(evalerr.KindArgumentError, "VLOOKUP: no match found")
	}
	c := int(colIdx) - 1
	if c < 0 || c >= table.NumCols() {
		return cellvalue.Value{}, argErr("VLOOKUP: col_index out of range")
	}
	return table.Rows[rowIdx][c], nil
}

func hlookupFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	if !args[1].IsRange {
		return cellvalue.Value{}, typeErr("HLOOKUP requires a range table_array")
	}
	lookup := args[0].Value
	table := args[1].Range
	rowIdxArg, err := scalarNumber(args[2])
	if err != nil {
		return cellvalue.Value{}, err
	}
	approximate := len(args) == 4 && scalarTruthy(args[3])

	colIdx, found := findCol(table, 0, lookup, approximate)
	if !found {
		return cellvalue.Value{}, evalerr.New(evalerr.KindArgumentError, "HLOOKUP: no match found")
	}
	r := int(rowIdxArg) - 1
	if r < 0 || r >= table.NumRows() {
		return cellvalue.Value{}, argErr("HLOOKUP: row_index out of range")
	}
	return table.Rows[r][colIdx], nil
}

func matchFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	if !args[1].IsRange {
		return cellvalue.Value{}, typeErr("MATCH requires a range")
	}
	lookup := args[0].Value
	vec := args[1].Range.Flatten()
	matchType := 1.0
	if len(args) == 3 {
		mt, err := scalarNumber(args[2])
		if err != nil {
			return cellvalue.Value{}, err
		}
		matchType = mt
	}

	switch {
	case matchType == 0:
		for i, v := range vec {
			if lookupExact(v, lookup) {
				return cellvalue.Number(float64(i + 1)), nil
			}
		}
	case matchType > 0:
		best := -1
		for i, v := range vec {
			n, ok := v.ToNumber(false)
			ln, ok2 := lookup.ToNumber(false)
			if ok && ok2 && n <= ln {
				best = i
			}
		}
		if best >= 0 {
			return cellvalue.Number(float64(best + 1)), nil
		}
	default:
		for i, v := range vec {
			n, ok := v.ToNumber(false)
			ln, ok2 := lookup.ToNumber(false)
			if ok && ok2 && n >= ln {
				return cellvalue.Number(float64(i + 1)), nil
			}
		}
	}
	return cellvalue.Value{}, evalerr.New(evalerr.KindArgumentError, "MATCH: no match found")
}

func indexFn(args []Arg) (cellvalue.Value, *evalerr.Error) {
	if !args[0].IsRange {
		return cellvalue.Value{}, typeErr("INDEX requires a range array")
	}
	table := args[0].Range
	rowArg, err := scalarNumber(args[1])
	if err != nil {
		return cellvalue.Value{}, err
	}
	row := int(rowArg) - 1
	col := 0
	if len(args) == 3 {
		colArg, err := scalarNumber(args[2])
		if err != nil {
			return cellvalue.Value{}, err
		}
		col = int(colArg) - 1
	}
	if row < 0 || row >= table.NumRows() || col < 0 || col >= table.NumCols() {
		return cellvalue.Value{}, argErr("INDEX: position out of range")
	}
	return table.Rows[row][col], nil
}

func findRow(table cellvalue.Range, keyCol int, lookup cellvalue.Value, approximate bool) (int, bool) {
	if !approximate {
		for r := 0; r < table.NumRows(); r++ {
			if lookupExact(table.Rows[r][keyCol], lookup) {
				return r, true
			}
		}
		return 0, false
	}
	best, found := -1, false
	for r := 0; r < table.NumRows(); r++ {
		n, ok := table.Rows[r][keyCol].ToNumber(false)
		ln, ok2 := lookup.ToNumber(false)
		if ok && ok2 && n <= ln {
			best, found = r, true
		}
	}
	return best, found
}

func findCol(table cellvalue.Range, keyRow int, lookup cellvalue.Value, approximate bool) (int, bool) {
	if !approximate {
		for c := 0; c < table.NumCols(); c++ {
			if lookupExact(table.Rows[keyRow][c], lookup) {
				return c, true
			}
		}
		return 0, false
	}
	best, found := -1, false
	for c := 0; c < table.NumCols(); c++ {
		n, ok := table.Rows[keyRow][c].ToNumber(false)
		ln, ok2 := lookup.ToNumber(false)
		if ok && ok2 && n <= ln {
			best, found = c, true
		}
	}
	return best, found
}

func scalarTruthy(a Arg) bool {
	if a.IsRange {
		return false
	}
	return a.Value.Truthy()
}
