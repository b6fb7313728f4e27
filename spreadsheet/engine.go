// Package spreadsheet implements the reactive engine described in §4.10: a
// single entry point, on_cell_changed, that reads raw content from the
// Model, rebuilds dependency edges, detects cycles, and re-evaluates every
// transitively affected cell in topological order.
package spreadsheet

import (
	"strconv"
	"strings"
	"sync"

	"karl/address"
	"karl/cellrange"
	"karl/cellvalue"
	"karl/depgraph"
	"karl/evalerr"
	"karl/eval"
	"karl/lexer"
	"karl/model"
	"karl/parser"
	"karl/registry"
	"karl/token"
)

// Result is the cached outcome of evaluating one cell: either a value or a
// recorded error, never both.
type Result struct {
	Value cellvalue.Value
	Err   *evalerr.Error
}

// Listener is notified, in topological order, after a cell's cached result
// changes.
type Listener func(id address.CellID, res Result)

// Engine owns the Model, dependency graph, function registry, and result
// cache; it is the only thing that parses or evaluates a formula. The
// core is single-threaded and synchronous per the concurrency model: a
// mutex only protects against callers invoking the engine from multiple
// goroutines, not against re-entrancy from within a listener.
type Engine struct {
	mu sync.Mutex

	model    *model.Model
	graph    *depgraph.Graph
	registry *registry.Registry

	results map[address.CellID]Result

	cellListeners map[address.CellID][]Listener
	allListeners  []Listener

	running bool // re-entrancy guard, per §5
}

// NewEngine builds an engine over a fixed rows x cols grid.
func NewEngine(rows, cols int) *Engine {
	return &Engine{
		model:         model.New(rows, cols),
		graph:         depgraph.New(),
		registry:      registry.Default(),
		results:       make(map[address.CellID]Result),
		cellListeners: make(map[address.CellID][]Listener),
	}
}

// Model exposes the underlying passive store, e.g. for geometry and
// clipboard operations that don't need to go through the engine.
func (e *Engine) Model() *model.Model { return e.model }

// Result implements eval.Lookup, reading a cell's last cached result.
func (e *Engine) Result(id address.CellID) (eval.CellResult, bool) {
	r, ok := e.results[id]
	if !ok {
		return eval.CellResult{}, false
	}
	return eval.CellResult{Value: r.Value, Err: r.Err}, true
}

// GetResult is the external-facing accessor named in §6.
func (e *Engine) GetResult(id address.CellID) (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.results[id]
	return r, ok
}

// Subscribe registers a listener for a single cell's change notifications.
func (e *Engine) Subscribe(id address.CellID, l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cellListeners[id] = append(e.cellListeners[id], l)
}

// SubscribeAll registers a listener for every cell's change notifications.
func (e *Engine) SubscribeAll(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.allListeners = append(e.allListeners, l)
}

// SetContent writes raw content through the Model and runs the full
// reactive pipeline for id.
func (e *Engine) SetContent(id address.CellID, raw string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.model.SetContent(id, raw); err != nil {
		return err
	}
	e.onCellChanged(id)
	return nil
}

// RefreshAll re-evaluates every cell with content. Order is irrelevant
// because re-evaluation is idempotent once dependency edges are correct;
// each cell is still run through the full pipeline to rebuild its edges.
func (e *Engine) RefreshAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range e.model.NonEmptyCells() {
		e.onCellChanged(id)
	}
}

// ExportState serializes the underlying model to the persistence format.
func (e *Engine) ExportState() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.ExportState()
}

// ImportState replaces the underlying model from the persistence format
// and re-evaluates every loaded cell, since content changed without going
// through SetContent.
func (e *Engine) ImportState(data []byte) error {
	e.mu.Lock()
	if err := e.model.ImportState(data); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	e.RefreshAll()
	return nil
}

// onCellChanged is §4.10's pipeline. Caller must hold e.mu.
func (e *Engine) onCellChanged(c address.CellID) {
	if e.running {
		// Re-entrant calls are an unsupported precondition violation. A
		// listener calling back into SetContent blocks on e.mu (held while
		// publishing) before it reaches this flag; the flag is a defensive
		// check only.
		return
	}
	e.running = true
	defer func() { e.running = false }()

	raw := e.model.GetContent(c)

	edges := forwardEdges(raw)
	e.graph.ReplaceEdges(c, edges)

	if cycle := e.graph.DetectCycle(c); cycle != nil {
		e.results[c] = Result{Err: evalerr.New(evalerr.KindCycle, "Circular dependency: "+depgraph.FormatCycle(cycle))}
		e.publish(c)
		return
	}

	order := e.graph.Affected(c)
	for _, id := range order {
		e.evaluateCell(id)
	}
	for _, id := range order {
		e.publish(id)
	}
}

// forwardEdges computes the set of cells raw depends on: empty unless raw
// is a formula, in which case every CellRef and every member of every
// Range is collected.
func forwardEdges(raw string) []address.CellID {
	if !strings.HasPrefix(raw, "=") {
		return nil
	}

	seen := make(map[address.CellID]struct{})
	var deps []address.CellID
	add := func(id address.CellID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		deps = append(deps, id)
	}

	l := lexer.New(raw[1:])
	var pendingRangeStart *token.Token
	rangePending := false
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		switch tok.Type {
		case token.CELLREF:
			cur := tok
			if rangePending && pendingRangeStart != nil {
				members, err := cellrange.Expand(address.CellID(pendingRangeStart.Literal), address.CellID(cur.Literal))
				if err == nil {
					for _, m := range members {
						add(m)
					}
				} else {
					add(address.CellID(cur.Literal))
				}
				pendingRangeStart = nil
				rangePending = false
			} else {
				add(address.CellID(cur.Literal))
				t := cur
				pendingRangeStart = &t
			}
		case token.COLON:
			// Keep pendingRangeStart; the next CELLREF closes the range.
			rangePending = true
		default:
			pendingRangeStart = nil
			rangePending = false
		}
	}
	return deps
}

// evaluateCell implements §4.10 step 6 for a single cell. Caller must hold
// e.mu.
func (e *Engine) evaluateCell(id address.CellID) {
	raw := e.model.GetContent(id)

	switch {
	case raw == "":
		e.results[id] = Result{Value: cellvalue.Empty()}

	case strings.HasPrefix(raw, "="):
		body := raw[1:]
		expr, parseErrs := parser.Parse(body)
		if len(parseErrs) > 0 {
			msg := parser.FormatParseErrors(parseErrs, body, string(id))
			e.results[id] = Result{Err: evalerr.New(evalerr.KindParseError, msg)}
			return
		}
		val, evalErr := eval.Evaluate(expr, e, e.registry)
		if evalErr != nil {
			e.results[id] = Result{Err: evalErr}
			return
		}
		e.results[id] = Result{Value: val}

	default:
		trimmed := strings.TrimSpace(raw)
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil && numberRoundTrips(trimmed, f) {
			e.results[id] = Result{Value: cellvalue.Number(f)}
		} else {
			e.results[id] = Result{Value: cellvalue.Text(raw)}
		}
	}
}

// numberRoundTrips reports whether f's canonical textual form matches
// trimmed, per §4.10 step 6's "textual round-trip" requirement — this
// rejects inputs like "1e10" or "007" from silently becoming numbers with
// a different on-screen representation than what was typed, while still
// accepting the bare forms spreadsheets commonly accept ("10", "3.14",
// "-2.5").
func numberRoundTrips(trimmed string, f float64) bool {
	return strconv.FormatFloat(f, 'f', -1, 64) == trimmed
}

func (e *Engine) publish(id address.CellID) {
	res := e.results[id]
	for _, l := range e.cellListeners[id] {
		l(id, res)
	}
	for _, l := range e.allListeners {
		l(id, res)
	}
}
