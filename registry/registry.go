// Package registry is the function dispatch table (§4.5): a lookup from
// uppercase name to an arity check plus a handler, with alias support.
package registry

import (
	"strings"

	"karl/cellvalue"
	"karl/evalerr"
)

// Arg is an evaluated function argument: either a scalar Value or a Range,
// depending on what the corresponding AST node was.
type Arg struct {
	IsRange bool
	Value   cellvalue.Value
	Range   cellvalue.Range
}

// Values flattens a over both shapes into a single scalar slice, in
// row-major order for ranges. Used by aggregates that don't care about
// 2-D shape (SUM, AVERAGE, MIN, MAX, COUNT).
func (a Arg) Values() []cellvalue.Value {
	if a.IsRange {
		return a.Range.Flatten()
	}
	return []cellvalue.Value{a.Value}
}

type Handler func(args []Arg) (cellvalue.Value, *evalerr.Error)

type Entry struct {
	Name    string
	Arity   func(n int) bool
	Handler Handler
	Aliases []string
}

type Registry struct {
	entries map[string]*Entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

func (r *Registry) Register(e *Entry) {
	r.entries[e.Name] = e
	for _, alias := range e.Aliases {
		r.entries[alias] = e
	}
}

// Lookup resolves name to its entry, ignoring case.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	e, ok := r.entries[strings.ToUpper(name)]
	return e, ok
}

// AtLeast builds an arity predicate for "n or more arguments".
func AtLeast(n int) func(int) bool {
	return func(got int) bool { return got >= n }
}

// Exactly builds an arity predicate for an exact argument count.
func Exactly(n int) func(int) bool {
	return func(got int) bool { return got == n }
}

// OneOf builds an arity predicate matching any of the given counts.
func OneOf(counts ...int) func(int) bool {
	return func(got int) bool {
		for _, c := range counts {
			if got == c {
				return true
			}
		}
		return false
	}
}

// OddAtLeast builds an arity predicate for "odd count, >= n" (SUMIFS).
func OddAtLeast(n int) func(int) bool {
	return func(got int) bool { return got >= n && got%2 == 1 }
}
