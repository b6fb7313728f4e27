// Package depgraph tracks forward ("reads") and reverse ("read by") edges
// between cells, and answers the two graph questions the engine needs on
// every mutation: is there a cycle reachable from this cell, and which
// cells are transitively affected by it, in an order safe to re-evaluate.
package depgraph

import (
	"strings"

	"golang.org/x/exp/maps"

	"karl/address"
)

type Graph struct {
	forward map[address.CellID]map[address.CellID]struct{}
	reverse map[address.CellID]map[address.CellID]struct{}
}

func New() *Graph {
	return &Graph{
		forward: make(map[address.CellID]map[address.CellID]struct{}),
		reverse: make(map[address.CellID]map[address.CellID]struct{}),
	}
}

// ReplaceEdges installs c's new set of forward edges, removing the old ones
// first so forward and reverse stay mutually consistent: b is in
// forward[a] iff a is in reverse[b].
func (g *Graph) ReplaceEdges(c address.CellID, deps []address.CellID) {
	for old := range g.forward[c] {
		if set, ok := g.reverse[old]; ok {
			delete(set, c)
		}
	}

	next := make(map[address.CellID]struct{}, len(deps))
	for _, d := range deps {
		next[d] = struct{}{}
		if g.reverse[d] == nil {
			g.reverse[d] = make(map[address.CellID]struct{})
		}
		g.reverse[d][c] = struct{}{}
	}
	g.forward[c] = next
}

// Forward returns the cells c's formula reads, in no particular order.
func (g *Graph) Forward(c address.CellID) []address.CellID {
	return keys(g.forward[c])
}

// Reverse returns the cells whose formulas read c.
func (g *Graph) Reverse(c address.CellID) []address.CellID {
	return keys(g.reverse[c])
}

func keys(m map[address.CellID]struct{}) []address.CellID {
	return maps.Keys(m)
}

// DetectCycle runs a DFS over forward edges from start, maintaining a
// recursion stack. On revisiting a node already on the stack it returns the
// stack slice from that node through the current path — a concrete cycle,
// not just "a cycle exists somewhere". Returns nil if start's reachable
// subgraph is acyclic.
func (g *Graph) DetectCycle(start address.CellID) []address.CellID {
	var stack []address.CellID
	onStack := make(map[address.CellID]int) // cell -> index in stack
	visited := make(map[address.CellID]bool)

	var visit func(c address.CellID) []address.CellID
	visit = func(c address.CellID) []address.CellID {
		if idx, on := onStack[c]; on {
			cycle := append([]address.CellID{}, stack[idx:]...)
			return append(cycle, c)
		}
		if visited[c] {
			return nil
		}
		visited[c] = true

		onStack[c] = len(stack)
		stack = append(stack, c)

		for next := range g.forward[c] {
			if cyc := visit(next); cyc != nil {
				return cyc
			}
		}

		delete(onStack, c)
		stack = stack[:len(stack)-1]
		return nil
	}

	return visit(start)
}

// Affected performs a DFS over reverse edges from c and returns the visited
// cells in reverse post-order, so every cell appears before any of its
// transitive dependents — a topological order safe for re-evaluation. c
// itself is always first.
func (g *Graph) Affected(c address.CellID) []address.CellID {
	visited := make(map[address.CellID]bool)
	var postOrder []address.CellID

	var visit func(cur address.CellID)
	visit = func(cur address.CellID) {
		if visited[cur] {
			return
		}
		visited[cur] = true
		for next := range g.reverse[cur] {
			visit(next)
		}
		postOrder = append(postOrder, cur)
	}
	visit(c)

	// Reverse postOrder in place so c (visited first, appended last) ends
	// up first and leaves end up last.
	for i, j := 0, len(postOrder)-1; i < j; i, j = i+1, j-1 {
		postOrder[i], postOrder[j] = postOrder[j], postOrder[i]
	}
	return postOrder
}

// FormatCycle renders a cycle path as "A->B->...->A" for error messages.
func FormatCycle(path []address.CellID) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = string(id)
	}
	return strings.Join(parts, "->")
}
