// Package order resolves before/after constraints between component names
// into one linear sequence.
//
// Names are placed one at a time, in input order, at a position that satisfies
// their constraints against the names already placed. When an earlier name has
// to move behind the new one, it is lifted together with everything that must
// follow it. Only a real cycle loses an edge: the constraints pointing into
// the placed names are kept, and those of the new name that would close the
// cycle are dropped. Dropped edges are reported, never returned as errors.
package order

import "slices"

// Node declares the constraints of one name. Before lists names that must come
// after this one; After lists names that must come before it.
type Node struct {
	Name   string
	Before []string
	After  []string
}

// Edge is a constraint "From runs before To".
type Edge struct {
	From string
	To   string
}

type Result struct {
	Order   []string
	Dropped []Edge
}

// Solve returns a permutation of the distinct input names. Names without a
// constraint between them keep their relative input order unless a later
// constraint lifts one of them. Constraints naming unknown names are ignored.
func Solve(nodes []Node) Result {
	known := make(map[string]bool, len(nodes))
	unique := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if known[n.Name] {
			continue
		}
		known[n.Name] = true
		unique = append(unique, n)
	}

	// preds[x]: names that must run before x.
	preds := make(map[string]map[string]bool, len(unique))
	addEdge := func(from, to string) {
		if from == to || !known[from] || !known[to] {
			return
		}
		if preds[to] == nil {
			preds[to] = make(map[string]bool)
		}
		preds[to][from] = true
	}
	for _, n := range unique {
		for _, b := range n.Before {
			addEdge(n.Name, b)
		}
		for _, a := range n.After {
			addEdge(a, n.Name)
		}
	}

	var res Result
	// kept[x]: successors of x over the edges retained so far. The kept graph
	// over placed names is acyclic.
	kept := make(map[string]map[string]bool, len(unique))
	keep := func(from, to string) {
		if kept[from] == nil {
			kept[from] = make(map[string]bool)
		}
		kept[from][to] = true
	}
	reaches := func(from, to string) bool {
		seen := map[string]bool{from: true}
		stack := []string{from}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if cur == to {
				return true
			}
			for next := range kept[cur] {
				if !seen[next] {
					seen[next] = true
					stack = append(stack, next)
				}
			}
		}
		return false
	}

	out := make([]string, 0, len(unique))
	for _, n := range unique {
		name := n.Name
		for _, placed := range out {
			if preds[name][placed] {
				keep(placed, name)
			}
		}
		for _, placed := range out {
			if !preds[placed][name] {
				continue
			}
			if reaches(placed, name) {
				res.Dropped = append(res.Dropped, Edge{From: name, To: placed})
				continue
			}
			keep(name, placed)
		}

		lo, hi := bounds(out, name, kept)
		if lo <= hi {
			out = slices.Insert(out, hi, name)
			continue
		}
		// A successor sits before a predecessor. Lift every name reachable
		// from the new one out of that window and re-insert them, in their
		// current order, right after it.
		var moved []string
		rest := make([]string, 0, len(out))
		for i, placed := range out {
			if i >= hi && i < lo && reaches(name, placed) {
				moved = append(moved, placed)
				continue
			}
			rest = append(rest, placed)
		}
		lo, _ = bounds(rest, name, kept)
		out = slices.Insert(rest, lo, append([]string{name}, moved...)...)
	}
	res.Order = out
	return res
}

// bounds returns lo, the first index after every kept predecessor of name,
// and hi, the index of its first kept successor.
func bounds(out []string, name string, kept map[string]map[string]bool) (lo, hi int) {
	hi = len(out)
	for i, placed := range out {
		if kept[placed][name] {
			lo = i + 1
		}
	}
	for i, placed := range out {
		if kept[name][placed] {
			hi = i
			break
		}
	}
	return lo, hi
}

// Names is a convenience wrapper returning only the order.
func Names(nodes []Node) []string {
	return Solve(nodes).Order
}
