// Package dfa provides types and functions for implementing data-flow
// analyses over the ir package.
package dfa

import (
	"fmt"
	"strings"
)

// Meet defines the [∧] operation for a [meet-semilattice]. It must implement a commutative and associative binary
// operation that returns the greatest lower bound of two states from S.
//
// Code that calls Meet functions is expected to handle the [⊤ and ⊥ elements], as well as implement idempotency. That
// is, the following properties will be enforced:
//
//   - x ∧ ⊤ = x
//   - x ∧ ⊥ = ⊥
//   - x ∧ x = x
//
// [∧]: https://en.wikipedia.org/wiki/Join_and_meet
// [meet-semilattice]: https://en.wikipedia.org/wiki/Semilattice
// [⊤ and ⊥ elements]: https://en.wikipedia.org/wiki/Greatest_element_and_least_element#Top_and_bottom
type Meet[S comparable] func(S, S) S

// Lattice describes a bounded meet-semilattice ⟨S, ∧⟩. Abstract values start at Top, which means "no information", and
// may only descend towards Bottom as an analysis learns more. The height of the lattice bounds the number of times a
// value can change, which is what makes fixed-point iteration terminate.
type Lattice[S comparable] struct {
	Meet   Meet[S]
	Top    S
	Bottom S
}

// Apply returns a ∧ b, handling ⊤, ⊥ and idempotency before calling l.Meet.
func (l *Lattice[S]) Apply(a, b S) S {
	if l.Top == l.Bottom {
		panic("lattice's ⊤ and ⊥ are identical; did you forget to specify them?")
	}
	switch {
	case a == l.Bottom || b == l.Bottom:
		return l.Bottom
	case a == l.Top:
		return b
	case b == l.Top:
		return a
	case a == b:
		return a
	default:
		return l.Meet(a, b)
	}
}

// Descends reports whether replacing old with new moves downwards in the lattice (or stays put), that is, whether
// new ≤ old.
func (l *Lattice[S]) Descends(old, new S) bool {
	return l.Apply(old, new) == new
}

// CheckDescent panics if replacing old with new would move upwards in the lattice. what describes the value being
// updated and is included in the panic message.
func (l *Lattice[S]) CheckDescent(what fmt.Stringer, old, new S) {
	if old == new {
		return
	}
	if m := l.Apply(old, new); m != new {
		panic(fmt.Sprintf("transfer function isn't monotonic; %s: %v -> %v; meet(%v, %v) = %v", what, old, new, old, new, m))
	}
}

// Dot returns a directed graph in [Graphviz] format that represents the finite meet-semilattice ⟨S, ≤⟩.
// Vertices represent elements in S and edges represent the ≤ relation between elements.
// We map from ⟨S, ∧⟩ to ⟨S, ≤⟩ by computing x ∧ y for all elements in [S]², where x ≤ y iff x ∧ y == x.
//
// The resulting graph can be filtered through [tred] to compute the transitive reduction of the graph, the
// visualisation of which corresponds to the Hasse diagram of the semilattice.
//
// The set of states should include the ⊤ and ⊥ elements.
//
// [Graphviz]: https://graphviz.org/
// [tred]: https://graphviz.org/docs/cli/tred/
func (l *Lattice[S]) Dot(states []S) string {
	var sb strings.Builder
	sb.WriteString("digraph{\n")
	sb.WriteString("rankdir=\"BT\"\n")

	for i, v := range states {
		if vs, ok := any(v).(fmt.Stringer); ok {
			fmt.Fprintf(&sb, "n%d [label=%q]\n", i, vs)
		} else {
			fmt.Fprintf(&sb, "n%d [label=%q]\n", i, fmt.Sprintf("%v", v))
		}
	}

	for dx, x := range states {
		for dy, y := range states {
			if dx == dy {
				continue
			}

			if l.Apply(x, y) == x {
				fmt.Fprintf(&sb, "n%d -> n%d\n", dx, dy)
			}
		}
	}

	sb.WriteString("}")
	return sb.String()
}
