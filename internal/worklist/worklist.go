// Package worklist provides the queue and set types used by the
// fixed-point solvers.
package worklist

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/tools/container/intsets"
)

// Queue is a queue of pending work items. By default it is FIFO; a
// LIFO queue pops the most recently pushed item first.
type Queue[T any] struct {
	items []T
	head  int
	LIFO  bool
}

func (q *Queue[T]) Push(x T) {
	q.items = append(q.items, x)
}

// Pop removes and returns the next item. It panics if the queue is
// empty.
func (q *Queue[T]) Pop() T {
	if q.Len() == 0 {
		panic("pop from empty worklist")
	}
	var zero T
	if q.LIFO {
		n := len(q.items) - 1
		x := q.items[n]
		q.items[n] = zero
		q.items = q.items[:n]
		if len(q.items) == q.head {
			q.items = q.items[:0]
			q.head = 0
		}
		return x
	}
	x := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		// reuse the backing array once drained
		q.items = q.items[:0]
		q.head = 0
	}
	return x
}

func (q *Queue[T]) Len() int { return len(q.items) - q.head }

// Set is a set of small non-negative integer identifiers, such as
// block or value IDs. The zero value is an empty set. A Set must not
// be copied after first use.
type Set[T constraints.Integer] struct {
	s intsets.Sparse
}

// Add inserts x and reports whether the set changed.
func (s *Set[T]) Add(x T) bool { return s.s.Insert(int(x)) }

// Remove deletes x and reports whether the set changed.
func (s *Set[T]) Remove(x T) bool { return s.s.Remove(int(x)) }

func (s *Set[T]) Has(x T) bool { return s.s.Has(int(x)) }

func (s *Set[T]) Len() int { return s.s.Len() }

// Elems returns the elements of the set in ascending order.
func (s *Set[T]) Elems() []T {
	ints := s.s.AppendTo(nil)
	out := make([]T, len(ints))
	for i, x := range ints {
		out[i] = T(x)
	}
	return out
}

// Copy makes s a copy of o.
func (s *Set[T]) Copy(o *Set[T]) { s.s.Copy(&o.s) }
