// Package sccp implements a sparse conditional constant propagation
// style analysis that computes, for a single function, which blocks
// and edges are reachable from the entry and a TypeVal for every SSA
// value.
//
// The algorithm follows Wegman and Zadeck's SCCP (Constant Propagation
// with Conditional Branches, TOPLAS 1991), using two worklists: one of
// CFG edges and one of SSA values whose inputs changed. Instead of
// numeric constants it tracks representation types and known booleans.
// Arithmetic is never folded.
//
// The analysis does not modify the function.
package sccp

import (
	"fmt"
	"log"

	"golang.org/x/exp/slices"

	"honnef.co/go/jitopt/backend"
	"honnef.co/go/jitopt/config"
	"honnef.co/go/jitopt/internal/worklist"
	"honnef.co/go/jitopt/ir"
)

// Edge is a CFG edge. The edge entering the function has From ==
// ir.NoBlock.
type Edge struct {
	From, To ir.BlockID
}

func (e Edge) String() string {
	if e.From == ir.NoBlock {
		return fmt.Sprintf("entry->b%d", e.To)
	}
	return fmt.Sprintf("b%d->b%d", e.From, e.To)
}

// Options control a run of Analyze.
type Options struct {
	// Target is the code generation target. Opcodes it supports must
	// have a transfer rule; a nil Target supports nothing.
	Target *backend.Target
	// BranchSuccessors makes every target of a conditional branch
	// reachable once the branch's block has been evaluated. Without
	// it, only unconditional jumps propagate reachability.
	BranchSuccessors bool
	// CheckMonotonic panics if a value ever moves up the lattice.
	CheckMonotonic bool
	// Debug logs every step of the analysis.
	Debug bool

	// OnEdge, if non-nil, is called for each edge the first time it is
	// visited.
	OnEdge func(e Edge)
	// OnEval, if non-nil, is called before each evaluation of a value.
	OnEval func(id ir.ValueID)
	// OnUpdate, if non-nil, is called whenever the stored value of id
	// changes.
	OnUpdate func(id ir.ValueID, old, new TypeVal)

	// lifo pops worklist items in LIFO order. Only used by tests.
	lifo bool
}

// OptionsFromConfig returns the options described by cfg for target.
func OptionsFromConfig(cfg config.SCCPConfig, target *backend.Target) Options {
	return Options{
		Target:           target,
		BranchSuccessors: cfg.BranchSuccessors,
		CheckMonotonic:   cfg.CheckMonotonic,
		Debug:            cfg.Debug,
	}
}

// Stats counts the work done by one run of the analysis.
type Stats struct {
	EdgesVisited  int
	BlocksReached int
	InstrEvals    int
	PhiEvals      int
	Updates       int
}

// Result is the outcome of the analysis of one function. It is owned
// by the caller.
type Result struct {
	Function *ir.Function
	Stats    Stats

	values    []TypeVal
	reachable worklist.Set[ir.BlockID]
	visited   map[Edge]struct{}
}

// Value returns the abstract value of id. Values that were never
// evaluated, including all values in unreachable blocks, are ⊤.
func (r *Result) Value(id ir.ValueID) TypeVal { return r.values[id] }

// Operand returns the abstract value of an operand.
func (r *Result) Operand(op ir.Operand) TypeVal { return operandValue(r.values, op) }

// Values returns a copy of all abstract values, indexed by ValueID.
func (r *Result) Values() []TypeVal { return append([]TypeVal(nil), r.values...) }

// Reachable reports whether block b is reachable from the entry.
func (r *Result) Reachable(b ir.BlockID) bool { return r.reachable.Has(b) }

// ReachableBlocks returns the reachable blocks in ascending order.
func (r *Result) ReachableBlocks() []ir.BlockID { return r.reachable.Elems() }

// UnreachableBlocks returns the blocks that were never reached, in
// ascending order.
func (r *Result) UnreachableBlocks() []ir.BlockID {
	var out []ir.BlockID
	for _, blk := range r.Function.Blocks {
		if !r.reachable.Has(blk.ID) {
			out = append(out, blk.ID)
		}
	}
	return out
}

// Visited reports whether the edge e was ever taken.
func (r *Result) Visited(e Edge) bool {
	_, ok := r.visited[e]
	return ok
}

// VisitedEdges returns the visited edges, sorted by source and then
// target block. The entry edge comes first.
func (r *Result) VisitedEdges() []Edge {
	out := make([]Edge, 0, len(r.visited))
	for e := range r.visited {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Edge) bool {
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})
	return out
}

type solver struct {
	fn   *ir.Function
	opts *Options
	res  *Result

	edges   worklist.Queue[Edge]
	ssa     worklist.Queue[ir.ValueID]
	pending worklist.Set[ir.ValueID]
}

// Analyze runs the analysis on fn.
//
// It panics with an *UnhandledOpcodeError if fn contains an
// instruction whose opcode is supported by opts.Target but has no
// transfer rule. This indicates that the analysis is out of date with
// respect to the backend.
func Analyze(fn *ir.Function, opts Options) *Result {
	s := &solver{
		fn:   fn,
		opts: &opts,
		res: &Result{
			Function: fn,
			values:   make([]TypeVal, len(fn.Values)),
			visited:  map[Edge]struct{}{},
		},
	}
	s.edges.LIFO = opts.lifo
	s.ssa.LIFO = opts.lifo
	s.run()
	return s.res
}

func (s *solver) debugf(f string, args ...interface{}) {
	if s.opts.Debug {
		log.Printf("sccp: %s: "+f, append([]interface{}{s.fn.Name}, args...)...)
	}
}

func (s *solver) run() {
	s.debugf("analyzing %d blocks, %d values", len(s.fn.Blocks), len(s.fn.Values))
	s.edges.Push(Edge{From: ir.NoBlock, To: s.fn.Entry})
	for s.edges.Len() > 0 || s.ssa.Len() > 0 {
		for s.edges.Len() > 0 {
			s.visitEdge(s.edges.Pop())
		}
		for s.ssa.Len() > 0 {
			id := s.ssa.Pop()
			s.pending.Remove(id)
			s.visitValue(id)
		}
	}
	s.debugf("done: %+v", s.res.Stats)
}

func (s *solver) visitEdge(e Edge) {
	if _, ok := s.res.visited[e]; ok {
		return
	}
	s.res.visited[e] = struct{}{}
	s.res.Stats.EdgesVisited++
	first := s.res.reachable.Add(e.To)
	if first {
		s.res.Stats.BlocksReached++
	}
	s.debugf("visiting edge %s (first visit of block: %t)", e, first)
	if s.opts.OnEdge != nil {
		s.opts.OnEdge(e)
	}

	blk := s.fn.Blocks[e.To]
	// A newly visited edge may change the value flowing into every φ
	// of its target, even if the block was reached before.
	for _, id := range blk.Phis {
		s.update(id, s.eval(s.fn.Values[id]))
	}
	if !first {
		return
	}
	for _, id := range blk.Instrs {
		v := s.fn.Values[id]
		s.update(id, s.eval(v))
		if v.Op == ir.OpBr && s.opts.BranchSuccessors {
			for _, t := range v.Targets {
				s.edges.Push(Edge{From: blk.ID, To: t})
			}
		}
	}
}

func (s *solver) visitValue(id ir.ValueID) {
	s.update(id, s.eval(s.fn.Values[id]))
}

func (s *solver) eval(v *ir.Value) TypeVal {
	if s.opts.OnEval != nil {
		s.opts.OnEval(v.ID)
	}
	if v.IsPhi() {
		s.res.Stats.PhiEvals++
		return s.evalPhi(v)
	}
	s.res.Stats.InstrEvals++
	return s.transfer(v)
}

type valueName struct {
	fn *ir.Function
	id ir.ValueID
}

func (n valueName) String() string { return n.fn.Name + "." + n.fn.ValueName(n.id) }

// update stores tv as the value of id. If that changes the stored
// value, every user of id in a reachable block is scheduled for
// reevaluation.
func (s *solver) update(id ir.ValueID, tv TypeVal) {
	old := s.res.values[id]
	if old == tv {
		return
	}
	if s.opts.CheckMonotonic {
		Lattice.CheckDescent(valueName{s.fn, id}, old, tv)
	}
	s.res.values[id] = tv
	s.res.Stats.Updates++
	s.debugf("%s: %s -> %s", s.fn.ValueName(id), old, tv)
	if s.opts.OnUpdate != nil {
		s.opts.OnUpdate(id, old, tv)
	}
	for _, u := range s.fn.Values[id].Uses {
		// Users in blocks that aren't reachable yet will be evaluated
		// when their block is first visited.
		if !s.res.reachable.Has(u.Block) {
			continue
		}
		if s.pending.Add(u.User) {
			s.ssa.Push(u.User)
		}
	}
}
