// Package ir defines the SSA intermediate representation consumed by
// the JIT's optimization passes.
//
// A Function is an arena of basic blocks and values addressed by
// stable integer IDs. Instructions and φ-nodes share one ID space;
// every instruction has an ID, even those that produce no output, so
// that per-value analysis results can be stored in slices indexed by
// ValueID. Use-lists are built once by the Builder and are read-only
// afterwards.
package ir

import "fmt"

type (
	BlockID int32
	ValueID int32
)

// NoBlock is the source of the pseudo-edge that enters a function's
// entry block.
const NoBlock BlockID = -1

// Operand is an instruction operand: either a reference to an
// SSA-defined value or a literal.
type Operand struct {
	Value ValueID
	Lit   Const
	IsLit bool
}

// V returns an operand referring to the value id.
func V(id ValueID) Operand { return Operand{Value: id} }

// L returns a literal operand.
func L(c Const) Operand { return Operand{Lit: c, IsLit: true} }

// PhiEdge is one incoming edge of a φ-node: the value Arg flows into
// the φ when control arrives from Pred.
type PhiEdge struct {
	Pred BlockID
	Arg  Operand
}

// E is a helper for constructing φ edges.
func E(pred BlockID, arg Operand) PhiEdge { return PhiEdge{Pred: pred, Arg: arg} }

// Use records that the value User, which lives in Block, consumes a
// value.
type Use struct {
	User  ValueID
	Block BlockID
}

// Value is an instruction or φ-node.
type Value struct {
	ID    ValueID
	Name  string
	Block BlockID
	Op    Op
	// Args are the operands of an instruction. φ-nodes use Edges
	// instead.
	Args    []Operand
	Edges   []PhiEdge
	Targets []BlockID
	// Uses lists the values that consume this value, in arena order.
	// A user appears once even if it refers to the value several
	// times.
	Uses []Use
}

func (v *Value) IsPhi() bool { return v.Op == OpPhi }

// BasicBlock is a basic block. Its φ-nodes precede its instructions;
// the last instruction is the block's terminator.
type BasicBlock struct {
	ID     BlockID
	Name   string
	Phis   []ValueID
	Instrs []ValueID
	Preds  []BlockID
	Succs  []BlockID
}

func (b *BasicBlock) String() string {
	if b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("b%d", b.ID)
}

type Function struct {
	Name   string
	Entry  BlockID
	Blocks []*BasicBlock
	Values []*Value
}

func (fn *Function) Block(id BlockID) *BasicBlock { return fn.Blocks[id] }
func (fn *Function) Value(id ValueID) *Value { return fn.Values[id] }

// ValueName returns the name under which the value id is printed.
func (fn *Function) ValueName(id ValueID) string {
	if v := fn.Values[id]; v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("v%d", id)
}

// Terminator returns the last instruction of b, or nil if b is empty.
func (fn *Function) Terminator(b BlockID) *Value {
	blk := fn.Blocks[b]
	if len(blk.Instrs) == 0 {
		return nil
	}
	return fn.Values[blk.Instrs[len(blk.Instrs)-1]]
}
