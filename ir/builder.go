package ir

import "fmt"

// A Builder constructs a Function one instruction at a time. The
// first block created is the function's entry block.
//
// Values may refer to values that are created later; this is needed
// for φ-nodes in loop headers. References are only checked by Finish.
type Builder struct {
	fn  *Function
	cur BlockID
}

func NewBuilder(name string) *Builder {
	return &Builder{
		fn:  &Function{Name: name, Entry: NoBlock},
		cur: NoBlock,
	}
}

// Block creates a new, empty block and returns its ID. It does not
// change the current block.
func (b *Builder) Block(name string) BlockID {
	id := BlockID(len(b.fn.Blocks))
	b.fn.Blocks = append(b.fn.Blocks, &BasicBlock{ID: id, Name: name})
	if b.fn.Entry == NoBlock {
		b.fn.Entry = id
	}
	return id
}

// SetBlock makes id the block that subsequent instructions are
// appended to.
func (b *Builder) SetBlock(id BlockID) { b.cur = id }

func (b *Builder) Current() BlockID { return b.cur }

func (b *Builder) newValue(op Op) *Value {
	if b.cur == NoBlock {
		panic("ir: no current block")
	}
	v := &Value{ID: ValueID(len(b.fn.Values)), Block: b.cur, Op: op}
	b.fn.Values = append(b.fn.Values, v)
	return v
}

// Instr appends an instruction to the current block.
func (b *Builder) Instr(op Op, targets []BlockID, args ...Operand) ValueID {
	if op == OpPhi {
		panic("ir: use Builder.Phi to create φ-nodes")
	}
	v := b.newValue(op)
	v.Args = args
	v.Targets = targets
	blk := b.fn.Blocks[b.cur]
	blk.Instrs = append(blk.Instrs, v.ID)
	return v.ID
}

// Emit appends a non-branching instruction to the current block.
func (b *Builder) Emit(op Op, args ...Operand) ValueID {
	return b.Instr(op, nil, args...)
}

func (b *Builder) Jmp(target BlockID) ValueID {
	return b.Instr(OpJmp, []BlockID{target})
}

func (b *Builder) Br(cond Operand, then, els BlockID) ValueID {
	return b.Instr(OpBr, []BlockID{then, els}, cond)
}

func (b *Builder) Ret(args ...Operand) ValueID {
	return b.Instr(OpRet, nil, args...)
}

// Phi appends a φ-node to the current block. More edges can be added
// later with AddEdge.
func (b *Builder) Phi(edges ...PhiEdge) ValueID {
	v := b.newValue(OpPhi)
	v.Edges = edges
	blk := b.fn.Blocks[b.cur]
	blk.Phis = append(blk.Phis, v.ID)
	return v.ID
}

func (b *Builder) AddEdge(phi ValueID, pred BlockID, arg Operand) {
	v := b.fn.Values[phi]
	if !v.IsPhi() {
		panic(fmt.Sprintf("ir: %s is not a φ-node", b.fn.ValueName(phi)))
	}
	v.Edges = append(v.Edges, PhiEdge{Pred: pred, Arg: arg})
}

func (b *Builder) SetName(id ValueID, name string) { b.fn.Values[id].Name = name }

// Finish computes the CFG edges and use-lists of the function and
// checks it for consistency. The Builder must not be used afterwards.
func (b *Builder) Finish() (*Function, error) {
	fn := b.fn
	b.fn = nil
	if len(fn.Blocks) == 0 {
		return nil, fmt.Errorf("function %s has no blocks", fn.Name)
	}
	if err := checkTargets(fn); err != nil {
		return nil, err
	}
	buildEdges(fn)
	buildUses(fn)
	if err := SanityCheck(fn); err != nil {
		return nil, err
	}
	return fn, nil
}

func checkTargets(fn *Function) error {
	for _, v := range fn.Values {
		for _, t := range v.Targets {
			if t < 0 || int(t) >= len(fn.Blocks) {
				return fmt.Errorf("function %s: %s targets nonexistent block %d", fn.Name, fn.ValueName(v.ID), t)
			}
		}
	}
	return nil
}

func buildEdges(fn *Function) {
	for _, blk := range fn.Blocks {
		blk.Preds = nil
		blk.Succs = nil
	}
	for _, blk := range fn.Blocks {
		term := fn.Terminator(blk.ID)
		if term == nil {
			continue
		}
	targets:
		for _, t := range term.Targets {
			// br with identical targets contributes a single edge
			for _, s := range blk.Succs {
				if s == t {
					continue targets
				}
			}
			blk.Succs = append(blk.Succs, t)
			fn.Blocks[t].Preds = append(fn.Blocks[t].Preds, blk.ID)
		}
	}
}

func buildUses(fn *Function) {
	for _, v := range fn.Values {
		v.Uses = nil
	}
	addUse := func(user *Value, op Operand) {
		if op.IsLit || op.Value < 0 || int(op.Value) >= len(fn.Values) {
			return
		}
		def := fn.Values[op.Value]
		if n := len(def.Uses); n > 0 && def.Uses[n-1].User == user.ID {
			return
		}
		def.Uses = append(def.Uses, Use{User: user.ID, Block: user.Block})
	}
	for _, v := range fn.Values {
		for _, arg := range v.Args {
			addUse(v, arg)
		}
		for _, e := range v.Edges {
			addUse(v, e.Arg)
		}
	}
}
