package ir

import (
	"fmt"
	"strings"
)

// A SanityError lists the problems found by SanityCheck.
type SanityError struct {
	Function string
	Problems []string
}

func (err *SanityError) Error() string {
	if len(err.Problems) == 1 {
		return fmt.Sprintf("function %s: %s", err.Function, err.Problems[0])
	}
	return fmt.Sprintf("function %s: %d problems:\n\t%s", err.Function, len(err.Problems), strings.Join(err.Problems, "\n\t"))
}

type sanity struct {
	fn       *Function
	problems []string
}

func (s *sanity) errorf(blk *BasicBlock, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if blk != nil {
		msg = fmt.Sprintf("block %s: %s", blk, msg)
	}
	s.problems = append(s.problems, msg)
}

// SanityCheck checks that fn is a well-formed function: blocks end in
// exactly one terminator, branch targets and operands refer to
// existing entities, φ-nodes only have edges from predecessors, and
// use-lists match the operands. Dominance is not checked.
func SanityCheck(fn *Function) error {
	s := &sanity{fn: fn}
	s.check()
	if len(s.problems) > 0 {
		return &SanityError{Function: fn.Name, Problems: s.problems}
	}
	return nil
}

func (s *sanity) check() {
	fn := s.fn
	if fn.Entry < 0 || int(fn.Entry) >= len(fn.Blocks) {
		s.errorf(nil, "invalid entry block %d", fn.Entry)
		return
	}
	for i, blk := range fn.Blocks {
		if blk.ID != BlockID(i) {
			s.errorf(blk, "has ID %d at index %d", blk.ID, i)
		}
		s.checkBlock(blk)
	}
	for i, v := range fn.Values {
		if v.ID != ValueID(i) {
			s.errorf(nil, "value %s has ID %d at index %d", fn.ValueName(v.ID), v.ID, i)
		}
	}
	s.checkUses()
}

func (s *sanity) checkBlock(blk *BasicBlock) {
	fn := s.fn
	if len(blk.Instrs) == 0 {
		s.errorf(blk, "has no instructions")
	}
	for _, id := range blk.Phis {
		if !s.validValue(id) {
			s.errorf(blk, "lists nonexistent φ-node %d", id)
			continue
		}
		phi := fn.Values[id]
		if !phi.IsPhi() {
			s.errorf(blk, "%s is listed as a φ-node but is %s", fn.ValueName(id), phi.Op)
		}
		if phi.Block != blk.ID {
			s.errorf(blk, "φ-node %s belongs to block %d", fn.ValueName(id), phi.Block)
		}
		s.checkPhi(blk, phi)
	}
	for i, id := range blk.Instrs {
		if !s.validValue(id) {
			s.errorf(blk, "lists nonexistent instruction %d", id)
			continue
		}
		v := fn.Values[id]
		name := fn.ValueName(id)
		if v.Block != blk.ID {
			s.errorf(blk, "instruction %s belongs to block %d", name, v.Block)
		}
		if !v.Op.Valid() || v.IsPhi() {
			s.errorf(blk, "instruction %s has invalid opcode %s", name, v.Op)
			continue
		}
		last := i == len(blk.Instrs)-1
		if v.Op.IsTerminator() && !last {
			s.errorf(blk, "terminator %s (%s) is not the last instruction", name, v.Op)
		}
		if last && !v.Op.IsTerminator() {
			s.errorf(blk, "last instruction %s (%s) is not a terminator", name, v.Op)
		}
		if n := v.Op.Arity(); n >= 0 && len(v.Args) != n {
			s.errorf(blk, "%s (%s) has %d operands, want %d", name, v.Op, len(v.Args), n)
		}
		if len(v.Targets) != v.Op.NumTargets() {
			s.errorf(blk, "%s (%s) has %d targets, want %d", name, v.Op, len(v.Targets), v.Op.NumTargets())
		}
		for _, t := range v.Targets {
			if t < 0 || int(t) >= len(fn.Blocks) {
				s.errorf(blk, "%s targets nonexistent block %d", name, t)
			}
		}
		for _, arg := range v.Args {
			s.checkOperand(blk, v, arg)
		}
	}
}

func (s *sanity) checkPhi(blk *BasicBlock, phi *Value) {
	seen := map[BlockID]bool{}
	for _, e := range phi.Edges {
		if seen[e.Pred] {
			s.errorf(blk, "φ-node %s has several edges from block %d", s.fn.ValueName(phi.ID), e.Pred)
		}
		seen[e.Pred] = true
		isPred := false
		for _, p := range blk.Preds {
			if p == e.Pred {
				isPred = true
				break
			}
		}
		if !isPred {
			s.errorf(blk, "φ-node %s has an edge from block %d, which is not a predecessor", s.fn.ValueName(phi.ID), e.Pred)
		}
		s.checkOperand(blk, phi, e.Arg)
	}
}

func (s *sanity) checkOperand(blk *BasicBlock, user *Value, op Operand) {
	if op.IsLit {
		if op.Lit.Type == TypeVoid {
			s.errorf(blk, "%s has a void literal operand", s.fn.ValueName(user.ID))
		}
		return
	}
	if !s.validValue(op.Value) {
		s.errorf(blk, "%s refers to nonexistent value %d", s.fn.ValueName(user.ID), op.Value)
		return
	}
	if def := s.fn.Values[op.Value]; !def.Op.HasOutput() {
		s.errorf(blk, "%s uses %s, which has no output", s.fn.ValueName(user.ID), s.fn.ValueName(def.ID))
	}
}

func (s *sanity) checkUses() {
	fn := s.fn
	for _, def := range fn.Values {
		for _, u := range def.Uses {
			if !s.validValue(u.User) {
				s.errorf(nil, "use-list of %s refers to nonexistent value %d", fn.ValueName(def.ID), u.User)
				continue
			}
			user := fn.Values[u.User]
			if user.Block != u.Block {
				s.errorf(nil, "use-list of %s records %s in block %d, but it lives in block %d", fn.ValueName(def.ID), fn.ValueName(user.ID), u.Block, user.Block)
			}
			if !refersTo(user, def.ID) {
				s.errorf(nil, "use-list of %s lists %s, which does not use it", fn.ValueName(def.ID), fn.ValueName(user.ID))
			}
		}
	}
}

func refersTo(user *Value, id ValueID) bool {
	for _, arg := range user.Args {
		if !arg.IsLit && arg.Value == id {
			return true
		}
	}
	for _, e := range user.Edges {
		if !e.Arg.IsLit && e.Arg.Value == id {
			return true
		}
	}
	return false
}

func (s *sanity) validValue(id ValueID) bool {
	return id >= 0 && int(id) < len(s.fn.Values)
}
