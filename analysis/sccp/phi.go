package sccp

import "honnef.co/go/jitopt/ir"

// evalPhi computes the meet of the values flowing into phi along
// visited edges. Edges that haven't been visited yet are ignored: they
// may never be taken. If any live incoming value is still ⊤, so is the
// φ, as its value cannot be decided yet.
func (s *solver) evalPhi(phi *ir.Value) TypeVal {
	cur := Top
	for _, e := range phi.Edges {
		if !s.res.Visited(Edge{From: e.Pred, To: phi.Block}) {
			continue
		}
		tv := s.operand(e.Arg)
		if tv == Top {
			return Top
		}
		if cur == Top {
			cur = tv
		} else if tv != cur {
			return Bot
		}
	}
	return cur
}
