package sccp

import (
	"io"

	"honnef.co/go/jitopt/ir"
)

// Fprint prints the analyzed function, annotating blocks with their
// reachability and values with their abstract values. Values in
// unreachable blocks and instructions without output are not
// annotated.
func Fprint(w io.Writer, res *Result) error {
	fn := res.Function
	p := &ir.Printer{
		BlockComment: func(b ir.BlockID) string {
			if res.Reachable(b) {
				return "reachable"
			}
			return "unreachable"
		},
		ValueComment: func(id ir.ValueID) string {
			v := fn.Value(id)
			if !v.Op.HasOutput() || !res.Reachable(v.Block) {
				return ""
			}
			return res.Value(id).String()
		},
	}
	return p.Fprint(w, fn)
}
