// Package debug contains helpers for debugging the analyses.
package debug

import (
	"fmt"
	"io"
	"strings"

	"honnef.co/go/jitopt/analysis/sccp"
	"honnef.co/go/jitopt/ir"
)

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// Dot returns a Graphviz dot description of the CFG of the analyzed
// function. Every block lists its instructions and their abstract
// values. Unreachable blocks and edges that were never visited are
// dashed.
func Dot(res *sccp.Result) string {
	fn := res.Function
	var sb strings.Builder
	fmt.Fprintln(&sb, "digraph {")
	fmt.Fprintf(&sb, "\tlabel = \"%s\";\n", escape(fn.Name))
	fmt.Fprintln(&sb, "\tnode [shape=box, fontname=monospace];")
	fmt.Fprintln(&sb, "\tentry [shape=point];")
	for _, blk := range fn.Blocks {
		var label strings.Builder
		fmt.Fprintf(&label, "%s:\\l", escape(blk.String()))
		for _, ids := range [][]ir.ValueID{blk.Phis, blk.Instrs} {
			for _, id := range ids {
				v := fn.Value(id)
				label.WriteString(escape(ir.FormatValue(fn, v)))
				if v.Op.HasOutput() && res.Reachable(blk.ID) {
					fmt.Fprintf(&label, " : %s", res.Value(id))
				}
				label.WriteString("\\l")
			}
		}
		style := ""
		if !res.Reachable(blk.ID) {
			style = ", style=dashed"
		}
		fmt.Fprintf(&sb, "\tn%d [label=\"%s\"%s];\n", blk.ID, label.String(), style)
	}

	edge := func(e sccp.Edge, from string) {
		style := ""
		if !res.Visited(e) {
			style = " [style=dashed]"
		}
		fmt.Fprintf(&sb, "\t%s -> n%d%s;\n", from, e.To, style)
	}
	edge(sccp.Edge{From: ir.NoBlock, To: fn.Entry}, "entry")
	for _, blk := range fn.Blocks {
		for _, succ := range blk.Succs {
			edge(sccp.Edge{From: blk.ID, To: succ}, fmt.Sprintf("n%d", blk.ID))
		}
	}
	fmt.Fprintln(&sb, "}")
	return sb.String()
}

// Trace installs hooks in opts that write every step of the analysis
// of fn to w. Existing hooks are still called.
func Trace(w io.Writer, fn *ir.Function, opts *sccp.Options) {
	onEdge, onEval, onUpdate := opts.OnEdge, opts.OnEval, opts.OnUpdate
	opts.OnEdge = func(e sccp.Edge) {
		to := fn.Block(e.To)
		if e.From == ir.NoBlock {
			fmt.Fprintf(w, "edge\t-> %s\n", to)
		} else {
			fmt.Fprintf(w, "edge\t%s -> %s\n", fn.Block(e.From), to)
		}
		if onEdge != nil {
			onEdge(e)
		}
	}
	opts.OnEval = func(id ir.ValueID) {
		fmt.Fprintf(w, "eval\t%s\n", ir.FormatValue(fn, fn.Value(id)))
		if onEval != nil {
			onEval(id)
		}
	}
	opts.OnUpdate = func(id ir.ValueID, old, new sccp.TypeVal) {
		fmt.Fprintf(w, "update\t%s: %s -> %s\n", fn.ValueName(id), old, new)
		if onUpdate != nil {
			onUpdate(id, old, new)
		}
	}
}
