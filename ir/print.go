package ir

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// A Printer prints functions in the textual IR format accepted by
// Parse. The optional comment callbacks annotate block labels and
// instructions with trailing '#' comments.
type Printer struct {
	BlockComment func(BlockID) string
	ValueComment func(ValueID) string
}

func (p *Printer) Fprint(w io.Writer, fn *Function) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "func %s\n", fn.Name)
	for _, blk := range fn.Blocks {
		line := blk.String() + ":"
		if p.BlockComment != nil {
			line = withComment(line, p.BlockComment(blk.ID))
		}
		fmt.Fprintln(bw, line)
		for _, id := range blk.Phis {
			p.printValue(bw, fn, fn.Values[id])
		}
		for _, id := range blk.Instrs {
			p.printValue(bw, fn, fn.Values[id])
		}
	}
	return bw.Flush()
}

func (p *Printer) printValue(w io.Writer, fn *Function, v *Value) {
	line := "\t" + FormatValue(fn, v)
	if p.ValueComment != nil {
		line = withComment(line, p.ValueComment(v.ID))
	}
	fmt.Fprintln(w, line)
}

func withComment(line, comment string) string {
	if comment == "" {
		return line
	}
	return line + " # " + comment
}

// FormatValue formats a single instruction or φ-node, including its
// result name.
func FormatValue(fn *Function, v *Value) string {
	var sb strings.Builder
	if v.Op.HasOutput() {
		sb.WriteString(fn.ValueName(v.ID))
		sb.WriteString(" = ")
	}
	sb.WriteString(v.Op.String())
	if v.IsPhi() {
		for i, e := range v.Edges {
			if i == 0 {
				sb.WriteString(" ")
			} else {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "[%s: %s]", fn.Blocks[e.Pred], FormatOperand(fn, e.Arg))
		}
		return sb.String()
	}
	n := 0
	sep := func() {
		if n == 0 {
			sb.WriteString(" ")
		} else {
			sb.WriteString(", ")
		}
		n++
	}
	for _, arg := range v.Args {
		sep()
		sb.WriteString(FormatOperand(fn, arg))
	}
	for _, t := range v.Targets {
		sep()
		sb.WriteString(fn.Blocks[t].String())
	}
	return sb.String()
}

func FormatOperand(fn *Function, op Operand) string {
	if op.IsLit {
		return op.Lit.String()
	}
	return fn.ValueName(op.Value)
}

func Fprint(w io.Writer, fn *Function) error {
	return (&Printer{}).Fprint(w, fn)
}

func (fn *Function) String() string {
	var sb strings.Builder
	Fprint(&sb, fn)
	return sb.String()
}
