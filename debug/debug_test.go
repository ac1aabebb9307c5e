package debug

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"honnef.co/go/jitopt/analysis/sccp"
	"honnef.co/go/jitopt/backend"
	"honnef.co/go/jitopt/ir"
)

const chain = `
func chain
a:
	x = load.u8 ptr:0x1
	jmp c
b:
	jmp c
c:
	ret x
`

func analyze(t *testing.T, opts sccp.Options) *sccp.Result {
	fn, err := ir.ParseFunction("chain.ir", []byte(chain))
	if err != nil {
		t.Fatal(err)
	}
	target, err := backend.Lookup("baseline")
	if err != nil {
		t.Fatal(err)
	}
	opts.Target = target
	return sccp.Analyze(fn, opts)
}

func TestDot(t *testing.T) {
	res := analyze(t, sccp.Options{})
	want := `digraph {
	label = "chain";
	node [shape=box, fontname=monospace];
	entry [shape=point];
	n0 [label="a:\lx = load.u8 ptr:0x1 : i32\ljmp c\l"];
	n1 [label="b:\ljmp c\l", style=dashed];
	n2 [label="c:\lret x\l"];
	entry -> n0;
	n0 -> n2;
	n1 -> n2 [style=dashed];
}
`
	if diff := cmp.Diff(want, Dot(res)); diff != "" {
		t.Errorf("Dot mismatch (-want +got):\n%s", diff)
	}
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	var edges int
	opts := sccp.Options{OnEdge: func(sccp.Edge) { edges++ }}
	fn, err := ir.ParseFunction("chain.ir", []byte(chain))
	if err != nil {
		t.Fatal(err)
	}
	Trace(&buf, fn, &opts)
	sccp.Analyze(fn, opts)

	want := []string{
		"edge\t-> a",
		"eval\tx = load.u8 ptr:0x1",
		"update\tx: ⊤ -> i32",
		"eval\tjmp c",
		"update\tv1: ⊤ -> ⊥",
		"edge\ta -> c",
		"eval\tret x",
		"update\tv3: ⊤ -> ⊥",
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	if edges != 2 {
		t.Errorf("got %d edges, want 2", edges)
	}
}
