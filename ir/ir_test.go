package ir_test

import (
	"errors"
	"strings"
	"testing"

	"honnef.co/go/jitopt/ir"
)

const diamond = `func diamond
entry:
	x = load.u32 ptr:0x10
	c = lt.i32 x, i32:3
	br c, then, else
then:
	y = add.i32 x, i32:1
	jmp join
else:
	z = load.f64 ptr:0x20
	jmp join
join:
	p = phi [then: y], [else: z]
	store.i32 ptr:0x30, p
	ret p
`

func TestParsePrintRoundTrip(t *testing.T) {
	fn, err := ir.ParseFunction("diamond.ir", []byte(diamond))
	if err != nil {
		t.Fatal(err)
	}
	if got := fn.String(); got != diamond {
		t.Errorf("round trip mismatch:\ngot:\n%s\nwant:\n%s", got, diamond)
	}
}

func TestBuilderEdgesAndUses(t *testing.T) {
	b := ir.NewBuilder("loop")
	entry := b.Block("entry")
	head := b.Block("head")
	body := b.Block("body")
	exit := b.Block("exit")

	b.SetBlock(entry)
	b.Jmp(head)

	b.SetBlock(head)
	i := b.Phi(ir.E(entry, ir.L(ir.I32(0))))
	c := b.Emit(ir.OpLtI32, ir.V(i), ir.L(ir.I32(10)))
	b.Br(ir.V(c), body, exit)

	b.SetBlock(body)
	next := b.Emit(ir.OpAddI32, ir.V(i), ir.V(i))
	b.Jmp(head)
	b.AddEdge(i, body, ir.V(next))

	b.SetBlock(exit)
	b.Ret(ir.V(i))

	fn, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if fn.Entry != entry {
		t.Errorf("entry = %d, want %d", fn.Entry, entry)
	}
	if got := fn.Block(head).Preds; len(got) != 2 || got[0] != entry || got[1] != body {
		t.Errorf("preds of head = %v, want [%d %d]", got, entry, body)
	}
	if got := fn.Block(head).Succs; len(got) != 2 || got[0] != body || got[1] != exit {
		t.Errorf("succs of head = %v, want [%d %d]", got, body, exit)
	}

	// add.i32 uses i twice but must appear once in i's use-list.
	want := []ir.Use{{User: c, Block: head}, {User: next, Block: body}, {User: fn.Terminator(exit).ID, Block: exit}}
	got := fn.Value(i).Uses
	if len(got) != len(want) {
		t.Fatalf("uses of i = %v, want %v", got, want)
	}
	for j := range want {
		if got[j] != want[j] {
			t.Errorf("use %d of i = %v, want %v", j, got[j], want[j])
		}
	}
	if got := fn.Value(next).Uses; len(got) != 1 || got[0].User != i {
		t.Errorf("uses of next = %v, want the φ-node", got)
	}
}

func TestBranchToSameBlock(t *testing.T) {
	fn, err := ir.ParseFunction("same.ir", []byte(`
func same
entry:
	br true, done, done
done:
	ret
`))
	if err != nil {
		t.Fatal(err)
	}
	if got := fn.Block(0).Succs; len(got) != 1 {
		t.Errorf("succs = %v, want a single edge", got)
	}
	if got := fn.Block(1).Preds; len(got) != 1 {
		t.Errorf("preds = %v, want a single edge", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"no header", "entry:\n\tret\n", 1, "expected 'func NAME'"},
		{"unknown opcode", "func f\nentry:\n\tx = frobnicate i32:1\n\tret\n", 3, `unknown opcode "frobnicate"`},
		{"undefined value", "func f\nentry:\n\tx = add.i32 y, i32:1\n\tret\n", 3, `undefined value "y"`},
		{"undefined block", "func f\nentry:\n\tjmp nowhere\n", 3, `undefined block "nowhere"`},
		{"redefined", "func f\nentry:\n\tx = load.u8 ptr:1\n\tx = load.u8 ptr:2\n\tret\n", 4, `value "x" redefined`},
		{"named store", "func f\nentry:\n\tx = store.i32 ptr:1, i32:2\n\tret\n", 3, "cannot be named"},
		{"bad literal", "func f\nentry:\n\tx = add.i32 i32:zz, i32:1\n\tret\n", 3, "malformed i32 literal"},
		{"bad phi", "func f\nentry:\n\tp = phi entry: i32:1\n\tret\n", 3, "malformed φ edge"},
		{"outside block", "func f\n\tret\n", 2, "instruction outside of a block"},
		{"trailing comma", "func f\nentry:\n\tret i32:1,\n", 3, "trailing ','"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ir.Parse("test.ir", []byte(tt.src))
			var perr *ir.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("got error %v, want a *ParseError", err)
			}
			if perr.Line != tt.line {
				t.Errorf("error on line %d, want %d (%s)", perr.Line, tt.line, perr)
			}
			if !strings.Contains(perr.Msg, tt.msg) {
				t.Errorf("error %q does not mention %q", perr.Msg, tt.msg)
			}
		})
	}
}

func TestSanityErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"missing terminator", "func f\nentry:\n\tx = load.u8 ptr:1\n", "is not a terminator"},
		{"early terminator", "func f\nentry:\n\tret\n\tnop\n", "is not the last instruction"},
		{"arity", "func f\nentry:\n\tx = add.i32 i32:1\n\tret\n", "has 1 operands, want 2"},
		{"phi from non-pred", "func f\nentry:\n\tjmp b\nb:\n\tp = phi [b: i32:1]\n\tret\n", "not a predecessor"},
		{"empty block", "func f\nentry:\n\tjmp b\nb:\nc:\n\tret\n", "has no instructions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ir.Parse("test.ir", []byte(tt.src))
			var serr *ir.SanityError
			if !errors.As(err, &serr) {
				t.Fatalf("got error %v, want a *SanityError", err)
			}
			if !strings.Contains(serr.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", serr, tt.msg)
			}
		})
	}
}

func TestSanityUseWithoutOutput(t *testing.T) {
	b := ir.NewBuilder("f")
	b.SetBlock(b.Block("entry"))
	st := b.Emit(ir.OpStoreI32, ir.L(ir.Ptr(8)), ir.L(ir.I32(1)))
	b.Ret(ir.V(st))
	_, err := b.Finish()
	if err == nil || !strings.Contains(err.Error(), "which has no output") {
		t.Errorf("got error %v, want complaint about use of a value without output", err)
	}
}

func TestConstString(t *testing.T) {
	tests := []struct {
		c    ir.Const
		want string
	}{
		{ir.True, "true"},
		{ir.False, "false"},
		{ir.I32(-7), "i32:-7"},
		{ir.F64(1.5), "f64:1.5"},
		{ir.Ref(0x40), "ref:0x40"},
		{ir.Ptr(16), "ptr:0x10"},
		{ir.Const{Type: ir.TypeConst, Bits: 7}, "const:7"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("%#v.String() = %q, want %q", tt.c, got, tt.want)
		}
	}
	if !ir.True.IsTrue() || ir.True.IsFalse() || !ir.False.IsFalse() {
		t.Error("reserved boolean literals misclassified")
	}
	if (ir.Const{Type: ir.TypeConst, Bits: 7}).IsTrue() {
		t.Error("const:7 classified as true")
	}
}

func TestOps(t *testing.T) {
	for _, op := range ir.Ops() {
		got, ok := ir.ParseOp(op.String())
		if !ok || got != op {
			t.Errorf("ParseOp(%q) = %v, %t", op, got, ok)
		}
	}
	if !ir.OpBr.IsTerminator() || !ir.OpRet.IsTerminator() || ir.OpAddI32.IsTerminator() {
		t.Error("IsTerminator misclassifies opcodes")
	}
	if ir.OpJmp.HasOutput() || ir.OpStoreI32.HasOutput() || !ir.OpLtI32.HasOutput() {
		t.Error("HasOutput misclassifies opcodes")
	}
}
