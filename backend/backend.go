// Package backend describes which IR opcodes a code generation target
// can emit machine code for.
//
// Analyses consult a Target to check that they cover every opcode
// the code generator supports: an opcode that the backend supports
// but an analysis has no rule for is a bug in the compiler.
package backend

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"honnef.co/go/jitopt/config"
	"honnef.co/go/jitopt/internal/worklist"
	"honnef.co/go/jitopt/ir"
)

// A Target is a named set of opcodes with native code generation
// support.
type Target struct {
	Name string
	ops  worklist.Set[ir.Op]
}

// New returns a target that supports exactly ops.
func New(name string, ops ...ir.Op) *Target {
	t := &Target{Name: name}
	for _, op := range ops {
		t.ops.Add(op)
	}
	return t
}

func (t *Target) Supports(op ir.Op) bool { return t.ops.Has(op) }

// Ops returns the supported opcodes in ascending order.
func (t *Target) Ops() []ir.Op { return t.ops.Elems() }

func (t *Target) Enable(op ir.Op) { t.ops.Add(op) }
func (t *Target) Disable(op ir.Op) { t.ops.Remove(op) }

func (t *Target) Clone() *Target {
	c := &Target{Name: t.Name}
	c.ops.Copy(&t.ops)
	return c
}

func (t *Target) String() string { return t.Name }

// baselineOps are the opcodes the baseline code generator lowers
// directly. Conditional branches, type tests, calls, arguments and
// integer division go through the interpreter's slow paths.
var baselineOps = []ir.Op{
	ir.OpNop,
	ir.OpAddI32, ir.OpSubI32, ir.OpMulI32, ir.OpAndI32, ir.OpOrI32, ir.OpNotI32,
	ir.OpShlI32, ir.OpShrI32, ir.OpUshrI32,
	ir.OpAddF64, ir.OpSubF64, ir.OpMulF64, ir.OpDivF64,
	ir.OpLoadU8, ir.OpLoadU16, ir.OpLoadU32, ir.OpLoadF64, ir.OpLoadRef, ir.OpLoadPtr,
	ir.OpStoreI32, ir.OpStoreF64, ir.OpStoreRef, ir.OpStorePtr,
	ir.OpJmp, ir.OpRet,
	ir.OpLtI32, ir.OpLeI32, ir.OpGtI32, ir.OpGeI32, ir.OpEqI32, ir.OpNeI32,
	ir.OpLtF64, ir.OpLeF64, ir.OpGtF64, ir.OpGeF64, ir.OpEqF64, ir.OpNeF64,
	ir.OpEqConst, ir.OpEqRef,
}

var targets = map[string]func() *Target{
	"baseline": func() *Target { return New("baseline", baselineOps...) },
	"full":     func() *Target { return New("full", allOps()...) },
	"none":     func() *Target { return New("none") },
}

func allOps() []ir.Op {
	var out []ir.Op
	for _, op := range ir.Ops() {
		if op != ir.OpPhi {
			out = append(out, op)
		}
	}
	return out
}

// Lookup returns a fresh copy of the built-in target with the given
// name.
func Lookup(name string) (*Target, error) {
	fn, ok := targets[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend target %q", name)
	}
	return fn(), nil
}

// Names returns the names of the built-in targets.
func Names() []string {
	out := maps.Keys(targets)
	slices.Sort(out)
	return out
}

// FromConfig returns the target selected by cfg, with its enabled and
// disabled opcode lists applied in that order.
func FromConfig(cfg config.BackendConfig) (*Target, error) {
	t, err := Lookup(cfg.Target)
	if err != nil {
		return nil, err
	}
	if err := apply(cfg.EnabledOpcodes, t.Enable); err != nil {
		return nil, fmt.Errorf("enabled_opcodes: %w", err)
	}
	if err := apply(cfg.DisabledOpcodes, t.Disable); err != nil {
		return nil, fmt.Errorf("disabled_opcodes: %w", err)
	}
	return t, nil
}

func apply(names []string, fn func(ir.Op)) error {
	for _, name := range names {
		if name == "all" {
			for _, op := range allOps() {
				fn(op)
			}
			continue
		}
		op, ok := ir.ParseOp(name)
		if !ok || op == ir.OpPhi {
			return fmt.Errorf("unknown opcode %q", name)
		}
		fn(op)
	}
	return nil
}
