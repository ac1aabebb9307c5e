package ir

import "fmt"

// Op identifies the operation performed by an instruction.
type Op uint8

const (
	OpInvalid Op = iota

	OpNop
	// OpArg produces the function argument whose index is given by its
	// single i32 literal operand.
	OpArg
	OpCall

	OpAddI32
	OpSubI32
	OpMulI32
	OpDivI32
	OpAndI32
	OpOrI32
	OpNotI32
	OpShlI32
	OpShrI32
	OpUshrI32

	OpAddF64
	OpSubF64
	OpMulF64
	OpDivF64

	OpLoadU8
	OpLoadU16
	OpLoadU32
	OpLoadF64
	OpLoadRef
	OpLoadPtr

	OpStoreI32
	OpStoreF64
	OpStoreRef
	OpStorePtr

	OpJmp
	OpBr
	OpRet

	OpLtI32
	OpLeI32
	OpGtI32
	OpGeI32
	OpEqI32
	OpNeI32
	OpLtF64
	OpLeF64
	OpGtF64
	OpGeF64
	OpEqF64
	OpNeF64
	OpEqConst
	OpEqRef
	// OpIsType tests whether a managed reference has the runtime type
	// identified by its second operand.
	OpIsType

	OpPhi

	numOps
)

type opInfo struct {
	name    string
	output  bool
	targets int // number of branch targets
	arity   int // number of operands, -1 if variadic
}

var opInfos = [numOps]opInfo{
	OpInvalid: {name: "invalid"},
	OpNop:     {name: "nop"},
	OpArg:     {name: "arg", output: true, arity: 1},
	OpCall:    {name: "call", output: true, arity: -1},

	OpAddI32:  {name: "add.i32", output: true, arity: 2},
	OpSubI32:  {name: "sub.i32", output: true, arity: 2},
	OpMulI32:  {name: "mul.i32", output: true, arity: 2},
	OpDivI32:  {name: "div.i32", output: true, arity: 2},
	OpAndI32:  {name: "and.i32", output: true, arity: 2},
	OpOrI32:   {name: "or.i32", output: true, arity: 2},
	OpNotI32:  {name: "not.i32", output: true, arity: 1},
	OpShlI32:  {name: "shl.i32", output: true, arity: 2},
	OpShrI32:  {name: "shr.i32", output: true, arity: 2},
	OpUshrI32: {name: "ushr.i32", output: true, arity: 2},

	OpAddF64: {name: "add.f64", output: true, arity: 2},
	OpSubF64: {name: "sub.f64", output: true, arity: 2},
	OpMulF64: {name: "mul.f64", output: true, arity: 2},
	OpDivF64: {name: "div.f64", output: true, arity: 2},

	OpLoadU8:  {name: "load.u8", output: true, arity: 1},
	OpLoadU16: {name: "load.u16", output: true, arity: 1},
	OpLoadU32: {name: "load.u32", output: true, arity: 1},
	OpLoadF64: {name: "load.f64", output: true, arity: 1},
	OpLoadRef: {name: "load.ref", output: true, arity: 1},
	OpLoadPtr: {name: "load.ptr", output: true, arity: 1},

	OpStoreI32: {name: "store.i32", arity: 2},
	OpStoreF64: {name: "store.f64", arity: 2},
	OpStoreRef: {name: "store.ref", arity: 2},
	OpStorePtr: {name: "store.ptr", arity: 2},

	OpJmp: {name: "jmp", targets: 1},
	OpBr:  {name: "br", targets: 2, arity: 1},
	OpRet: {name: "ret", arity: -1},

	OpLtI32:   {name: "lt.i32", output: true, arity: 2},
	OpLeI32:   {name: "le.i32", output: true, arity: 2},
	OpGtI32:   {name: "gt.i32", output: true, arity: 2},
	OpGeI32:   {name: "ge.i32", output: true, arity: 2},
	OpEqI32:   {name: "eq.i32", output: true, arity: 2},
	OpNeI32:   {name: "ne.i32", output: true, arity: 2},
	OpLtF64:   {name: "lt.f64", output: true, arity: 2},
	OpLeF64:   {name: "le.f64", output: true, arity: 2},
	OpGtF64:   {name: "gt.f64", output: true, arity: 2},
	OpGeF64:   {name: "ge.f64", output: true, arity: 2},
	OpEqF64:   {name: "eq.f64", output: true, arity: 2},
	OpNeF64:   {name: "ne.f64", output: true, arity: 2},
	OpEqConst: {name: "eq.const", output: true, arity: 2},
	OpEqRef:   {name: "eq.ref", output: true, arity: 2},
	OpIsType:  {name: "istype", output: true, arity: 2},

	OpPhi: {name: "phi", output: true, arity: -1},
}

func (op Op) String() string {
	if op < numOps {
		return opInfos[op].name
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// HasOutput reports whether instructions with this opcode define a
// value that other instructions may use.
func (op Op) HasOutput() bool { return op < numOps && opInfos[op].output }

// NumTargets returns the number of branch targets of a control
// transfer. It is zero for all other opcodes, including OpRet.
func (op Op) NumTargets() int {
	if op >= numOps {
		return 0
	}
	return opInfos[op].targets
}

// IsTerminator reports whether op ends a basic block.
func (op Op) IsTerminator() bool { return op.NumTargets() > 0 || op == OpRet }

// Arity returns the number of operands op takes, or -1 if it takes a
// variable number.
func (op Op) Arity() int {
	if op >= numOps {
		return 0
	}
	return opInfos[op].arity
}

// Valid reports whether op is a known opcode other than OpInvalid.
func (op Op) Valid() bool { return op > OpInvalid && op < numOps }

// Ops returns all valid opcodes in declaration order.
func Ops() []Op {
	out := make([]Op, 0, numOps-1)
	for op := OpInvalid + 1; op < numOps; op++ {
		out = append(out, op)
	}
	return out
}

// ParseOp returns the opcode with the given textual name.
func ParseOp(name string) (Op, bool) {
	for op := OpInvalid + 1; op < numOps; op++ {
		if opInfos[op].name == name {
			return op, true
		}
	}
	return OpInvalid, false
}
