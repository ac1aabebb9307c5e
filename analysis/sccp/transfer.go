package sccp

import (
	"fmt"

	"honnef.co/go/jitopt/ir"
)

// UnhandledOpcodeError is the panic value of Analyze when it
// encounters an opcode that the backend supports but that has no
// transfer rule.
type UnhandledOpcodeError struct {
	Function string
	Value    string
	Op       ir.Op
	Target   string
}

func (err *UnhandledOpcodeError) Error() string {
	return fmt.Sprintf("sccp: no transfer rule for opcode %s (%s in function %s), which backend %s supports",
		err.Op, err.Value, err.Function, err.Target)
}

// operandValue returns the abstract value of op given the current
// values of all SSA values.
func operandValue(values []TypeVal, op ir.Operand) TypeVal {
	if !op.IsLit {
		return values[op.Value]
	}
	switch {
	case op.Lit.IsTrue():
		return KnownBool(true)
	case op.Lit.IsFalse():
		return KnownBool(false)
	default:
		return KnownType(op.Lit.Type)
	}
}

func (s *solver) operand(op ir.Operand) TypeVal { return operandValue(s.res.values, op) }

// transfer computes the abstract value of the instruction v. Jumps
// additionally schedule their target edge.
func (s *solver) transfer(v *ir.Value) TypeVal {
	if !v.Op.HasOutput() && v.Op.NumTargets() == 0 {
		return Bot
	}
	switch v.Op {
	case ir.OpAddI32, ir.OpSubI32, ir.OpMulI32, ir.OpAndI32, ir.OpOrI32, ir.OpNotI32,
		ir.OpShlI32, ir.OpShrI32, ir.OpUshrI32:
		return KnownType(ir.TypeInt32)

	case ir.OpAddF64, ir.OpSubF64, ir.OpMulF64, ir.OpDivF64:
		// Yes, INT32. Instruction selection relies on it.
		return KnownType(ir.TypeInt32)

	case ir.OpLoadU8, ir.OpLoadU16, ir.OpLoadU32:
		return KnownType(ir.TypeInt32)
	case ir.OpLoadF64:
		return KnownType(ir.TypeFloat64)
	case ir.OpLoadRef:
		return KnownType(ir.TypeRefPtr)
	case ir.OpLoadPtr:
		return KnownType(ir.TypeRawPtr)

	case ir.OpJmp:
		s.edges.Push(Edge{From: v.Block, To: v.Targets[0]})
		return Bot

	case ir.OpLtI32, ir.OpLeI32, ir.OpGtI32, ir.OpGeI32, ir.OpEqI32, ir.OpNeI32,
		ir.OpLtF64, ir.OpLeF64, ir.OpGtF64, ir.OpGeF64, ir.OpEqF64, ir.OpNeF64,
		ir.OpEqConst, ir.OpEqRef:
		// The result is a boolean, but which one is not computed.
		return KnownType(ir.TypeConst)
	}

	// TODO: add rules for OpBr and OpIsType; until then a target
	// that supports them cannot be analyzed.
	if t := s.opts.Target; t != nil && t.Supports(v.Op) {
		panic(&UnhandledOpcodeError{
			Function: s.fn.Name,
			Value:    s.fn.ValueName(v.ID),
			Op:       v.Op,
			Target:   t.Name,
		})
	}
	return Bot
}
