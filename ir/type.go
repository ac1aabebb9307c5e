package ir

import (
	"fmt"
	"math"
	"strconv"
)

// Type is a primitive representation kind of a JIT value.
type Type uint8

const (
	TypeVoid Type = iota
	TypeInt32
	TypeFloat64
	// TypeRefPtr is a pointer to a managed (garbage collected) object.
	TypeRefPtr
	// TypeRawPtr is an untraced machine pointer.
	TypeRawPtr
	// TypeConst is the type of boolean-valued comparison results and
	// of the boolean literals.
	TypeConst
)

var typeNames = [...]string{
	TypeVoid:    "void",
	TypeInt32:   "i32",
	TypeFloat64: "f64",
	TypeRefPtr:  "ref",
	TypeRawPtr:  "ptr",
	TypeConst:   "const",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType returns the type with the given textual name.
func ParseType(s string) (Type, bool) {
	for t, name := range typeNames {
		if name == s {
			return Type(t), true
		}
	}
	return 0, false
}

// Const is a literal operand. Bits holds the raw representation of
// the literal: the two's complement value for i32, the IEEE 754 bits
// for f64 and the address for pointers.
type Const struct {
	Type Type
	Bits uint64
}

// The reserved boolean literals.
var (
	True  = Const{Type: TypeConst, Bits: 1}
	False = Const{Type: TypeConst, Bits: 0}
)

func (c Const) IsTrue() bool { return c == True }
func (c Const) IsFalse() bool { return c == False }

func I32(x int32) Const { return Const{Type: TypeInt32, Bits: uint64(uint32(x))} }
func F64(x float64) Const { return Const{Type: TypeFloat64, Bits: math.Float64bits(x)} }
func Ref(addr uint64) Const { return Const{Type: TypeRefPtr, Bits: addr} }
func Ptr(addr uint64) Const { return Const{Type: TypeRawPtr, Bits: addr} }

func (c Const) String() string {
	switch {
	case c.IsTrue():
		return "true"
	case c.IsFalse():
		return "false"
	}
	switch c.Type {
	case TypeInt32:
		return "i32:" + strconv.FormatInt(int64(int32(uint32(c.Bits))), 10)
	case TypeFloat64:
		return "f64:" + strconv.FormatFloat(math.Float64frombits(c.Bits), 'g', -1, 64)
	case TypeRefPtr, TypeRawPtr:
		return fmt.Sprintf("%s:%#x", c.Type, c.Bits)
	default:
		return fmt.Sprintf("%s:%d", c.Type, c.Bits)
	}
}

// parseConst parses the textual form produced by Const.String.
func parseConst(s string) (Const, error) {
	switch s {
	case "true":
		return True, nil
	case "false":
		return False, nil
	}
	var (
		typ Type
		lit string
		ok  bool
	)
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			typ, ok = ParseType(s[:i])
			lit = s[i+1:]
			break
		}
	}
	if !ok || lit == "" {
		return Const{}, fmt.Errorf("malformed literal %q", s)
	}
	switch typ {
	case TypeInt32:
		x, err := strconv.ParseInt(lit, 0, 32)
		if err != nil {
			return Const{}, fmt.Errorf("malformed i32 literal %q: %w", s, err)
		}
		return I32(int32(x)), nil
	case TypeFloat64:
		x, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return Const{}, fmt.Errorf("malformed f64 literal %q: %w", s, err)
		}
		return F64(x), nil
	case TypeVoid:
		return Const{}, fmt.Errorf("literal %q has type void", s)
	default:
		x, err := strconv.ParseUint(lit, 0, 64)
		if err != nil {
			return Const{}, fmt.Errorf("malformed %s literal %q: %w", typ, s, err)
		}
		return Const{Type: typ, Bits: x}, nil
	}
}
