package sccp

import (
	"fmt"

	"honnef.co/go/jitopt/analysis/dfa"
	"honnef.co/go/jitopt/ir"
)

// Kind is the variant of a TypeVal.
type Kind uint8

const (
	// KindTop means nothing is known yet.
	KindTop Kind = iota
	// KindBool means the value is a known boolean constant.
	KindBool
	// KindType means the value always has a known representation type.
	KindType
	// KindBot means the value is not representable by any single fact.
	KindBot
)

// TypeVal is the abstract value the analysis attaches to every SSA
// value. The lattice it forms has height 3:
//
//	             ⊤
//	   /    /    |    \    \
//	true false  i32  f64  ...
//	   \    \    |    /    /
//	             ⊥
//
// The zero value is ⊤. TypeVals are comparable with ==.
type TypeVal struct {
	Kind Kind
	// Bool is the boolean constant if Kind is KindBool.
	Bool bool
	// Type is the representation type if Kind is KindType.
	Type ir.Type
}

var (
	// Top is the value of everything not yet evaluated.
	Top = TypeVal{}
	// Bot is the value of anything that has no single known fact.
	Bot = TypeVal{Kind: KindBot}
)

// KnownBool returns the abstract value of the boolean constant b.
func KnownBool(b bool) TypeVal { return TypeVal{Kind: KindBool, Bool: b} }

// KnownType returns the abstract value of values of type t.
func KnownType(t ir.Type) TypeVal { return TypeVal{Kind: KindType, Type: t} }

func (tv TypeVal) String() string {
	switch tv.Kind {
	case KindTop:
		return "⊤"
	case KindBool:
		if tv.Bool {
			return "true"
		}
		return "false"
	case KindType:
		return tv.Type.String()
	case KindBot:
		return "⊥"
	default:
		return fmt.Sprintf("TypeVal(%d)", tv.Kind)
	}
}

// Height returns the distance of tv from ⊤.
func (tv TypeVal) Height() int {
	switch tv.Kind {
	case KindTop:
		return 0
	case KindBot:
		return 2
	default:
		return 1
	}
}

// Lattice is the meet-semilattice of TypeVals. Distinct facts meet
// to ⊥.
var Lattice = &dfa.Lattice[TypeVal]{
	Meet:   func(a, b TypeVal) TypeVal { return Bot },
	Top:    Top,
	Bottom: Bot,
}

// Meet returns a ∧ b.
func Meet(a, b TypeVal) TypeVal { return Lattice.Apply(a, b) }

// States returns every element of the lattice, ⊤ first and ⊥ last.
func States() []TypeVal {
	out := []TypeVal{Top, KnownBool(true), KnownBool(false)}
	for _, t := range []ir.Type{ir.TypeInt32, ir.TypeFloat64, ir.TypeRefPtr, ir.TypeRawPtr, ir.TypeConst} {
		out = append(out, KnownType(t))
	}
	return append(out, Bot)
}
