package backend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"honnef.co/go/jitopt/config"
	"honnef.co/go/jitopt/ir"
)

func TestLookup(t *testing.T) {
	base, err := Lookup("baseline")
	require.NoError(t, err)
	require.True(t, base.Supports(ir.OpAddI32))
	require.True(t, base.Supports(ir.OpJmp))
	require.False(t, base.Supports(ir.OpBr))
	require.False(t, base.Supports(ir.OpIsType))
	require.False(t, base.Supports(ir.OpPhi))

	full, err := Lookup("full")
	require.NoError(t, err)
	require.True(t, full.Supports(ir.OpBr))
	require.False(t, full.Supports(ir.OpPhi))

	_, err = Lookup("sparc")
	require.Error(t, err)
	require.Equal(t, []string{"baseline", "full", "none"}, Names())
}

func TestLookupReturnsCopies(t *testing.T) {
	a, err := Lookup("baseline")
	require.NoError(t, err)
	a.Disable(ir.OpAddI32)
	b, err := Lookup("baseline")
	require.NoError(t, err)
	require.True(t, b.Supports(ir.OpAddI32))

	c := b.Clone()
	c.Enable(ir.OpBr)
	require.False(t, b.Supports(ir.OpBr))
	require.True(t, c.Supports(ir.OpBr))
}

func TestFromConfig(t *testing.T) {
	tgt, err := FromConfig(config.BackendConfig{
		Target:          "none",
		EnabledOpcodes:  []string{"add.i32", "br"},
		DisabledOpcodes: []string{"br"},
	})
	require.NoError(t, err)
	require.Equal(t, []ir.Op{ir.OpAddI32}, tgt.Ops())

	tgt, err = FromConfig(config.BackendConfig{Target: "baseline", EnabledOpcodes: []string{"all"}})
	require.NoError(t, err)
	require.True(t, tgt.Supports(ir.OpIsType))

	_, err = FromConfig(config.BackendConfig{Target: "baseline", DisabledOpcodes: []string{"frob"}})
	require.EqualError(t, err, `disabled_opcodes: unknown opcode "frob"`)
}

func TestFromDefaultConfig(t *testing.T) {
	tgt, err := FromConfig(config.Default().Backend)
	require.NoError(t, err)
	require.Equal(t, "baseline", tgt.Name)
	require.Len(t, tgt.Ops(), len(baselineOps))
}
