package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"honnef.co/go/jitopt/analysis/sccp"
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
	ret p
`

const chain = `func chain
a:
	jmp c
b:
	jmp c
c:
	ret
`

func init() {
	color.NoColor = true
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0666))
	return path
}

func TestDumpIR(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "diamond.ir", diamond)
	var buf bytes.Buffer
	require.NoError(t, dump(&buf, path, mode{ir: true}))
	want := `func diamond
entry: # reachable
	x = load.u32 ptr:0x10 # i32
	c = lt.i32 x, i32:3 # const
	br c, then, else
then: # reachable
	y = add.i32 x, i32:1 # i32
	jmp join
else: # reachable
	z = load.f64 ptr:0x20 # f64
	jmp join
join: # reachable
	p = phi [then: y], [else: z] # ⊥
	ret p
`
	assert.Equal(t, want, buf.String())
}

func TestDumpTable(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "chain.ir", chain)
	var buf bytes.Buffer
	require.NoError(t, dump(&buf, path, mode{stats: true}))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "func chain\n"), out)
	assert.Contains(t, out, "TypeVal")
	assert.Contains(t, out, "b (unreachable)")
	assert.NotContains(t, out, "a (unreachable)")
	assert.Contains(t, out, "edges visited: 2, blocks reached: 2/3")
}

func TestDumpTxtar(t *testing.T) {
	dir := t.TempDir()
	ar := "-- one.ir --\n" + diamond + "-- notes.txt --\nignored\n-- two.ir --\n" + chain
	path := writeFile(t, dir, "both.txtar", ar)

	var buf bytes.Buffer
	require.NoError(t, dump(&buf, path, mode{ir: true}))
	assert.Contains(t, buf.String(), "func diamond\n")
	assert.Contains(t, buf.String(), "func chain\n")

	buf.Reset()
	require.NoError(t, dump(&buf, path, mode{ir: true, fn: "chain"}))
	assert.NotContains(t, buf.String(), "func diamond\n")
	assert.Contains(t, buf.String(), "b: # unreachable\n")

	err := dump(&buf, path, mode{fn: "missing"})
	assert.EqualError(t, err, path+": no function named missing")
}

func TestDumpDot(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "chain.ir", chain)
	var buf bytes.Buffer
	require.NoError(t, dump(&buf, path, mode{dot: true}))
	assert.True(t, strings.HasPrefix(buf.String(), "digraph {\n"))
	assert.Contains(t, buf.String(), "n1 -> n2 [style=dashed];")
}

func TestDumpTrace(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "chain.ir", chain)
	var buf bytes.Buffer
	require.NoError(t, dump(&buf, path, mode{ir: true, trace: true}))
	assert.True(t, strings.HasPrefix(buf.String(), "edge\t-> a\n"), buf.String())
	assert.Contains(t, buf.String(), "edge\ta -> c\n")
}

func TestDumpConfig(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0777))
	writeFile(t, dir, "jitopt.conf", "[backend]\ntarget = \"full\"\n")
	path := writeFile(t, sub, "diamond.ir", diamond)

	var buf bytes.Buffer
	err := dump(&buf, path, mode{})
	var uerr *sccp.UnhandledOpcodeError
	require.True(t, errors.As(err, &uerr), "got %v", err)
	assert.Equal(t, "br", uerr.Op.String())
	assert.Equal(t, "full", uerr.Target)

	// The nearer file disables the offending opcode.
	writeFile(t, sub, "jitopt.conf", "[backend]\ndisabled_opcodes = [\"inherit\", \"br\"]\n")
	require.NoError(t, dump(&buf, path, mode{}))

	// The flag overrides the configured target.
	require.NoError(t, os.Remove(filepath.Join(sub, "jitopt.conf")))
	require.NoError(t, dump(&buf, path, mode{target: "baseline"}))

	err = dump(&buf, path, mode{target: "sparc"})
	assert.EqualError(t, err, `backend configuration: unknown backend target "sparc"`)
}

func TestDumpParseError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.ir", "func bad\nentry:\n\tx = frob i32:1\n")
	var buf bytes.Buffer
	err := dump(&buf, path, mode{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown opcode "frob"`)
}
