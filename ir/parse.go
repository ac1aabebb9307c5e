package ir

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// A ParseError describes a syntax or semantic error in textual IR.
type ParseError struct {
	File string
	Line int // 1-based line number
	Msg  string
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", err.File, err.Line, err.Msg)
}

type srcLine struct {
	num  int
	toks []string
}

// Parse parses the functions in src. The format is the one produced
// by Fprint:
//
//	func name
//	entry:
//		x = load.u32 ptr:0x10
//		c = lt.i32 x, i32:3
//		br c, then, done
//	then:
//		jmp done
//	done:
//		p = phi [entry: x], [then: i32:0]
//		ret p
//
// Text following a '#' is a comment. The first block of each function
// is its entry block. Values may be referred to before their
// definition.
func Parse(filename string, src []byte) ([]*Function, error) {
	var (
		out  []*Function
		cur  *funcParser
		scan = bufio.NewScanner(bytes.NewReader(src))
		num  = 0
	)
	finish := func() error {
		if cur == nil {
			return nil
		}
		fn, err := cur.parse()
		if err != nil {
			return err
		}
		out = append(out, fn)
		return nil
	}
	for scan.Scan() {
		num++
		text := scan.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		toks := tokenize(text)
		if len(toks) == 0 {
			continue
		}
		if toks[0] == "func" {
			if len(toks) != 2 {
				return nil, &ParseError{filename, num, "expected 'func NAME'"}
			}
			if err := finish(); err != nil {
				return nil, err
			}
			cur = &funcParser{file: filename, name: toks[1], line: num}
			continue
		}
		if cur == nil {
			return nil, &ParseError{filename, num, "expected 'func NAME'"}
		}
		cur.body = append(cur.body, srcLine{num, toks})
	}
	if err := scan.Err(); err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseFunction parses src, which must contain exactly one function.
func ParseFunction(filename string, src []byte) (*Function, error) {
	fns, err := Parse(filename, src)
	if err != nil {
		return nil, err
	}
	if len(fns) != 1 {
		return nil, fmt.Errorf("%s: expected exactly one function, found %d", filename, len(fns))
	}
	return fns[0], nil
}

func ParseFile(path string) ([]*Function, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, src)
}

func tokenize(line string) []string {
	var toks []string
	start := -1
	flush := func(i int) {
		if start >= 0 {
			toks = append(toks, line[start:i])
			start = -1
		}
	}
	for i := 0; i < len(line); i++ {
		switch c := line[i]; c {
		case ' ', '\t', '\r':
			flush(i)
		case ',', '[', ']', '=':
			flush(i)
			toks = append(toks, string(c))
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(line))
	return toks
}

type funcParser struct {
	file   string
	name   string
	line   int
	body   []srcLine
	labels []string
	blocks map[string]BlockID
	values map[string]ValueID
	b      *Builder
}

func (p *funcParser) errorf(line int, format string, args ...interface{}) error {
	return &ParseError{p.file, line, fmt.Sprintf(format, args...)}
}

func isLabel(toks []string) bool {
	return len(toks) == 1 && len(toks[0]) > 1 && strings.HasSuffix(toks[0], ":")
}

func validName(s string) bool {
	if s == "" || s == "true" || s == "false" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '.'):
		default:
			return false
		}
	}
	return true
}

func (p *funcParser) parse() (*Function, error) {
	p.blocks = map[string]BlockID{}
	p.values = map[string]ValueID{}

	// Pass 1: assign IDs to labels and named values. The Builder
	// allocates value IDs in creation order, which is textual order.
	next := ValueID(0)
	for _, l := range p.body {
		if isLabel(l.toks) {
			label := strings.TrimSuffix(l.toks[0], ":")
			if !validName(label) {
				return nil, p.errorf(l.num, "invalid block label %q", label)
			}
			if _, ok := p.blocks[label]; ok {
				return nil, p.errorf(l.num, "duplicate block label %q", label)
			}
			p.blocks[label] = BlockID(len(p.labels))
			p.labels = append(p.labels, label)
			continue
		}
		if len(p.labels) == 0 {
			return nil, p.errorf(l.num, "instruction outside of a block")
		}
		if len(l.toks) >= 2 && l.toks[1] == "=" {
			name := l.toks[0]
			if !validName(name) {
				return nil, p.errorf(l.num, "invalid value name %q", name)
			}
			if _, ok := p.values[name]; ok {
				return nil, p.errorf(l.num, "value %q redefined", name)
			}
			p.values[name] = next
		}
		next++
	}
	if len(p.labels) == 0 {
		return nil, p.errorf(p.line, "function %s has no blocks", p.name)
	}

	// Pass 2: build.
	p.b = NewBuilder(p.name)
	for _, label := range p.labels {
		p.b.Block(label)
	}
	for _, l := range p.body {
		if isLabel(l.toks) {
			p.b.SetBlock(p.blocks[strings.TrimSuffix(l.toks[0], ":")])
			continue
		}
		if err := p.parseValue(l); err != nil {
			return nil, err
		}
	}
	fn, err := p.b.Finish()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.file, err)
	}
	return fn, nil
}

func (p *funcParser) parseValue(l srcLine) error {
	toks := l.toks
	var name string
	if len(toks) >= 2 && toks[1] == "=" {
		name = toks[0]
		toks = toks[2:]
	}
	if len(toks) == 0 {
		return p.errorf(l.num, "missing opcode")
	}
	op, ok := ParseOp(toks[0])
	if !ok {
		return p.errorf(l.num, "unknown opcode %q", toks[0])
	}
	if name != "" && !op.HasOutput() {
		return p.errorf(l.num, "%s produces no value and cannot be named", op)
	}

	var id ValueID
	if op == OpPhi {
		edges, err := p.parseEdges(l.num, toks[1:])
		if err != nil {
			return err
		}
		id = p.b.Phi(edges...)
	} else {
		items, err := p.splitList(l.num, toks[1:])
		if err != nil {
			return err
		}
		nt := op.NumTargets()
		if len(items) < nt {
			return p.errorf(l.num, "%s needs %d targets", op, nt)
		}
		var args []Operand
		for _, item := range items[:len(items)-nt] {
			arg, err := p.parseOperand(l.num, item)
			if err != nil {
				return err
			}
			args = append(args, arg)
		}
		var targets []BlockID
		for _, item := range items[len(items)-nt:] {
			t, ok := p.blocks[item]
			if !ok {
				return p.errorf(l.num, "undefined block %q", item)
			}
			targets = append(targets, t)
		}
		id = p.b.Instr(op, targets, args...)
	}
	if name != "" {
		if want := p.values[name]; want != id {
			panic(fmt.Sprintf("value %s was assigned ID %d, expected %d", name, id, want))
		}
		p.b.SetName(id, name)
	}
	return nil
}

// splitList splits a comma-separated list of single-token items.
func (p *funcParser) splitList(line int, toks []string) ([]string, error) {
	var items []string
	for i, tok := range toks {
		if i%2 == 1 {
			if tok != "," {
				return nil, p.errorf(line, "expected ',', found %q", tok)
			}
			continue
		}
		if tok == "," || tok == "[" || tok == "]" || tok == "=" {
			return nil, p.errorf(line, "unexpected %q", tok)
		}
		items = append(items, tok)
	}
	if len(toks) > 0 && len(toks)%2 == 0 {
		return nil, p.errorf(line, "trailing ','")
	}
	return items, nil
}

func (p *funcParser) parseEdges(line int, toks []string) ([]PhiEdge, error) {
	var edges []PhiEdge
	for len(toks) > 0 {
		if len(toks) < 4 || toks[0] != "[" || toks[3] != "]" || !strings.HasSuffix(toks[1], ":") {
			return nil, p.errorf(line, "malformed φ edge, expected '[block: value]'")
		}
		label := strings.TrimSuffix(toks[1], ":")
		pred, ok := p.blocks[label]
		if !ok {
			return nil, p.errorf(line, "undefined block %q", label)
		}
		arg, err := p.parseOperand(line, toks[2])
		if err != nil {
			return nil, err
		}
		edges = append(edges, PhiEdge{Pred: pred, Arg: arg})
		toks = toks[4:]
		if len(toks) > 0 {
			if toks[0] != "," || len(toks) == 1 {
				return nil, p.errorf(line, "expected ',' between φ edges")
			}
			toks = toks[1:]
		}
	}
	return edges, nil
}

func (p *funcParser) parseOperand(line int, tok string) (Operand, error) {
	if id, ok := p.values[tok]; ok {
		return V(id), nil
	}
	if validName(tok) {
		return Operand{}, p.errorf(line, "undefined value %q", tok)
	}
	c, err := parseConst(tok)
	if err != nil {
		return Operand{}, p.errorf(line, "%s", err)
	}
	return L(c), nil
}
