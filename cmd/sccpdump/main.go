// Sccpdump runs the type and reachability analysis on functions in the
// textual IR format and prints the results.
//
// Input files are either .ir files or txtar archives, in which case
// every member whose name ends in .ir is analyzed. Configuration is
// loaded from jitopt.conf files in the directory of each input and
// its parents.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/tools/txtar"

	"honnef.co/go/jitopt/analysis/sccp"
	"honnef.co/go/jitopt/backend"
	"honnef.co/go/jitopt/config"
	"honnef.co/go/jitopt/debug"
	"honnef.co/go/jitopt/ir"
	"honnef.co/go/jitopt/version"
)

var (
	dotFlag     = flag.Bool("dot", false, "Print Graphviz dot of the annotated CFG")
	irFlag      = flag.Bool("ir", false, "Print the annotated IR instead of a table")
	latticeFlag = flag.Bool("lattice", false, "Print Graphviz dot of the TypeVal lattice and exit")
	debugFlag   = flag.Bool("debug", false, "Log every step of the analysis")
	traceFlag   = flag.Bool("trace", false, "Print edges, evaluations and updates as they happen")
	statsFlag   = flag.Bool("stats", false, "Print statistics about the analysis")
	targetFlag  = flag.String("target", "", "Override the configured backend target ("+strings.Join(backend.Names(), ", ")+")")
	funcFlag    = flag.String("func", "", "Only analyze the function with this name")
	versionFlag = flag.Bool("version", false, "Print version and exit")
	noColorFlag = flag.Bool("no-color", false, "Disable colored output")
)

// mode selects what dump prints for each function.
type mode struct {
	dot   bool
	ir    bool
	trace bool
	stats bool
	debug bool
	fn    string
	// target overrides the configured backend target if non-empty.
	target string
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("sccpdump: ")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] file.ir|file.txtar...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if *versionFlag {
		version.Verbose(os.Stdout, filepath.Base(os.Args[0]))
		os.Exit(0)
	}
	if *noColorFlag {
		color.NoColor = true
	}
	if *latticeFlag {
		fmt.Print(sccp.Lattice.Dot(sccp.States()))
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	m := mode{
		dot:    *dotFlag,
		ir:     *irFlag,
		trace:  *traceFlag,
		stats:  *statsFlag,
		debug:  *debugFlag,
		fn:     *funcFlag,
		target: *targetFlag,
	}
	for _, path := range flag.Args() {
		if err := dump(os.Stdout, path, m); err != nil {
			var uerr *sccp.UnhandledOpcodeError
			if errors.As(err, &uerr) {
				log.Fatalf("%s: %s\nthe analysis needs a transfer rule for every opcode the backend supports", path, uerr)
			}
			log.Fatal(err)
		}
	}
}

// readFunctions parses the functions in path, which is either a
// single IR file or a txtar archive of them.
func readFunctions(path string) ([]*ir.Function, error) {
	if filepath.Ext(path) != ".txtar" {
		return ir.ParseFile(path)
	}
	ar, err := txtar.ParseFile(path)
	if err != nil {
		return nil, err
	}
	var out []*ir.Function
	for _, f := range ar.Files {
		if filepath.Ext(f.Name) != ".ir" {
			continue
		}
		fns, err := ir.Parse(path+"/"+f.Name, f.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, fns...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: archive contains no .ir files", path)
	}
	return out, nil
}

func options(path string, m mode) (sccp.Options, error) {
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return sccp.Options{}, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return sccp.Options{}, err
	}
	if m.target != "" {
		cfg.Backend.Target = m.target
	}
	target, err := backend.FromConfig(cfg.Backend)
	if err != nil {
		return sccp.Options{}, fmt.Errorf("backend configuration: %w", err)
	}
	opts := sccp.OptionsFromConfig(cfg.SCCP, target)
	if m.debug {
		opts.Debug = true
	}
	return opts, nil
}

// analyze runs the analysis and turns an abort into an error.
func analyze(fn *ir.Function, opts sccp.Options) (res *sccp.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			uerr, ok := r.(*sccp.UnhandledOpcodeError)
			if !ok {
				panic(r)
			}
			err = uerr
		}
	}()
	return sccp.Analyze(fn, opts), nil
}

func dump(w io.Writer, path string, m mode) error {
	fns, err := readFunctions(path)
	if err != nil {
		return err
	}
	base, err := options(path, m)
	if err != nil {
		return err
	}
	found := false
	for _, fn := range fns {
		if m.fn != "" && fn.Name != m.fn {
			continue
		}
		found = true
		opts := base
		if m.trace {
			debug.Trace(w, fn, &opts)
		}
		res, err := analyze(fn, opts)
		if err != nil {
			return err
		}
		switch {
		case m.dot:
			fmt.Fprint(w, debug.Dot(res))
		case m.ir:
			if err := sccp.Fprint(w, res); err != nil {
				return err
			}
		default:
			printTable(w, res)
		}
		if m.stats {
			printStats(w, res)
		}
	}
	if !found && m.fn != "" {
		return fmt.Errorf("%s: no function named %s", path, m.fn)
	}
	return nil
}

var (
	dead   = color.New(color.FgHiBlack).SprintFunc()
	bottom = color.New(color.FgRed).SprintFunc()
	known  = color.New(color.FgGreen).SprintFunc()
)

func printTable(w io.Writer, res *sccp.Result) {
	fn := res.Function
	fmt.Fprintf(w, "func %s\n", fn.Name)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Block", "Value", "Instruction", "TypeVal"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, blk := range fn.Blocks {
		reachable := res.Reachable(blk.ID)
		for _, ids := range [][]ir.ValueID{blk.Phis, blk.Instrs} {
			for _, id := range ids {
				v := fn.Value(id)
				var name, tv string
				if v.Op.HasOutput() {
					name = fn.ValueName(id)
					if reachable {
						tv = formatTypeVal(res.Value(id))
					}
				}
				instr := ir.FormatValue(fn, v)
				block := blk.String()
				if !reachable {
					block = dead(block + " (unreachable)")
					instr = dead(instr)
				}
				table.Append([]string{block, name, instr, tv})
			}
		}
	}
	table.Render()
}

func formatTypeVal(tv sccp.TypeVal) string {
	switch tv.Kind {
	case sccp.KindBot:
		return bottom(tv.String())
	case sccp.KindTop:
		return tv.String()
	default:
		return known(tv.String())
	}
}

func printStats(w io.Writer, res *sccp.Result) {
	st := res.Stats
	fmt.Fprintf(w, "edges visited: %d, blocks reached: %d/%d, evaluations: %d (%d φ), updates: %d\n",
		st.EdgesVisited, st.BlocksReached, len(res.Function.Blocks),
		st.InstrEvals+st.PhiEvals, st.PhiEvals, st.Updates)
}
