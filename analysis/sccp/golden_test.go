package sccp_test

import (
	"bufio"
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"

	"honnef.co/go/jitopt/analysis/sccp"
	"honnef.co/go/jitopt/backend"
	"honnef.co/go/jitopt/ir"
)

var update = flag.Bool("update", false, "rewrite the want sections of golden files")

// goldenOptions are the options in the comment section of a golden
// file, one "key: value" pair per line, up to the first blank line.
type goldenOptions struct {
	target           string
	branchSuccessors bool
	panic            string
}

func parseGoldenOptions(t *testing.T, comment []byte) goldenOptions {
	opts := goldenOptions{target: "baseline", branchSuccessors: true}
	sc := bufio.NewScanner(bytes.NewReader(comment))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			// A description, not an option.
			break
		}
		value = strings.TrimSpace(value)
		switch key {
		case "target":
			opts.target = value
		case "branch_successors":
			b, err := strconv.ParseBool(value)
			if err != nil {
				t.Fatalf("bad branch_successors option: %s", err)
			}
			opts.branchSuccessors = b
		case "panic":
			opts.panic = value
		default:
			// Descriptions may contain colons too.
			return opts
		}
	}
	return opts
}

func analyze(fn *ir.Function, opts sccp.Options) (res *sccp.Result, uerr *sccp.UnhandledOpcodeError) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(*sccp.UnhandledOpcodeError)
			if !ok {
				panic(r)
			}
			uerr = err
		}
	}()
	return sccp.Analyze(fn, opts), nil
}

func findFile(ar *txtar.Archive, name string) *txtar.File {
	for i := range ar.Files {
		if ar.Files[i].Name == name {
			return &ar.Files[i]
		}
	}
	return nil
}

func TestGolden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no golden files")
	}
	for _, file := range files {
		file := file
		t.Run(strings.TrimSuffix(filepath.Base(file), ".txtar"), func(t *testing.T) {
			ar, err := txtar.ParseFile(file)
			if err != nil {
				t.Fatal(err)
			}
			gopts := parseGoldenOptions(t, ar.Comment)
			input := findFile(ar, "input.ir")
			if input == nil {
				t.Fatal("golden file has no input.ir section")
			}
			fn, err := ir.ParseFunction(file, input.Data)
			if err != nil {
				t.Fatal(err)
			}
			target, err := backend.Lookup(gopts.target)
			if err != nil {
				t.Fatal(err)
			}
			opts := sccp.Options{
				Target:           target,
				BranchSuccessors: gopts.branchSuccessors,
				CheckMonotonic:   true,
			}

			res, uerr := analyze(fn, opts)
			if gopts.panic != "" {
				if uerr == nil {
					t.Fatalf("expected analysis to abort with %q", gopts.panic)
				}
				if !strings.Contains(uerr.Error(), gopts.panic) {
					t.Fatalf("got error %q, want it to contain %q", uerr, gopts.panic)
				}
				return
			}
			if uerr != nil {
				t.Fatalf("unexpected abort: %s", uerr)
			}

			var buf bytes.Buffer
			if err := sccp.Fprint(&buf, res); err != nil {
				t.Fatal(err)
			}
			got := buf.String()

			want := findFile(ar, "want")
			if *update {
				if want == nil {
					ar.Files = append(ar.Files, txtar.File{Name: "want"})
					want = &ar.Files[len(ar.Files)-1]
				}
				want.Data = []byte(got)
				if err := os.WriteFile(file, txtar.Format(ar), 0666); err != nil {
					t.Fatal(err)
				}
				return
			}
			if want == nil {
				t.Fatal("golden file has no want section")
			}
			if diff := cmp.Diff(string(want.Data), got); diff != "" {
				t.Errorf("annotated output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
