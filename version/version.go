// Package version reports the version of jitopt binaries.
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
)

const Version = "devel"

// version returns a version descriptor and reports whether the
// version is a known release.
func version() (string, bool) {
	if Version != "devel" {
		return Version, true
	}
	v, ok := buildInfoVersion()
	if ok {
		return v, false
	}
	return "devel", false
}

func buildInfoVersion() (string, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	if info.Main.Version == "(devel)" || info.Main.Version == "" {
		return "", false
	}
	return info.Main.Version, true
}

// String returns the one-line version string of the program name.
func String(name string) string {
	v, release := version()
	switch {
	case release:
		return fmt.Sprintf("%s %s", name, v)
	case v == "devel":
		return fmt.Sprintf("%s (no version)", name)
	default:
		return fmt.Sprintf("%s (devel, %s)", name, v)
	}
}

func Print(w io.Writer, name string) {
	fmt.Fprintln(w, String(name))
}

// Verbose prints the version, the Go version and the module
// versions the program was built with.
func Verbose(w io.Writer, name string) {
	Print(w, name)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compiled with Go version:", runtime.Version())
	if info, ok := debug.ReadBuildInfo(); ok {
		fmt.Fprintln(w, "Main module:")
		printModule(w, &info.Main)
		fmt.Fprintln(w, "Dependencies:")
		for _, dep := range info.Deps {
			printModule(w, dep)
		}
	} else {
		fmt.Fprintln(w, "Built without Go modules")
	}
}

func printModule(w io.Writer, m *debug.Module) {
	fmt.Fprintf(w, "\t%s", m.Path)
	if m.Version != "(devel)" {
		fmt.Fprintf(w, "@%s", m.Version)
	}
	if m.Sum != "" {
		fmt.Fprintf(w, " (sum: %s)", m.Sum)
	}
	if m.Replace != nil {
		fmt.Fprintf(w, " (replace: %s)", m.Replace.Path)
	}
	fmt.Fprintln(w)
}
