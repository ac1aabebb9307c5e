// Package config loads jitopt.conf configuration files.
//
// Configuration files are looked up starting in a directory and
// walking up to the file system root. Files closer to the starting
// directory take precedence over files further up; lists may refer to
// the value inherited from the parent configuration with the special
// element "inherit".
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

type config struct {
	cfg  Config
	meta toml.MetaData
}

func mergeLists(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	for _, el := range b {
		if el == "inherit" {
			out = append(out, a...)
		} else {
			out = append(out, el)
		}
	}
	return out
}

func normalizeList(list []string) []string {
	if len(list) > 1 {
		sort.Strings(list)
		nlist := make([]string, 0, len(list))
		nlist = append(nlist, list[0])
		for i, el := range list[1:] {
			if el != list[i] {
				nlist = append(nlist, el)
			}
		}
		list = nlist
	}

	for _, el := range list {
		if el == "inherit" {
			// This should never happen, because the default config
			// should not use "inherit"
			panic(`unresolved "inherit"`)
		}
		if el == "all" {
			return []string{"all"}
		}
	}

	return list
}

func (cfg config) Merge(ocfg config) config {
	if ocfg.meta.IsDefined("backend", "target") {
		cfg.cfg.Backend.Target = ocfg.cfg.Backend.Target
	}
	if ocfg.meta.IsDefined("backend", "enabled_opcodes") {
		cfg.cfg.Backend.EnabledOpcodes = mergeLists(cfg.cfg.Backend.EnabledOpcodes, ocfg.cfg.Backend.EnabledOpcodes)
	}
	if ocfg.meta.IsDefined("backend", "disabled_opcodes") {
		cfg.cfg.Backend.DisabledOpcodes = mergeLists(cfg.cfg.Backend.DisabledOpcodes, ocfg.cfg.Backend.DisabledOpcodes)
	}

	if ocfg.meta.IsDefined("sccp", "branch_successors") {
		cfg.cfg.SCCP.BranchSuccessors = ocfg.cfg.SCCP.BranchSuccessors
	}
	if ocfg.meta.IsDefined("sccp", "check_monotonic") {
		cfg.cfg.SCCP.CheckMonotonic = ocfg.cfg.SCCP.CheckMonotonic
	}
	if ocfg.meta.IsDefined("sccp", "debug") {
		cfg.cfg.SCCP.Debug = ocfg.cfg.SCCP.Debug
	}
	return cfg
}

type Config struct {
	Backend BackendConfig `toml:"backend"`
	SCCP    SCCPConfig    `toml:"sccp"`
}

// BackendConfig selects the code generation target whose supported
// opcodes the analyses check themselves against.
type BackendConfig struct {
	Target string `toml:"target"`
	// EnabledOpcodes and DisabledOpcodes adjust the target's set of
	// supported opcodes. Both accept opcode names and "all".
	EnabledOpcodes  []string `toml:"enabled_opcodes"`
	DisabledOpcodes []string `toml:"disabled_opcodes"`
}

type SCCPConfig struct {
	// BranchSuccessors makes conditional branches mark all of their
	// targets reachable when their block is first evaluated.
	BranchSuccessors bool `toml:"branch_successors"`
	CheckMonotonic   bool `toml:"check_monotonic"`
	Debug            bool `toml:"debug"`
}

var defaultConfig = Config{
	Backend: defaultBackendConfig,
	SCCP:    defaultSCCPConfig,
}

var defaultBackendConfig = BackendConfig{
	Target:          "baseline",
	EnabledOpcodes:  []string{},
	DisabledOpcodes: []string{},
}

var defaultSCCPConfig = SCCPConfig{
	BranchSuccessors: true,
	CheckMonotonic:   true,
	Debug:            false,
}

// Default returns the configuration used when no configuration files
// exist.
func Default() Config {
	cfg := defaultConfig
	cfg.Backend.EnabledOpcodes = append([]string(nil), defaultBackendConfig.EnabledOpcodes...)
	cfg.Backend.DisabledOpcodes = append([]string(nil), defaultBackendConfig.DisabledOpcodes...)
	return cfg
}

const configName = "jitopt.conf"

func parseConfigs(dir string) ([]config, error) {
	var out []config

	for dir != "" {
		f, err := os.Open(filepath.Join(dir, configName))
		if os.IsNotExist(err) {
			ndir := filepath.Dir(dir)
			if ndir == dir {
				break
			}
			dir = ndir
			continue
		}
		if err != nil {
			return nil, err
		}
		var cfg Config
		meta, err := toml.DecodeReader(f, &cfg)
		f.Close()
		if err == nil {
			err = checkUndecoded(meta)
		}
		if err != nil {
			return nil, &ParseError{Filename: f.Name(), Err: err}
		}
		out = append(out, config{cfg, meta})
		ndir := filepath.Dir(dir)
		if ndir == dir {
			break
		}
		dir = ndir
	}
	out = append(out, config{
		cfg:  Default(),
		meta: toml.MetaData{}, // meta of the base config should never be accessed
	})
	if len(out) < 2 {
		return out, nil
	}
	for i := 0; i < len(out)/2; i++ {
		out[i], out[len(out)-1-i] = out[len(out)-1-i], out[i]
	}
	return out, nil
}

func mergeConfigs(confs []config) Config {
	if len(confs) == 0 {
		// This shouldn't happen because we always have at least a
		// default config.
		panic("trying to merge zero configs")
	}
	if len(confs) == 1 {
		return confs[0].cfg
	}
	conf := confs[0]
	for _, oconf := range confs[1:] {
		conf = conf.Merge(oconf)
	}
	return conf.cfg
}

func normalize(conf Config) Config {
	conf.Backend.EnabledOpcodes = normalizeList(conf.Backend.EnabledOpcodes)
	conf.Backend.DisabledOpcodes = normalizeList(conf.Backend.DisabledOpcodes)
	return conf
}

// Load loads and merges all configuration files that apply to dir.
func Load(dir string) (Config, error) {
	confs, err := parseConfigs(dir)
	if err != nil {
		return Config{}, err
	}
	return normalize(mergeConfigs(confs)), nil
}

// Parse parses a single configuration file and merges it with the
// default configuration.
func Parse(r io.Reader) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeReader(r, &cfg)
	if err == nil {
		err = checkUndecoded(meta)
	}
	if err != nil {
		return Config{}, &ParseError{Err: err}
	}
	base := config{cfg: Default()}
	return normalize(base.Merge(config{cfg, meta}).cfg), nil
}

func checkUndecoded(meta toml.MetaData) error {
	keys := meta.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(names, ", "))
}

// ParseError is returned when a configuration file is not valid TOML
// or does not match the configuration schema.
type ParseError struct {
	Filename string
	Err      error
}

func (err *ParseError) Error() string {
	if err.Filename == "" {
		return "invalid configuration: " + err.Err.Error()
	}
	return "invalid configuration in " + err.Filename + ": " + err.Err.Error()
}

func (err *ParseError) Unwrap() error { return err.Err }
