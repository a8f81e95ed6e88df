package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/boundwalk/boundwalk/ir"
)

// fileConfig is the on-disk YAML shape of an ExecOpts, decoded with
// goccy/go-yaml.
type fileConfig struct {
	Bound             int           `yaml:"bound"`
	SkipThrow         bool          `yaml:"skip_throw"`
	FunctionSummaries bool          `yaml:"function_summaries"`
	EntryPoints       []string      `yaml:"entry_points"`
	Globals           globalsConfig `yaml:"globals"`
}

type globalsConfig struct {
	Mode        string              `yaml:"mode"`
	Declared    []string            `yaml:"declared"`
	PerFunction map[string][]string `yaml:"per_function"`
}

// Load reads an ExecOpts from a YAML file at path. Globals.mode must be
// "declared", "per_function", or empty (which means "declared"); any other
// value is a fatal configuration error.
func Load(path string) (ExecOpts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ExecOpts{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return ExecOpts{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	globals, err := fc.Globals.resolve()
	if err != nil {
		return ExecOpts{}, fmt.Errorf("config: %s: %w", path, err)
	}

	return ExecOpts{
		Bound:             fc.Bound,
		SkipThrow:         fc.SkipThrow,
		FunctionSummaries: fc.FunctionSummaries,
		EntryPoints:       fc.EntryPoints,
		Globals:           globals,
	}, nil
}

func varSet(names []string) map[ir.Var]struct{} {
	out := make(map[ir.Var]struct{}, len(names))
	for _, n := range names {
		out[ir.Var(n)] = struct{}{}
	}
	return out
}

func (g globalsConfig) resolve() (Globals, error) {
	switch g.Mode {
	case "", "declared":
		return Globals{Mode: GlobalsDeclared, Declared: varSet(g.Declared)}, nil
	case "per_function":
		out := make(map[string]map[ir.Var]struct{}, len(g.PerFunction))
		for fn, names := range g.PerFunction {
			out[fn] = varSet(names)
		}
		return Globals{Mode: GlobalsPerFunction, PerFunction: out}, nil
	default:
		return Globals{}, fmt.Errorf("globals: unknown mode %q (want \"declared\" or \"per_function\")", g.Mode)
	}
}
