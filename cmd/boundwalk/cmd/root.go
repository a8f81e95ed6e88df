// Package cmd implements boundwalk's command-line surface: cobra
// subcommands that load an exec_opts configuration and a demo JSON
// program, then drive the engine against the reference PathDomain.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set by build flags; it defaults to a development marker.
var Version = "0.1.0-dev"

var (
	configPath  string
	programPath string
	jsonLog     bool
	metricsAddr string
	enableOTel  bool
)

var rootCmd = &cobra.Command{
	Use:     "boundwalk",
	Short:   "Bounded interprocedural exploration engine for a low-level IR",
	Version: Version,
	Long: `boundwalk drives an abstract-interpretation domain over a program's
control-flow graph: it pushes and pops call frames, joins states at merge
points, bounds exploration by recursion depth and loop iteration, and
optionally computes and applies function summaries.

This CLI exercises the engine against the bundled reference domain
(a trivial path-set abstraction) and a small JSON program format; it is
a harness for the engine, not a frontend for any particular source
language.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to an exec_opts YAML file (required)")
	rootCmd.PersistentFlags().StringVar(&programPath, "program", "", "path to a JSON-encoded program (required)")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "emit findings and trace events as JSON lines instead of text")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.PersistentFlags().BoolVar(&enableOTel, "otel", false, "also report findings and trace events as OpenTelemetry spans")
	_ = rootCmd.MarkPersistentFlagRequired("config")
	_ = rootCmd.MarkPersistentFlagRequired("program")
}

func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "boundwalk: "+format+"\n", args...)
	os.Exit(1)
}
