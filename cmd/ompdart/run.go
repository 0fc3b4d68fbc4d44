// run.go implements argument parsing and the analyze-and-rewrite flow
// for the ompdart CLI, mirroring the teacher's parseBuildArgs/
// buildCommand split (cmd/racedetector/build.go).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kolkov/ompdart/internal/accesslog"
	"github.com/kolkov/ompdart/internal/event"
	"github.com/kolkov/ompdart/internal/pipeline"
	"github.com/kolkov/ompdart/internal/rewrite"
	"github.com/kolkov/ompdart/internal/walkgo"
)

// config holds the parsed command-line configuration for one run.
type config struct {
	inputFile  string
	outputFile string
	aggressive bool
	dumpLog    bool
}

// parseArgs parses ompdart's flags, following the teacher's
// one-flag-at-a-time loop (parseBuildArgs) rather than a flag.FlagSet,
// since "--dump-log" and "-a" need no value and "-o"/"--output" is the
// only flag that consumes the next argument.
func parseArgs(args []string) (*config, error) {
	cfg := &config{}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "-o" || arg == "--output":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s flag requires an argument", arg)
			}
			i++
			cfg.outputFile = args[i]

		case strings.HasPrefix(arg, "-o="):
			cfg.outputFile = strings.TrimPrefix(arg, "-o=")
		case strings.HasPrefix(arg, "--output="):
			cfg.outputFile = strings.TrimPrefix(arg, "--output=")

		case arg == "-a" || arg == "--aggressive-cross-function":
			cfg.aggressive = true

		case arg == "--dump-log":
			cfg.dumpLog = true

		case arg == "-h" || arg == "--help":
			printUsage()
			os.Exit(0)

		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unknown flag: %s", arg)

		default:
			if cfg.inputFile != "" {
				return nil, fmt.Errorf("only one input file is supported, got both %q and %q", cfg.inputFile, arg)
			}
			cfg.inputFile = arg
		}
	}

	if cfg.inputFile == "" {
		return nil, fmt.Errorf("no input file given")
	}
	return cfg, nil
}

// analyzeCommand is the CLI entry point's sole subcommand: parse flags,
// run the pipeline over one file, and either dump its access logs or
// write the rewritten source.
func analyzeCommand(args []string) {
	cfg, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	src, err := os.ReadFile(cfg.inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot read %s: %v\n", cfg.inputFile, err)
		os.Exit(1)
	}

	funcs, resolver, err := walkgo.AnalyzeFile(cfg.inputFile, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.dumpLog {
		dumpAccessLogs(funcs)
		return
	}

	result := pipeline.Run(funcs, resolver, pipeline.Options{
		Aggressive: cfg.aggressive,
	})

	for _, d := range result.Diags.Items() {
		fmt.Fprintln(os.Stderr, d.String())
	}

	out, err := rewrite.Apply(src, mergeBatches(result.Batches))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to apply rewrite: %v\n", err)
		os.Exit(1)
	}

	outputFile := cfg.outputFile
	if outputFile == "" {
		outputFile = defaultOutputPath(cfg.inputFile)
	}
	if err := os.WriteFile(outputFile, out, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write %s: %v\n", outputFile, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", outputFile)
}

// defaultOutputPath returns /tmp/<basename> of the input file, the
// -o/--output default named in spec.md §6.
func defaultOutputPath(inputFile string) string {
	return filepath.Join("/tmp", filepath.Base(inputFile))
}

// mergeBatches flattens every function's rewrite batch into one, since
// rewrite.Apply operates on a single source buffer covering every
// function in the file.
func mergeBatches(batches map[event.FuncID]*rewrite.Batch) *rewrite.Batch {
	merged := &rewrite.Batch{}
	for _, b := range batches {
		for _, op := range b.Ops() {
			switch op.Kind {
			case rewrite.InsertBefore:
				merged.InsertBefore(op.Pos, op.Text)
			case rewrite.InsertAfter:
				merged.InsertAfter(op.Pos, op.Text)
			case rewrite.RemoveRange:
				merged.RemoveRange(op.Pos, op.Len)
			}
		}
	}
	return merged
}

func dumpAccessLogs(funcs map[event.FuncID]*accesslog.FunctionSummary) {
	ids := make([]event.FuncID, 0, len(funcs))
	for id := range funcs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Fprint(os.Stderr, pipeline.FormatAccessLog(funcs[id]))
	}
}
