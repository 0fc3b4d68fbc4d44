package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kolkov/ompdart/internal/accesslog"
	"github.com/kolkov/ompdart/internal/event"
	"github.com/kolkov/ompdart/internal/pipeline"
	"github.com/kolkov/ompdart/internal/rewrite"
	"github.com/kolkov/ompdart/internal/walkgo"
)

func TestParseArgsInputFileOnly(t *testing.T) {
	cfg, err := parseArgs([]string{"foo.go"})
	if err != nil {
		t.Fatalf("parseArgs() error: %v", err)
	}
	if cfg.inputFile != "foo.go" {
		t.Errorf("inputFile = %q, want foo.go", cfg.inputFile)
	}
	if cfg.aggressive || cfg.dumpLog || cfg.outputFile != "" {
		t.Errorf("expected every other flag to default off, got %+v", cfg)
	}
}

func TestParseArgsOutputFlagForms(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"space separated -o", []string{"-o", "out.go", "foo.go"}, "out.go"},
		{"space separated --output", []string{"--output", "out.go", "foo.go"}, "out.go"},
		{"equals form -o=", []string{"-o=out.go", "foo.go"}, "out.go"},
		{"equals form --output=", []string{"--output=out.go", "foo.go"}, "out.go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseArgs(tt.args)
			if err != nil {
				t.Fatalf("parseArgs() error: %v", err)
			}
			if cfg.outputFile != tt.want {
				t.Errorf("outputFile = %q, want %q", cfg.outputFile, tt.want)
			}
		})
	}
}

func TestParseArgsAggressiveAndDumpLog(t *testing.T) {
	cfg, err := parseArgs([]string{"-a", "--dump-log", "foo.go"})
	if err != nil {
		t.Fatalf("parseArgs() error: %v", err)
	}
	if !cfg.aggressive {
		t.Error("expected -a to set aggressive")
	}
	if !cfg.dumpLog {
		t.Error("expected --dump-log to set dumpLog")
	}
}

func TestParseArgsMissingOutputValueErrors(t *testing.T) {
	if _, err := parseArgs([]string{"-o"}); err == nil {
		t.Error("expected an error when -o has no following argument")
	}
}

func TestParseArgsUnknownFlagErrors(t *testing.T) {
	if _, err := parseArgs([]string{"--bogus", "foo.go"}); err == nil {
		t.Error("expected an error for an unrecognized flag")
	}
}

func TestParseArgsNoInputFileErrors(t *testing.T) {
	if _, err := parseArgs([]string{"-a"}); err == nil {
		t.Error("expected an error when no input file is given")
	}
}

func TestParseArgsTwoPositionalArgsErrors(t *testing.T) {
	if _, err := parseArgs([]string{"foo.go", "bar.go"}); err == nil {
		t.Error("expected an error when more than one input file is given")
	}
}

func TestMergeBatchesFlattensEveryFunction(t *testing.T) {
	b1 := &rewrite.Batch{}
	b1.InsertBefore(event.Pos{Offset: 1}, "A")
	b2 := &rewrite.Batch{}
	b2.InsertAfter(event.Pos{Offset: 2}, "B")
	b2.RemoveRange(event.Pos{Offset: 3}, 4)

	merged := mergeBatches(map[event.FuncID]*rewrite.Batch{0: b1, 1: b2})
	ops := merged.Ops()
	if len(ops) != 3 {
		t.Fatalf("expected 3 merged ops, got %d", len(ops))
	}

	var sawBefore, sawAfter, sawRemove bool
	for _, op := range ops {
		switch op.Kind {
		case rewrite.InsertBefore:
			sawBefore = op.Text == "A"
		case rewrite.InsertAfter:
			sawAfter = op.Text == "B"
		case rewrite.RemoveRange:
			sawRemove = op.Len == 4
		}
	}
	if !sawBefore || !sawAfter || !sawRemove {
		t.Errorf("expected all three op kinds to survive the merge, got %+v", ops)
	}
}

func TestMergeBatchesEmptyMapProducesEmptyBatch(t *testing.T) {
	merged := mergeBatches(map[event.FuncID]*rewrite.Batch{})
	if len(merged.Ops()) != 0 {
		t.Error("expected an empty batch for an empty input map")
	}
}

func TestDefaultOutputPathUsesTmpBasename(t *testing.T) {
	got := defaultOutputPath("/home/user/project/kernel.go")
	want := "/tmp/kernel.go"
	if got != want {
		t.Errorf("defaultOutputPath() = %q, want %q", got, want)
	}
}

// End-to-end: walkgo -> pipeline -> rewrite.Apply over spec.md §8
// Scenario 1 ("scalar live across a single kernel") must actually emit a
// firstprivate clause in the rewritten text, not just in hand-constructed
// unit-test state.
func TestAnalyzeAndRewriteEmitsFirstPrivateForScalarScenario(t *testing.T) {
	src := `package sample

func Kernel(n int) int {
	x := n
	//ompdart:target
	for i := 0; i < 10; i++ {
		x = x + n
	}
	return x
}
`
	funcs, resolver, err := walkgo.AnalyzeFile("kernel.go", []byte(src))
	if err != nil {
		t.Fatalf("AnalyzeFile() error: %v", err)
	}
	var fn *accesslog.FunctionSummary
	for _, f := range funcs {
		fn = f
	}
	if fn == nil || len(fn.Params) != 1 {
		t.Fatalf("expected exactly one parameter recorded for n, got %+v", fn)
	}
	nVar := fn.Params[0]

	result := pipeline.Run(funcs, resolver, pipeline.Options{})

	out, err := rewrite.Apply([]byte(src), mergeBatches(result.Batches))
	if err != nil {
		t.Fatalf("rewrite.Apply() error: %v", err)
	}

	wantFirstPrivate := fmt.Sprintf("firstprivate(v%d)", nVar)
	if !strings.Contains(string(out), wantFirstPrivate) {
		t.Fatalf("expected the rewritten source to contain %s, got:\n%s", wantFirstPrivate, out)
	}
	for _, clause := range []string{"map(to:v%d)", "map(tofrom:v%d)", "map(alloc:v%d)", "map(from:v%d)"} {
		if bad := fmt.Sprintf(clause, nVar); strings.Contains(string(out), bad) {
			t.Errorf("a firstprivate-demoted scalar must not also receive %s, got:\n%s", bad, out)
		}
	}
}
