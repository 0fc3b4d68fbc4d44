package walkgo

import (
	"testing"

	"github.com/kolkov/ompdart/internal/accesslog"
)

const sampleSrc = `package sample

var g int

func Kernel(n int, arr *int) int {
	sum := 0
	//ompdart:target private(sum)
	for i := 0; i < n; i++ {
		sum += i
	}
	g = sum
	return sum
}
`

func TestAnalyzeFileParsesOneFunction(t *testing.T) {
	funcs, resolver, err := AnalyzeFile("sample.go", []byte(sampleSrc))
	if err != nil {
		t.Fatalf("AnalyzeFile() error: %v", err)
	}
	if resolver == nil {
		t.Fatal("expected a non-nil Resolver")
	}
	if len(funcs) != 1 {
		t.Fatalf("expected exactly one function summary, got %d", len(funcs))
	}
}

func TestAnalyzeFileRecordsParamsAndGlobal(t *testing.T) {
	funcs, _, err := AnalyzeFile("sample.go", []byte(sampleSrc))
	if err != nil {
		t.Fatalf("AnalyzeFile() error: %v", err)
	}
	var fn *accesslog.FunctionSummary
	for _, f := range funcs {
		fn = f
	}
	if fn == nil {
		t.Fatal("expected one function summary")
	}
	if fn.Name != "Kernel" {
		t.Errorf("Name = %q, want Kernel", fn.Name)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 params (n, arr), got %d", len(fn.Params))
	}

	globalCount := 0
	for range fn.Globals {
		globalCount++
	}
	if globalCount != 1 {
		t.Fatalf("expected exactly one global (g) referenced, got %d", globalCount)
	}
	for gid := range fn.Globals {
		meta, ok := fn.Meta[gid]
		if !ok || !meta.IsGlobal || !meta.Arithmetic {
			t.Errorf("expected the global's VarMeta to be IsGlobal+Arithmetic, got %+v (ok=%v)", meta, ok)
		}
	}
}

func TestAnalyzeFileRecordsPragmaAsKernelWithPrivate(t *testing.T) {
	funcs, _, err := AnalyzeFile("sample.go", []byte(sampleSrc))
	if err != nil {
		t.Fatalf("AnalyzeFile() error: %v", err)
	}
	var fn *accesslog.FunctionSummary
	for _, f := range funcs {
		fn = f
	}
	if len(fn.Kernels) != 1 {
		t.Fatalf("expected exactly one kernel from the pragma, got %d", len(fn.Kernels))
	}
	if len(fn.Kernels[0].PrivateDecls) != 1 {
		t.Errorf("expected exactly one private declaration (sum), got %d", len(fn.Kernels[0].PrivateDecls))
	}
}

func TestAnalyzeFileExtractsCountedLoopBounds(t *testing.T) {
	funcs, _, err := AnalyzeFile("sample.go", []byte(sampleSrc))
	if err != nil {
		t.Fatalf("AnalyzeFile() error: %v", err)
	}
	var fn *accesslog.FunctionSummary
	for _, f := range funcs {
		fn = f
	}

	var found *accesslog.LoopBounds
	for _, e := range fn.Log {
		if e.Barrier == accesslog.LoopBegin && e.Loop != nil {
			found = e.Loop
		}
	}
	if found == nil {
		t.Fatal("expected a LoopBegin entry carrying extracted bounds")
	}
	if !found.Ascending {
		t.Error("expected Ascending == true for 'i < n'")
	}
	if found.LowerExpr != "0" || found.UpperExpr != "n" {
		t.Errorf("LowerExpr/UpperExpr = %q/%q, want 0/n", found.LowerExpr, found.UpperExpr)
	}
}

func TestAnalyzeFilePragmaWithoutPrivateClause(t *testing.T) {
	src := `package sample

func Plain(n int) int {
	//ompdart:target
	for i := 0; i < n; i++ {
	}
	return n
}
`
	funcs, _, err := AnalyzeFile("plain.go", []byte(src))
	if err != nil {
		t.Fatalf("AnalyzeFile() error: %v", err)
	}
	var fn *accesslog.FunctionSummary
	for _, f := range funcs {
		fn = f
	}
	if len(fn.Kernels) != 1 {
		t.Fatalf("expected one kernel even with no private() clause, got %d", len(fn.Kernels))
	}
	if len(fn.Kernels[0].PrivateDecls) != 0 {
		t.Errorf("expected no private declarations, got %d", len(fn.Kernels[0].PrivateDecls))
	}
}

func TestAnalyzeFileInvalidSyntaxErrors(t *testing.T) {
	if _, _, err := AnalyzeFile("bad.go", []byte("package sample\nfunc (")); err == nil {
		t.Error("expected a parse error for invalid Go syntax")
	}
}

func TestAnalyzeFileNoFunctionsReturnsEmptyMap(t *testing.T) {
	src := "package sample\n\nvar x int\n"
	funcs, resolver, err := AnalyzeFile("novar.go", []byte(src))
	if err != nil {
		t.Fatalf("AnalyzeFile() error: %v", err)
	}
	if resolver == nil {
		t.Fatal("expected a non-nil Resolver even with no functions")
	}
	if len(funcs) != 0 {
		t.Errorf("expected no function summaries, got %d", len(funcs))
	}
}
