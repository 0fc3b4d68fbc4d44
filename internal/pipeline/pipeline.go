// Package pipeline orchestrates the five components into the end-to-end
// analyze-and-rewrite pass for one translation unit.
//
// Grounded on OmpDartASTConsumer.cpp's sequence: interprocedural analysis
// across every function, then per function classify → [aggressive] →
// naive+analyze → rewrite, finally writing the rewritten source.
package pipeline

import (
	"fmt"

	"github.com/kolkov/ompdart/internal/accesslog"
	"github.com/kolkov/ompdart/internal/classify"
	"github.com/kolkov/ompdart/internal/dataflow"
	"github.com/kolkov/ompdart/internal/diag"
	"github.com/kolkov/ompdart/internal/event"
	"github.com/kolkov/ompdart/internal/placement"
	"github.com/kolkov/ompdart/internal/propagate"
	"github.com/kolkov/ompdart/internal/region"
	"github.com/kolkov/ompdart/internal/rewrite"
)

// Options configures one pipeline run (spec §6 CLI maps directly onto
// these).
type Options struct {
	Aggressive       bool
	MaxIterations    int
	DumpAccessLog    bool
}

// Result is everything the run produced: the rewrite batch for each
// function that had a TargetDataRegion, plus accumulated diagnostics.
type Result struct {
	Batches map[event.FuncID]*rewrite.Batch
	Regions map[event.FuncID]*region.TargetDataRegion
	Diags   *diag.Sink
}

// Run executes the full pipeline over every function summary in fns
// (already built by an event.StmtResolver-aware walker via
// internal/accesslog.Builder), returning one rewrite batch per function
// with offloaded kernels.
func Run(fns map[event.FuncID]*accesslog.FunctionSummary, resolver event.StmtResolver, opts Options) *Result {
	diags := diag.NewSink()

	if err := propagate.Run(fns, propagate.Options{
		MaxIterations: opts.MaxIterations,
		Aggressive:    opts.Aggressive,
	}); err != nil {
		diags.Warnf(diag.InconsistentCalleeSummary, event.Pos{}, "%s", err)
	}

	result := &Result{
		Batches: map[event.FuncID]*rewrite.Batch{},
		Regions: map[event.FuncID]*region.TargetDataRegion{},
		Diags:   diags,
	}

	for id, fn := range fns {
		hasOffload := classify.Run(fn)
		if !hasOffload {
			continue
		}

		_ = dataflow.NaiveClassify(fn) // result not consulted, SPEC_FULL.md §E

		begin, end, ok := regionExtent(fn, resolver)
		if !ok {
			diags.FunctionFatal(diag.AnchorResolutionFailure, event.Pos{}, "function %d: could not resolve target data region extent", id)
			continue
		}

		rb := region.NewBuilder(id, begin, end)
		for _, k := range fn.Kernels {
			rb.AddKernel(k)
		}

		for v, meta := range fn.Meta {
			if !fn.Disabled[v] && hasOffloadEntry(fn, v) {
				dataflow.Run(fn, v, meta, rb, begin, end, diags)
			}
		}

		reg := rb.Build()
		result.Regions[id] = reg
		result.Batches[id] = placement.Resolve(reg, resolver)
	}

	return result
}

func hasOffloadEntry(fn *accesslog.FunctionSummary, v event.VarID) bool {
	for _, e := range fn.Log {
		if e.Var == v && e.Offload {
			return true
		}
	}
	return false
}

// regionExtent computes a TargetDataRegion's [begin, end) span (spec
// §4.4 "TargetDataRegion extent"): from the first to the last OFFLOAD
// entry or kernel barrier, find the outermost enclosing statement in the
// function body, widening further to cover every kernel's own
// [BeginPos, EndPos) span.
func regionExtent(fn *accesslog.FunctionSummary, resolver event.StmtResolver) (event.Pos, event.Pos, bool) {
	var first, last *accesslog.AccessEntry
	for i := range fn.Log {
		e := &fn.Log[i]
		if e.Barrier != accesslog.BarrierNone && e.Barrier != accesslog.KernelBegin && e.Barrier != accesslog.KernelEnd {
			continue
		}
		if !e.Offload && e.Barrier == accesslog.BarrierNone {
			continue
		}
		if first == nil {
			first = e
		}
		last = e
	}
	if first == nil || last == nil {
		return event.Pos{}, event.Pos{}, false
	}

	firstRange := resolver.EnclosingStmt(first.Pos)
	lastRange := resolver.EnclosingStmt(last.Pos)
	begin, end := firstRange.Begin, lastRange.End

	for _, k := range fn.Kernels {
		if k.BeginPos.Less(begin) {
			begin = k.BeginPos
		}
		if end.Less(k.EndPos) {
			end = k.EndPos
		}
	}

	return begin, end, true
}

// FormatAccessLog renders fn's access log for the --dump-log debug flag,
// grounded on DataTracker::printAccessLog.
func FormatAccessLog(fn *accesslog.FunctionSummary) string {
	out := fmt.Sprintf("function %s (id=%d)\n", fn.Name, fn.Func)
	for _, e := range fn.Log {
		if e.Barrier != accesslog.BarrierNone {
			out += fmt.Sprintf("  %-14s %s:%d:%d\n", e.Barrier, e.Pos.File, e.Pos.Line, e.Pos.Col)
			continue
		}
		offload := ""
		if e.Offload {
			offload = " [offload]"
		}
		out += fmt.Sprintf("  v%-4d %-10s%s %s:%d:%d\n", e.Var, e.Mode, offload, e.Pos.File, e.Pos.Line, e.Pos.Col)
	}
	return out
}
