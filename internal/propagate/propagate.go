// Package propagate implements the Interprocedural Propagator (spec
// §4.2): a monotone fixpoint across per-function summaries that
// rewrites call-site entries with the effective access mode of each
// callee on its pointer parameters and globals.
//
// Grounded on AnalysisUtils.cpp's performInterproceduralAnalysis and
// DataTracker.cpp's updateParamsTouchedByCallee/updateGlobalsTouchedByCallee.
// The lattice-join style of repeatedly refining a summary toward a fixed
// point mirrors internal/race/vectorclock's Join operation in the
// teacher, applied here to the accesslog.Mode lattice instead of logical
// clocks.
package propagate

import (
	"errors"
	"fmt"

	"github.com/kolkov/ompdart/internal/accesslog"
	"github.com/kolkov/ompdart/internal/event"
)

// ErrIterationCapReached is returned (wrapped, as a warning — analysis
// still completes) when the fixpoint did not reach zero updates within
// MaxIterations rounds. This is expected for recursive call graphs (spec
// §4.2 Termination, SPEC_FULL.md §G.1): the residual entries remain at
// whatever mode the lattice join had reached, UNKNOWN in the worst case.
var ErrIterationCapReached = errors.New("propagate: iteration cap reached before fixpoint")

// Options configures one propagation run.
type Options struct {
	// MaxIterations bounds the fixpoint loop (default 32 if zero). The
	// original analyzer iterates unboundedly; spec §9 calls for a
	// configurable cap since recursive call graphs cannot converge.
	MaxIterations int
	// Aggressive enables the aggressive cross-function offloading
	// policy: a parameter/global that is touched only from inside a
	// kernel in the callee keeps its OFFLOAD marking at the call site in
	// the caller, and is marked Disabled on the callee so its own
	// per-variable engine skips it (spec §4.2).
	Aggressive bool
}

// Run iterates the fixpoint over funcs (keyed by FuncID) until no round
// produces an update or MaxIterations is reached. It mutates the callers'
// access logs in place.
func Run(funcs map[event.FuncID]*accesslog.FunctionSummary, opts Options) error {
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 32
	}

	if opts.Aggressive {
		precomputeAggressiveDisabled(funcs)
	}

	for iter := 0; iter < maxIter; iter++ {
		updates := 0
		for _, caller := range funcs {
			for _, call := range caller.Calls {
				callee, ok := funcs[call.Callee]
				if !ok {
					continue
				}
				updates += propagateOneCall(caller, callee, call, opts.Aggressive)
			}
		}
		if updates == 0 {
			return nil
		}
	}
	return fmt.Errorf("propagate: %w", ErrIterationCapReached)
}

// precomputeAggressiveDisabled computes every function's ParamAccessModes/
// GlobalAccessModes once, before any round applies updates, so the
// aggressive policy's disabling decision is never made against a
// partially-updated summary mid-pass — mirroring
// AnalysisUtils.cpp's performAggressiveCrossFunctionOffloading, which
// precomputes all modes up front for exactly this reason.
func precomputeAggressiveDisabled(funcs map[event.FuncID]*accesslog.FunctionSummary) {
	type decision struct {
		fn  *accesslog.FunctionSummary
		v   event.VarID
		dis bool
	}
	var decisions []decision
	for _, fn := range funcs {
		for _, p := range fn.Params {
			_, offloadOnly := fn.AccessModeOf(p)
			decisions = append(decisions, decision{fn, p, offloadOnly})
		}
		for g := range fn.Globals {
			_, offloadOnly := fn.AccessModeOf(g)
			decisions = append(decisions, decision{fn, g, offloadOnly})
		}
	}
	for _, d := range decisions {
		if d.dis {
			d.fn.Disabled[d.v] = true
		}
	}
}

// propagateOneCall applies one call site's effect on the caller's log
// and returns the number of entries it actually changed.
func propagateOneCall(caller, callee *accesslog.FunctionSummary, call accesslog.CallSite, aggressive bool) int {
	updates := 0

	for i, param := range callee.Params {
		if i >= len(call.Args) {
			break
		}
		arg := call.Args[i]
		if arg.Var == event.NoArgVar {
			continue
		}
		mode, offloadOnly := callee.AccessModeOf(param)
		offload := aggressive && offloadOnly
		if upsert(caller, arg.Var, call.Pos, call.Stmt, mode, offload) {
			updates++
		}
	}

	for g := range callee.Globals {
		mode, offloadOnly := callee.AccessModeOf(g)
		offload := aggressive && offloadOnly
		if upsert(caller, g, call.Pos, call.Stmt, mode, offload) {
			updates++
		}
	}

	return updates
}

// upsert joins mode into the caller-side entry for v at pos, creating it
// if absent, and reports whether anything changed. Offload is only ever
// set, never cleared, preserving whatever the Kernel Classifier already
// determined for this position.
func upsert(fn *accesslog.FunctionSummary, v event.VarID, pos event.Pos, stmt event.StmtID, mode accesslog.Mode, offload bool) bool {
	for i := range fn.Log {
		e := &fn.Log[i]
		if e.Var != v || !e.Pos.Equal(pos) || e.Barrier != accesslog.BarrierNone {
			continue
		}
		before := e.Mode
		joined := accesslog.Join(e.Mode, mode)
		changed := joined != before
		e.Mode = joined
		if offload && !e.Offload {
			e.Offload = true
			changed = true
		}
		return changed
	}
	fn.Log = append(fn.Log, accesslog.AccessEntry{
		Var: v, Stmt: stmt, Pos: pos, Mode: mode, Offload: offload,
	})
	return true
}
