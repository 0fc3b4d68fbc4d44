// naive.go implements the naive per-kernel pre-pass (SPEC_FULL.md §E),
// grounded on DataTracker::naiveAnalyze. It gives every kernel an
// immediate, conservative map classification for each of its OFFLOAD
// variables, independent of any host-side context. pipeline.Run computes
// it and discards the result; the automaton in engine.go does not
// consult it.
package dataflow

import (
	"github.com/kolkov/ompdart/internal/accesslog"
	"github.com/kolkov/ompdart/internal/event"
)

// NaiveKind is the naive per-kernel classification for one variable.
type NaiveKind int

const (
	NaiveNone NaiveKind = iota
	NaiveTo
	NaiveFrom
	NaiveToFrom
)

// NaiveClassify scans every kernel in fn independently and returns, for
// each kernel, a map from variable to its naive classification: a
// variable read-only within the kernel's OFFLOAD range is NaiveTo,
// write-only is NaiveFrom, and read-write is NaiveToFrom.
func NaiveClassify(fn *accesslog.FunctionSummary) map[*accesslog.Kernel]map[event.VarID]NaiveKind {
	out := map[*accesslog.Kernel]map[event.VarID]NaiveKind{}
	for _, k := range fn.Kernels {
		perVar := map[event.VarID]accesslog.Mode{}
		for i := k.LogBegin; i < k.LogEnd; i++ {
			e := fn.Log[i]
			if e.Barrier != accesslog.BarrierNone || !e.Offload || e.Var == accesslog.NoVar {
				continue
			}
			perVar[e.Var] = accesslog.Join(perVar[e.Var], e.Mode)
		}
		kinds := map[event.VarID]NaiveKind{}
		for v, m := range perVar {
			switch {
			case m.IsReadSet() && m.IsWriteSet():
				kinds[v] = NaiveToFrom
			case m.IsReadSet():
				kinds[v] = NaiveTo
			case m.IsWriteSet():
				kinds[v] = NaiveFrom
			default:
				kinds[v] = NaiveNone
			}
		}
		out[k] = kinds
	}
	return out
}
