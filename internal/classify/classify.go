// Package classify implements the Kernel Classifier (spec §4.3): it
// marks every log entry textually inside a kernel with the OFFLOAD bit
// and reports whether the function has any offloaded access at all.
//
// Grounded on DataTracker::classifyOffloadedOps.
package classify

import "github.com/kolkov/ompdart/internal/accesslog"

// Run sets Offload on every non-barrier entry with nonzero mode that
// falls inside one of fn's kernels, and reports whether any such entry
// exists. A function with no offloaded entries has no TargetDataRegion
// (spec §4.3).
func Run(fn *accesslog.FunctionSummary) (hasOffload bool) {
	for _, k := range fn.Kernels {
		for i := k.LogBegin; i < k.LogEnd; i++ {
			e := &fn.Log[i]
			if e.Barrier != accesslog.BarrierNone {
				continue
			}
			if e.Mode == accesslog.NOP {
				continue
			}
			e.Offload = true
			hasOffload = true
		}
	}
	return hasOffload
}
