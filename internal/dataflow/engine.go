// Package dataflow implements the Per-Variable Data-Flow Engine (spec
// §4.4): the core automaton that, for each variable touched inside an
// offloaded kernel, traverses its classified access log and decides the
// region-scope map clause, mid-region update placements, and firstprivate
// demotion.
//
// Grounded on DataTracker.cpp's analyzeValueDecl, findOutermostIndexingLoop
// and findOutermostCapturingStmt.
package dataflow

import (
	"github.com/kolkov/ompdart/internal/accesslog"
	"github.com/kolkov/ompdart/internal/diag"
	"github.com/kolkov/ompdart/internal/event"
	"github.com/kolkov/ompdart/internal/region"
)

type loopFrame struct {
	bounds    *accesslog.LoopBounds
	offloaded bool
	beginPos  event.Pos
	endPos    event.Pos
}

type loopSnapshot struct {
	validOnHost, validOnDevice bool
	mapTo                      bool
	firstHostAccess            *accesslog.AccessEntry
}

type condFrame struct {
	endPos  event.Pos
	endStmt event.StmtID
}

// variable holds the automaton's running state for one variable.
type variable struct {
	mapTo, mapFrom, mapAlloc   bool
	initialized                bool
	validOnHost, validOnDevice bool

	firstPrivate     bool
	usedInLastKernel bool
	prevMapToAtEntry bool

	loopStack     []loopFrame
	loopSnapshots []loopSnapshot
	condStack     []condFrame

	prevHostAccess    *accesslog.AccessEntry
	prevHostLoopStack []loopFrame
	prevTargetAccess  *accesslog.AccessEntry

	kernelAtIdx map[int]*accesslog.Kernel
}

// Run executes the automaton for one variable v across fn's classified
// log, appending its decisions into rb. regionBegin/regionEnd bound the
// TargetDataRegion computed for fn (spec §4.4).
func Run(fn *accesslog.FunctionSummary, v event.VarID, meta accesslog.VarMeta, rb *region.Builder, regionBegin, regionEnd event.Pos, diags *diag.Sink) {
	st := &variable{
		initialized: meta.IsGlobal || meta.IsParam,
		validOnHost: meta.IsGlobal || meta.IsParam,
		kernelAtIdx: kernelIndexMap(fn),
	}

	loopRange := loopRangeByBegin(fn)

	for idx := range fn.Log {
		e := &fn.Log[idx]
		if e.Barrier == accesslog.BarrierNone && e.Var != v {
			continue
		}

		switch e.Barrier {
		case accesslog.LoopBegin:
			st.enterLoop(e, loopRange)
		case accesslog.LoopEnd:
			st.exitLoop(v, rb)
		case accesslog.CondBegin:
			st.enterCond(fn, e)
		case accesslog.CondEnd:
			st.exitCond()
		case accesslog.KernelBegin:
			st.enterKernel(meta)
		case accesslog.KernelEnd:
			st.exitKernel(v, idx, rb)
			st.prevTargetAccess = e
		default:
			if e.Offload {
				st.offloadAccess(v, e, regionBegin, rb, diags)
			} else {
				st.hostAccess(v, e, meta, regionBegin, regionEnd, rb, diags)
			}
		}
	}

	// Final step (spec §4.4): caller must observe final device-side
	// writes on a non-const pointer/reference parameter or global.
	if (meta.IsGlobal || (meta.IsParam && meta.PointerOrRef)) && !st.validOnHost {
		st.mapFrom = true
	}

	emitRegionScopeClause(v, st, meta, rb)
}

func kernelIndexMap(fn *accesslog.FunctionSummary) map[int]*accesslog.Kernel {
	m := map[int]*accesslog.Kernel{}
	for _, k := range fn.Kernels {
		for i := k.LogBegin; i < k.LogEnd; i++ {
			m[i] = k
		}
	}
	return m
}

// loopRangeByBegin maps a LoopBegin position to its LoopEnd position,
// using fn.Loops (populated by accesslog.Builder.RecordLoop in the same
// order loops were encountered).
func loopRangeByBegin(fn *accesslog.FunctionSummary) map[int]event.Pos {
	m := map[int]event.Pos{}
	for _, r := range fn.Loops {
		m[r.Begin.Offset] = r.End
	}
	return m
}

func (st *variable) enterLoop(e *accesslog.AccessEntry, loopRange map[int]event.Pos) {
	end := e.Pos
	if p, ok := loopRange[e.Pos.Offset]; ok {
		end = p
	}
	frame := loopFrame{bounds: e.Loop, offloaded: e.Offload, beginPos: e.Pos, endPos: end}
	if !e.Offload {
		st.loopSnapshots = append(st.loopSnapshots, loopSnapshot{
			validOnHost:   st.validOnHost,
			validOnDevice: st.validOnDevice,
			mapTo:         st.mapTo,
		})
	}
	st.loopStack = append(st.loopStack, frame)
}

func (st *variable) exitLoop(v event.VarID, rb *region.Builder) {
	if len(st.loopStack) == 0 {
		return
	}
	frame := st.loopStack[len(st.loopStack)-1]
	st.loopStack = st.loopStack[:len(st.loopStack)-1]
	if frame.offloaded {
		return
	}
	if len(st.loopSnapshots) == 0 {
		return
	}
	snap := st.loopSnapshots[len(st.loopSnapshots)-1]
	st.loopSnapshots = st.loopSnapshots[:len(st.loopSnapshots)-1]

	if snap.validOnHost && !st.validOnHost && snap.firstHostAccess != nil {
		rb.AddUpdateFrom(accesslog.AccessEntry{
			Var: v, Pos: snap.firstHostAccess.Pos, Stmt: snap.firstHostAccess.Stmt,
			Barrier: accesslog.LoopEnd, Mode: accesslog.READ,
		})
		st.validOnHost = true
	}
	if (snap.validOnDevice && !st.validOnDevice && snap.firstHostAccess != nil) ||
		(!snap.mapTo && st.mapTo) {
		if st.prevHostAccess != nil {
			rb.AddUpdateTo(accesslog.AccessEntry{
				Var: v, Pos: st.prevHostAccess.Pos, Stmt: st.prevHostAccess.Stmt,
				Barrier: accesslog.BarrierNone, Mode: accesslog.WRITE,
			})
		}
		st.mapTo = snap.mapTo
	}
}

func (st *variable) enterCond(fn *accesslog.FunctionSummary, e *accesslog.AccessEntry) {
	end := e.Pos
	for _, r := range fn.Conds {
		if r.Begin.Equal(e.Pos) {
			end = r.End
			break
		}
	}
	st.condStack = append(st.condStack, condFrame{endPos: end})
}

func (st *variable) exitCond() {
	if len(st.condStack) == 0 {
		return
	}
	st.condStack = st.condStack[:len(st.condStack)-1]
}

func (st *variable) enterKernel(meta accesslog.VarMeta) {
	if meta.Arithmetic && !st.validOnDevice {
		st.firstPrivate = true
		st.prevMapToAtEntry = st.mapTo
		st.usedInLastKernel = false
	}
}

func (st *variable) exitKernel(v event.VarID, idx int, rb *region.Builder) {
	if st.firstPrivate {
		if st.prevHostAccess != nil {
			rb.RemoveUpdateToAt(v, st.prevHostAccess.Pos)
		}
		st.mapTo = st.prevMapToAtEntry
		if st.usedInLastKernel {
			rb.AddFirstPrivate(region.ClauseInfo{Var: v, Kernel: st.kernelAtIdx[idx]})
		}
		st.firstPrivate = false
	}
}

// offloadAccess implements spec §4.4's OFFLOAD data-transition bullets.
func (st *variable) offloadAccess(v event.VarID, e *accesslog.AccessEntry, regionBegin event.Pos, rb *region.Builder, diags *diag.Sink) {
	if e.Mode != accesslog.READ {
		st.firstPrivate = false
	}

	if !st.initialized {
		if e.Mode.IsReadSet() && !e.Mode.IsWriteSet() {
			diags.Warnf(diag.UninitializedUse, e.Pos, "use of variable %d before initialization", v)
		} else {
			st.initialized = true
		}
		st.usedInLastKernel = true
		return
	}

	insideCond := len(st.condStack) > 0
	needCopy := (insideCond && e.Mode.IsWriteSet()) || (e.Mode.IsReadSet() && !st.validOnDevice)
	if needCopy {
		switch {
		case st.prevHostAccess == nil || st.prevHostAccess.Pos.Less(regionBegin):
			st.mapTo = true
		case st.prevHostAccess.HasSubscript:
			if anchor, ok := hoistOutward(st.prevHostLoopStack, st.prevHostAccess, st.prevTargetAccess); ok {
				rb.AddUpdateTo(accesslog.AccessEntry{
					Var: v, Pos: anchor, Stmt: st.prevHostAccess.Stmt,
					Barrier: accesslog.LoopEnd, Mode: accesslog.WRITE,
				})
			} else {
				rb.AddUpdateTo(accesslog.AccessEntry{
					Var: v, Pos: st.prevHostAccess.Pos, Stmt: st.prevHostAccess.Stmt, Mode: accesslog.WRITE,
				})
			}
		default:
			rb.AddUpdateTo(accesslog.AccessEntry{
				Var: v, Pos: st.prevHostAccess.Pos, Stmt: st.prevHostAccess.Stmt, Mode: accesslog.WRITE,
			})
		}
	}

	if e.Mode.IsWriteSet() {
		st.validOnDevice = true
		st.validOnHost = false
		st.mapAlloc = true
	}
	st.usedInLastKernel = true
}

// hostAccess implements spec §4.4's host-access data-transition bullets.
func (st *variable) hostAccess(v event.VarID, e *accesslog.AccessEntry, meta accesslog.VarMeta, regionBegin, regionEnd event.Pos, rb *region.Builder, diags *diag.Sink) {
	if meta.HasDeclPos && e.Pos.Equal(meta.DeclPos) && !meta.DeclPos.Less(regionBegin) {
		diags.WarnWithNote(diag.DeclarationCapturedByRegion, e.Pos,
			"declaration lies inside the target data region",
			diag.Note{Pos: regionBegin, Message: "region begins here"})
	}

	if !st.initialized {
		if e.Mode.IsReadSet() && !e.Mode.IsWriteSet() {
			diags.Warnf(diag.UninitializedUse, e.Pos, "use of variable %d before initialization", v)
		} else {
			st.initialized = true
		}
	} else if !st.validOnHost && e.Mode.IsReadSet() {
		switch {
		case regionEnd.Less(e.Pos):
			st.mapFrom = true
		default:
			if anchor, ok := hoistOutward(st.loopStack, e, st.prevTargetAccess); ok {
				rb.AddUpdateFrom(accesslog.AccessEntry{
					Var: v, Pos: anchor, Stmt: e.Stmt, Barrier: accesslog.LoopEnd, Mode: accesslog.READ,
				})
			} else if len(st.condStack) > 0 {
				top := st.condStack[len(st.condStack)-1]
				rb.AddUpdateFrom(accesslog.AccessEntry{Var: v, Pos: top.endPos, Stmt: top.endStmt, Mode: accesslog.READ})
			} else {
				rb.AddUpdateFrom(accesslog.AccessEntry{Var: v, Pos: e.Pos, Stmt: e.Stmt, Mode: accesslog.READ})
			}
		}
	}

	if e.Mode.IsWriteSet() {
		st.validOnDevice = false
		st.validOnHost = true
	}

	if len(st.loopSnapshots) > 0 {
		top := &st.loopSnapshots[len(st.loopSnapshots)-1]
		if top.firstHostAccess == nil {
			top.firstHostAccess = e
		}
	}

	st.prevHostAccess = e
	st.prevHostLoopStack = append([]loopFrame(nil), st.loopStack...)
}

// hoistOutward walks stack outward (outermost frame first) looking for
// the outermost loop whose bounded index variable matches access's
// subscript index. Frames that began before stopBefore are skipped —
// spec §4.4's "stopping before crossing prevTargetAccess", read as: never
// hoist across a kernel boundary to a loop that merely encloses the
// kernel itself. Per SPEC_FULL.md §G.2, both the OFFLOAD-branch and the
// host-access-branch hoist anchor their Update at the matched loop's end.
func hoistOutward(stack []loopFrame, access *accesslog.AccessEntry, stopBefore *accesslog.AccessEntry) (event.Pos, bool) {
	if !access.HasSubscript || !access.HasIndexVar {
		return event.Pos{}, false
	}
	for _, frame := range stack {
		if stopBefore != nil && frame.beginPos.Less(stopBefore.Pos) {
			continue
		}
		if frame.bounds != nil && frame.bounds.IndexVar == access.SubIndexVar {
			return frame.endPos, true
		}
	}
	return event.Pos{}, false
}
