package accesslog

import (
	"sort"

	"github.com/kolkov/ompdart/internal/event"
)

// Builder consumes an ordered event.Event stream for one function and
// produces a FunctionSummary (spec §4.1). It is the Go analogue of
// DataTracker's record* methods, generalized away from a single C++
// class into a value the walker drives directly.
type Builder struct {
	sum *FunctionSummary

	openKernels []*Kernel

	// pending holds array-subscript information observed before the
	// enclosing operator recorded the base's access (spec §4.1
	// recordArrayAccess).
	pending map[pendingKey]pendingSub
}

type pendingKey struct {
	v event.VarID
	p event.Pos
}

type pendingSub struct {
	indexVar    event.VarID
	hasIndexVar bool
}

// NewBuilder starts a fresh builder for the given function.
func NewBuilder(fn event.FuncID, name string) *Builder {
	return &Builder{
		sum:     newFunctionSummary(fn, name),
		pending: map[pendingKey]pendingSub{},
	}
}

// Finish closes out any open kernels, sorts the log by position (stable,
// spec §3 invariant 1) and returns the completed summary.
func (b *Builder) Finish() *FunctionSummary {
	b.closeKernelsUpTo(event.Pos{Offset: int(^uint(0) >> 1)})
	sort.SliceStable(b.sum.Log, func(i, j int) bool {
		return b.sum.Log[i].Pos.Less(b.sum.Log[j].Pos)
	})
	b.resolveKernelWindows()
	return b.sum
}

// resolveKernelWindows sets LogBegin/LogEnd for every kernel now that the
// log is fully sorted. The window is inclusive of the kernel's own
// KernelEnd barrier entry (recorded at exactly EndPos by
// RecordTargetRegion), so [LogBegin,LogEnd) always contains both the
// KernelBegin and KernelEnd entries alongside everything between them.
func (b *Builder) resolveKernelWindows() {
	for _, k := range b.sum.Kernels {
		k.LogBegin, k.LogEnd = -1, -1
		for i, e := range b.sum.Log {
			inRange := !e.Pos.Less(k.BeginPos) && e.Pos.Less(k.EndPos)
			isOwnEnd := e.Pos.Equal(k.EndPos) && e.Barrier == KernelEnd
			if inRange || isOwnEnd {
				if k.LogBegin == -1 {
					k.LogBegin = i
				}
				k.LogEnd = i + 1
			}
		}
		if k.LogBegin == -1 {
			k.LogBegin, k.LogEnd = 0, 0
		}
	}
}

// currentKernel pops any kernel whose range has closed relative to pos
// and returns the innermost still-open one, or nil.
func (b *Builder) currentKernel(pos event.Pos) *Kernel {
	b.closeKernelsUpTo(pos)
	if len(b.openKernels) == 0 {
		return nil
	}
	return b.openKernels[len(b.openKernels)-1]
}

func (b *Builder) closeKernelsUpTo(pos event.Pos) {
	for len(b.openKernels) > 0 {
		top := b.openKernels[len(b.openKernels)-1]
		if top.EndPos.Less(pos) || top.EndPos.Equal(pos) {
			b.openKernels = b.openKernels[:len(b.openKernels)-1]
			continue
		}
		break
	}
}

// synthetic-declaration filter, per spec §9 Design Note: driven by the
// walker's Synthetic flag rather than a "name starts with '.'" string
// check.
func isSyntheticFiltered(e event.Event) bool { return e.Synthetic }

// RecordAccess upserts an entry for var at pos (spec §4.1 recordAccess).
// overwrite controls conflict resolution at an existing (var, pos) key.
func (b *Builder) RecordAccess(varID event.VarID, pos event.Pos, stmt event.StmtID, mode Mode, synthetic bool, overwrite bool) {
	if k := b.currentKernel(pos); k != nil {
		if k.PrivateDecls[varID] {
			return
		}
		if synthetic {
			return
		}
		if k.withinNestedDirective(pos) {
			return
		}
	}

	entry := AccessEntry{Var: varID, Stmt: stmt, Pos: pos, Mode: mode}
	if sub, ok := b.pending[pendingKey{varID, pos}]; ok {
		entry.HasSubscript = true
		entry.SubIndexVar = sub.indexVar
		entry.HasIndexVar = sub.hasIndexVar
		delete(b.pending, pendingKey{varID, pos})
	}

	for i := range b.sum.Log {
		if b.sum.Log[i].SameKey(entry) {
			if overwrite && b.sum.Log[i].Mode != mode {
				b.sum.Log[i].Mode = mode
			}
			if entry.HasSubscript && !b.sum.Log[i].HasSubscript {
				b.sum.Log[i].HasSubscript = true
				b.sum.Log[i].SubIndexVar = entry.SubIndexVar
				b.sum.Log[i].HasIndexVar = entry.HasIndexVar
			}
			return
		}
	}
	b.sum.Log = append(b.sum.Log, entry)
}

// RecordArrayAccess attaches a subscript to an existing entry for base at
// pos, or stashes it as pending for the next matching RecordAccess (spec
// §4.1 recordArrayAccess).
func (b *Builder) RecordArrayAccess(base event.VarID, pos event.Pos, indexVar event.VarID, hasIndexVar bool) {
	for i := range b.sum.Log {
		if b.sum.Log[i].Var == base && b.sum.Log[i].Pos.Equal(pos) {
			b.sum.Log[i].HasSubscript = true
			b.sum.Log[i].SubIndexVar = indexVar
			b.sum.Log[i].HasIndexVar = hasIndexVar
			return
		}
	}
	b.pending[pendingKey{base, pos}] = pendingSub{indexVar: indexVar, hasIndexVar: hasIndexVar}
}

// RecordLoop inserts a LoopBegin/LoopEnd barrier pair, attaching bounds
// to LoopBegin when the walker could extract them (spec §4.1 recordLoop).
func (b *Builder) RecordLoop(begin, end event.Pos, bounds *event.LoopBounds) {
	b.sum.Loops = append(b.sum.Loops, event.Pos2{Begin: begin, End: end})

	var lb *LoopBounds
	if bounds != nil {
		lb = &LoopBounds{
			IndexVar:  bounds.IndexVar,
			LowerExpr: bounds.LowerExpr,
			UpperExpr: bounds.UpperExpr,
			Ascending: bounds.Ascending,
		}
	}
	b.sum.Log = append(b.sum.Log,
		AccessEntry{Var: NoVar, Pos: begin, Barrier: LoopBegin, Loop: lb},
		AccessEntry{Var: NoVar, Pos: end, Barrier: LoopEnd},
	)
}

// RecordCond inserts a CondBegin/CondEnd pair and the arm barriers in
// between (spec §4.1 recordCond). arms gives each arm's position and
// kind in source order; re-entry for the same begin position is a no-op.
func (b *Builder) RecordCond(begin, end event.Pos, arms []CondArm) {
	for _, e := range b.sum.Log {
		if e.Barrier == CondBegin && e.Pos.Equal(begin) {
			return
		}
	}
	b.sum.Conds = append(b.sum.Conds, event.Pos2{Begin: begin, End: end})
	b.sum.Log = append(b.sum.Log, AccessEntry{Var: NoVar, Pos: begin, Barrier: CondBegin})
	for _, a := range arms {
		barrier := CondCase
		if a.Fallback {
			barrier = CondFallback
		}
		b.sum.Log = append(b.sum.Log, AccessEntry{Var: NoVar, Pos: a.Pos, Barrier: barrier})
	}
	b.sum.Log = append(b.sum.Log, AccessEntry{Var: NoVar, Pos: end, Barrier: CondEnd})
}

// CondArm is one arm of a conditional, per spec §4.1 recordCond.
type CondArm struct {
	Pos      event.Pos
	Fallback bool // else/default vs else-if
}

// RecordTargetRegion inserts KernelBegin/KernelEnd barriers around a
// kernel's captured-statement span and registers the kernel (spec §4.1
// recordTargetRegion).
func (b *Builder) RecordTargetRegion(begin, end event.Pos, directive *event.DirectiveInfo) *Kernel {
	k := &Kernel{
		Directive:    directive,
		BeginPos:     begin,
		EndPos:       end,
		PrivateDecls: map[event.VarID]bool{},
	}
	if directive != nil {
		for _, v := range directive.Private {
			k.PrivateDecls[v] = true
		}
	}
	b.sum.Kernels = append(b.sum.Kernels, k)
	b.sum.Log = append(b.sum.Log,
		AccessEntry{Var: NoVar, Pos: begin, Barrier: KernelBegin},
		AccessEntry{Var: NoVar, Pos: end, Barrier: KernelEnd},
	)
	b.openKernels = append(b.openKernels, k)
	return k
}

// RecordNestedDirective registers a non-atomic, statement-bearing
// directive nested inside the currently open kernel, extending its end
// and excluding its range from further access recording (spec §3, §4.1).
func (b *Builder) RecordNestedDirective(begin, end event.Pos) {
	if len(b.openKernels) == 0 {
		return
	}
	b.openKernels[len(b.openKernels)-1].recordNestedDirective(begin, end)
}

// RecordCallExpr appends a call site and records per-argument accesses
// per spec §4.1 recordCallExpr: READ for by-value/pointer-to-const,
// UNKNOWN for pointer/reference to non-const, NOP for allocator/
// deallocator calls.
func (b *Builder) RecordCallExpr(pos event.Pos, stmt event.StmtID, callee event.FuncID, args []event.CallArg, isAlloc, isDealloc bool) {
	b.sum.Calls = append(b.sum.Calls, CallSite{Pos: pos, Stmt: stmt, Callee: callee, Args: args})
	for _, a := range args {
		mode := paramModeToMode(a.Mode)
		if isAlloc || isDealloc {
			mode = NOP
		}
		b.RecordAccess(a.Var, pos, stmt, mode, false, false)
	}
}

func paramModeToMode(m event.ParamMode) Mode {
	switch m {
	case event.ParamRead:
		return READ
	case event.ParamNop:
		return NOP
	default:
		return UNKNOWN
	}
}

// RecordVarMeta registers type facts for v while the walk is still in
// progress (the Finish()-returned FunctionSummary isn't available yet).
func (b *Builder) RecordVarMeta(v event.VarID, m VarMeta) { b.sum.RecordVarMeta(v, m) }

// RecordLocal marks a declaration as a local of this function.
func (b *Builder) RecordLocal(v event.VarID) { b.sum.Locals[v] = true }

// RecordGlobal marks a declaration as a non-local referenced by this
// function.
func (b *Builder) RecordGlobal(v event.VarID) { b.sum.Globals[v] = true }
