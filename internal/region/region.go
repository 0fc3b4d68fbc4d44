// Package region implements the TargetDataRegion builder: the
// accumulator for the six placement lists the Per-Variable Data-Flow
// Engine produces, and the frozen value the Placement Resolver consumes.
//
// The original analyzer mutated TargetDataRegion's fields directly from
// DataTracker via a C++ `friend class` backdoor. Spec §9's Design Note
// calls for a builder that owns the mutable accumulators and emits a
// frozen TargetDataRegion once analysis finishes; Builder below is that
// redesign — accesslog/dataflow never sees a *TargetDataRegion, only a
// *Builder, and Build copies every list so later Builder calls never
// alias a built region.
package region

import (
	"github.com/kolkov/ompdart/internal/accesslog"
	"github.com/kolkov/ompdart/internal/event"
)

// ClauseInfo is a private/firstprivate clause addition: a variable plus
// the kernel it is scoped to. Distinct from accesslog.AccessEntry
// because clauses carry no access mode or barrier (spec §3
// TargetDataRegion: "plus Private/FirstPrivate as ClauseInfo, a distinct
// type from AccessInfo").
type ClauseInfo struct {
	Var    event.VarID
	Kernel *accesslog.Kernel
}

// TargetDataRegion is the frozen, read-only result of one function's
// region analysis (spec §3).
type TargetDataRegion struct {
	Func  event.FuncID
	Begin event.Pos
	End   event.Pos

	MapTo      []accesslog.AccessEntry
	MapFrom    []accesslog.AccessEntry
	MapToFrom  []accesslog.AccessEntry
	MapAlloc   []accesslog.AccessEntry
	UpdateTo   []accesslog.AccessEntry
	UpdateFrom []accesslog.AccessEntry

	Private      []ClauseInfo
	FirstPrivate []ClauseInfo

	Kernels []*accesslog.Kernel
}

// Builder accumulates a TargetDataRegion's placement lists during
// per-variable analysis. All Add* methods are append-only, matching the
// spec §3 Lifecycle note ("their six placement lists are append-only
// during analysis and read-only afterwards").
type Builder struct {
	fn    event.FuncID
	begin event.Pos
	end   event.Pos

	mapTo, mapFrom, mapToFrom, mapAlloc []accesslog.AccessEntry
	updateTo, updateFrom                []accesslog.AccessEntry
	private, firstPrivate               []ClauseInfo
	kernels                             []*accesslog.Kernel
}

// NewBuilder starts a region builder spanning [begin, end) for fn.
func NewBuilder(fn event.FuncID, begin, end event.Pos) *Builder {
	return &Builder{fn: fn, begin: begin, end: end}
}

// Widen extends the region's span to include [begin, end) and never
// shrinks it (spec §4.4 TargetDataRegion extent).
func (b *Builder) Widen(begin, end event.Pos) {
	if begin.Less(b.begin) {
		b.begin = begin
	}
	if b.end.Less(end) {
		b.end = end
	}
}

func (b *Builder) AddMapTo(e accesslog.AccessEntry)      { b.mapTo = append(b.mapTo, e) }
func (b *Builder) AddMapFrom(e accesslog.AccessEntry)    { b.mapFrom = append(b.mapFrom, e) }
func (b *Builder) AddMapToFrom(e accesslog.AccessEntry)  { b.mapToFrom = append(b.mapToFrom, e) }
func (b *Builder) AddMapAlloc(e accesslog.AccessEntry)   { b.mapAlloc = append(b.mapAlloc, e) }
func (b *Builder) AddUpdateTo(e accesslog.AccessEntry)   { b.updateTo = append(b.updateTo, e) }
func (b *Builder) AddUpdateFrom(e accesslog.AccessEntry) { b.updateFrom = append(b.updateFrom, e) }
func (b *Builder) AddPrivate(c ClauseInfo)               { b.private = append(b.private, c) }
func (b *Builder) AddFirstPrivate(c ClauseInfo)          { b.firstPrivate = append(b.firstPrivate, c) }
func (b *Builder) AddKernel(k *accesslog.Kernel)         { b.kernels = append(b.kernels, k) }

// RemoveUpdateToAt removes the most recently added UpdateTo entry at pos
// for var, if present — used by the firstprivate rollback rule (spec
// §4.4 KernelEnd transition: "roll back any UpdateTo added at
// prevHostAccess inside this kernel").
func (b *Builder) RemoveUpdateToAt(v event.VarID, pos event.Pos) {
	for i := len(b.updateTo) - 1; i >= 0; i-- {
		if b.updateTo[i].Var == v && b.updateTo[i].Pos.Equal(pos) {
			b.updateTo = append(b.updateTo[:i], b.updateTo[i+1:]...)
			return
		}
	}
}

// Build freezes the accumulated lists into a TargetDataRegion. Slices are
// copied so the builder's subsequent mutation (there should be none
// after Build, but nothing else enforces that) can never alias the
// frozen result.
func (b *Builder) Build() *TargetDataRegion {
	return &TargetDataRegion{
		Func:         b.fn,
		Begin:        b.begin,
		End:          b.end,
		MapTo:        append([]accesslog.AccessEntry(nil), b.mapTo...),
		MapFrom:      append([]accesslog.AccessEntry(nil), b.mapFrom...),
		MapToFrom:    append([]accesslog.AccessEntry(nil), b.mapToFrom...),
		MapAlloc:     append([]accesslog.AccessEntry(nil), b.mapAlloc...),
		UpdateTo:     append([]accesslog.AccessEntry(nil), b.updateTo...),
		UpdateFrom:   append([]accesslog.AccessEntry(nil), b.updateFrom...),
		Private:      append([]ClauseInfo(nil), b.private...),
		FirstPrivate: append([]ClauseInfo(nil), b.firstPrivate...),
		Kernels:      append([]*accesslog.Kernel(nil), b.kernels...),
	}
}
