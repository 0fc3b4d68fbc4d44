// Package accesslog implements the data model and Access-Log Builder:
// the per-function, position-ordered log of variable accesses and scope
// barriers that every later stage of the pipeline consumes.
//
// Mode is a sum type rather than the bit flags the original analyzer
// used (OFFLOAD is carried as a separate boolean on AccessEntry), per
// the redesign note on raw bit-flag AccessMode values.
package accesslog

import (
	"fmt"

	"github.com/kolkov/ompdart/internal/event"
)

// Mode is the access mode for one AccessEntry. READ and WRITE are
// incomparable and join to READWRITE; NOP is the bottom and UNKNOWN the
// top of the lattice NOP ⊑ {READ,WRITE} ⊑ READWRITE ⊑ UNKNOWN.
type Mode int

const (
	NOP Mode = iota
	READ
	WRITE
	READWRITE
	UNKNOWN
)

func (m Mode) String() string {
	switch m {
	case NOP:
		return "nop"
	case READ:
		return "read"
	case WRITE:
		return "write"
	case READWRITE:
		return "readwrite"
	case UNKNOWN:
		return "unknown"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Join computes the least upper bound of a and b in the access-mode
// lattice. It is the single place that encodes the join table; every
// other package calls this instead of re-deriving it.
func Join(a, b Mode) Mode {
	if a == b {
		return a
	}
	if a == UNKNOWN || b == UNKNOWN {
		return UNKNOWN
	}
	if a == NOP {
		return b
	}
	if b == NOP {
		return a
	}
	if a == READWRITE || b == READWRITE {
		return READWRITE
	}
	// remaining case: {READ,WRITE} joined with the other
	return READWRITE
}

// IsReadSet reports whether m includes a read effect.
func (m Mode) IsReadSet() bool { return m == READ || m == READWRITE || m == UNKNOWN }

// IsWriteSet reports whether m includes a write effect.
func (m Mode) IsWriteSet() bool { return m == WRITE || m == READWRITE || m == UNKNOWN }

// Barrier tags a log entry that has no associated variable: a scope
// boundary the Per-Variable Data-Flow Engine transitions on.
type Barrier int

const (
	BarrierNone Barrier = iota
	KernelBegin
	KernelEnd
	LoopBegin
	LoopEnd
	CondBegin
	CondCase
	CondFallback
	CondEnd
)

func (b Barrier) String() string {
	switch b {
	case BarrierNone:
		return "-"
	case KernelBegin:
		return "kernel-begin"
	case KernelEnd:
		return "kernel-end"
	case LoopBegin:
		return "loop-begin"
	case LoopEnd:
		return "loop-end"
	case CondBegin:
		return "cond-begin"
	case CondCase:
		return "cond-case"
	case CondFallback:
		return "cond-fallback"
	case CondEnd:
		return "cond-end"
	default:
		return fmt.Sprintf("Barrier(%d)", int(b))
	}
}

// NoVar is the sentinel AccessEntry.Var value for barrier entries that
// carry no associated variable.
const NoVar event.VarID = -1

// LoopBounds is this package's copy of event.LoopBounds, carried on a
// LoopBegin entry.
type LoopBounds struct {
	IndexVar  event.VarID
	LowerExpr string
	UpperExpr string
	Ascending bool
}

// AccessEntry is the fundamental log unit (spec §3). Equality for
// deduplication purposes is (Var, Pos).
type AccessEntry struct {
	Var     event.VarID
	Stmt    event.StmtID
	Pos     event.Pos
	Mode    Mode
	Offload bool
	Barrier Barrier

	HasSubscript bool
	SubIndexVar  event.VarID
	HasIndexVar  bool

	Loop *LoopBounds
}

// SameKey reports whether two entries share the (Var, Pos) identity key
// used for upsert deduplication (spec §3 AccessEntry equality).
func (a AccessEntry) SameKey(o AccessEntry) bool {
	return a.Var == o.Var && a.Pos.Equal(o.Pos)
}

// Kernel represents one offloaded directive (spec §3).
type Kernel struct {
	Directive *event.DirectiveInfo
	BeginPos  event.Pos
	EndPos    event.Pos

	PrivateDecls map[event.VarID]bool

	// LogBegin/LogEnd are indices into the owning FunctionSummary.Log
	// slice marking this kernel's access window, set once the builder
	// finishes the function.
	LogBegin, LogEnd int

	// nestedRanges records the source ranges of non-atomic, statement-
	// bearing directives nested textually inside this kernel, used both
	// to extend EndPos (spec §3: "end extended to cover every non-atomic
	// statement-bearing nested directive") and to filter out accesses
	// whose position falls inside an already-recorded nested directive.
	nestedRanges []event.Pos2
}

// recordNestedDirective extends the kernel's end position over a nested,
// non-atomic, statement-bearing directive and records its range for the
// access filter (spec §3 Kernel, §4.1 recordAccess filtering rule).
func (k *Kernel) recordNestedDirective(begin, end event.Pos) {
	if end.Offset > k.EndPos.Offset {
		k.EndPos = end
	}
	k.nestedRanges = append(k.nestedRanges, event.Pos2{Begin: begin, End: end})
}

func (k *Kernel) contains(p event.Pos) bool {
	return !p.Less(k.BeginPos) && p.Less(k.EndPos)
}

func (k *Kernel) withinNestedDirective(p event.Pos) bool {
	for _, r := range k.nestedRanges {
		if !p.Less(r.Begin) && p.Less(r.End) {
			return true
		}
	}
	return false
}

// FunctionSummary is the per-function accumulated state (spec §3).
type FunctionSummary struct {
	Func event.FuncID
	Name string

	Log     []AccessEntry
	Kernels []*Kernel
	Loops   []event.Pos2
	Conds   []event.Pos2
	Calls   []CallSite

	Locals  map[event.VarID]bool
	Globals map[event.VarID]bool
	// Disabled holds declaration IDs whose management is delegated to the
	// caller under aggressive cross-function propagation (spec §4.2).
	Disabled map[event.VarID]bool

	// Params lists the function's parameters in declaration order,
	// needed by the Interprocedural Propagator to map call-site argument
	// position to parameter identity.
	Params []event.VarID

	// Meta carries per-variable type facts supplied by the walker, keyed
	// by variable identity.
	Meta map[event.VarID]VarMeta
}

// RecordVarMeta registers type facts for v, used by the Per-Variable
// Data-Flow Engine.
func (fn *FunctionSummary) RecordVarMeta(v event.VarID, m VarMeta) {
	if fn.Meta == nil {
		fn.Meta = map[event.VarID]VarMeta{}
	}
	fn.Meta[v] = m
}

// SetParams records the function's parameter list in declaration order.
func (fn *FunctionSummary) SetParams(params []event.VarID) { fn.Params = params }

// VarMeta carries the walker-resolved type facts the Per-Variable
// Data-Flow Engine needs but cannot infer from the access log alone
// (spec §4.4): whether the declaration is of arithmetic type, whether it
// is a non-const pointer/reference parameter, and its own declaration
// position (for the declaration-captured-by-region warning).
type VarMeta struct {
	Arithmetic   bool
	PointerOrRef bool
	IsParam      bool
	IsGlobal     bool
	DeclPos      event.Pos
	HasDeclPos   bool
}

// AccessModeOf joins the mode of every non-barrier log entry for v and
// reports whether every such entry is OFFLOAD-marked (i.e. v is only
// ever touched from inside a kernel in this function), used by the
// Interprocedural Propagator's aggressive cross-function policy (spec
// §4.2).
func (fn *FunctionSummary) AccessModeOf(v event.VarID) (mode Mode, offloadOnly bool) {
	mode = NOP
	sawAny, sawHost := false, false
	for _, e := range fn.Log {
		if e.Var != v || e.Barrier != BarrierNone {
			continue
		}
		sawAny = true
		if !e.Offload {
			sawHost = true
		}
		mode = Join(mode, e.Mode)
	}
	return mode, sawAny && !sawHost
}

// CallSite records one call expression inside the function, used by the
// Interprocedural Propagator.
type CallSite struct {
	Pos    event.Pos
	Stmt   event.StmtID
	Callee event.FuncID
	Args   []event.CallArg
}

func newFunctionSummary(fn event.FuncID, name string) *FunctionSummary {
	return &FunctionSummary{
		Func:     fn,
		Name:     name,
		Locals:   map[event.VarID]bool{},
		Globals:  map[event.VarID]bool{},
		Disabled: map[event.VarID]bool{},
	}
}

// allocator/deallocator name sets, ported from CommonUtils.cpp's
// isMemAlloc/isMemDealloc (spec §4.1, SPEC_FULL.md §E).
var allocNames = map[string]bool{
	"malloc":  true,
	"realloc": true,
	"calloc":  true,
}

var deallocNames = map[string]bool{
	"free": true,
}

// IsAllocator reports whether name is a non-initializing allocator call.
func IsAllocator(name string) bool { return allocNames[name] }

// IsDeallocator reports whether name is a deallocator call.
func IsDeallocator(name string) bool { return deallocNames[name] }
