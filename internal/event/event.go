// Package event defines the AST event-feed contract the core analysis
// pipeline consumes. An upstream walker — the real frontend for whatever
// language is being analyzed — delivers these events in source order for
// one function body at a time. The core never looks at a real AST node;
// it only ever sees the Kind/fields below, so a frontend swap never
// touches internal/accesslog, internal/classify, internal/propagate, or
// internal/dataflow.
package event

// Kind identifies the category of an event delivered by the walker.
type Kind int

const (
	// FunctionEnter marks the start of a function body.
	FunctionEnter Kind = iota
	// StatementSeen carries provenance for the statement currently being
	// walked; it has no direct effect on the log but anchors subsequent
	// events to a source statement.
	StatementSeen
	// VarDecl reports a local variable declaration, with or without an
	// initializer.
	VarDecl
	// Call reports a call expression together with the resolved access
	// mode the walker computed for each argument (spec: READ for
	// by-value/pointer-to-const, UNKNOWN for pointer/reference to
	// non-const, NOP for allocator/deallocator calls).
	Call
	// BinaryOp reports a binary operator, used to resolve read vs write
	// access on its operands (assignment forms write the LHS).
	BinaryOp
	// UnaryOp reports a unary increment/decrement, read-modify-write on
	// its operand.
	UnaryOp
	// DeclRef reports a reference to a previously declared variable, with
	// a hinted AccessMode supplied by the walker's surrounding-expression
	// analysis.
	DeclRef
	// ArraySubscript reports an array index expression; may arrive before
	// the access mode of the base is known (spec §4.1 recordArrayAccess).
	ArraySubscript
	// LoopBegin marks the start of a for/while/do loop.
	LoopBegin
	// LoopEnd marks the end of a for/while/do loop.
	LoopEnd
	// CondBegin marks the start of an if/switch statement.
	CondBegin
	// CondEnd marks the end of an if/switch statement.
	CondEnd
	// OmpDirective reports an OpenMP target directive: its kind, the
	// variables it declares private, and the source range of its
	// captured (associated) statement.
	OmpDirective
	// FunctionExit marks the end of a function body.
	FunctionExit
)

// VarID identifies a variable (or other declaration) by identity, stable
// for the lifetime of one translation unit. The walker is responsible
// for handing out consistent IDs for the same declaration.
type VarID int64

// NoArgVar marks a CallArg whose argument expression is not a direct
// variable reference (a literal, a temporary, a nested call), per spec
// §4.2's "argument that is a direct variable reference" condition.
const NoArgVar VarID = -1

// ParamMode is the access mode the walker has already resolved for a
// call argument from the callee's parameter type, per spec §4.1.
type ParamMode int

const (
	// ParamRead is by-value or pointer/reference-to-const.
	ParamRead ParamMode = iota
	// ParamUnknown is pointer/reference to non-const: direction is not
	// resolvable without looking inside the callee.
	ParamUnknown
	// ParamNop is an allocator/deallocator call argument (malloc/realloc/
	// free and friends): the pointer's contents are untouched by the
	// call itself.
	ParamNop
)

// DirectiveKind distinguishes a target directive from a plain kernel
// region; OmpDart only cares about offload-bearing directives.
type DirectiveKind int

const (
	// DirTarget is a #pragma omp target / target parallel for / etc.
	DirTarget DirectiveKind = iota
	// DirOther is some other OpenMP construct with no offload semantics
	// (barrier, atomic, ...); the walker still reports it so the builder
	// can decide whether its associated statement participates in a
	// kernel's "nested directive" end-extension (spec §3 Kernel).
	DirOther
)

// Event is a single item in the per-function event stream. Only the
// fields relevant to Kind are populated; zero values are harmless for
// the rest.
type Event struct {
	Kind Kind
	Pos  Pos

	// Var identifies the subject variable for VarDecl/DeclRef/
	// ArraySubscript(base)/Call-argument events.
	Var     VarID
	VarName string // source spelling; the synthetic-declaration filter reads Synthetic, not this

	// IndexVar is the variable identity used as the subscript index for
	// an ArraySubscript event, when the index is a simple variable
	// reference (needed to match against an enclosing loop's LoopBounds
	// .IndexVar for hoist placement, spec §4.4). Zero-value VarID(0) with
	// HasIndexVar false means the index was not a simple variable.
	IndexVar    VarID
	HasIndexVar bool

	// HasInit is set for VarDecl when the declaration carries an
	// initializer.
	HasInit bool

	// Synthetic marks a declaration the walker itself introduced (spec
	// §9 Design Note: replace the "name starts with '.'" string check
	// with a source-flagged boolean).
	Synthetic bool

	// Mode is the walker-hinted access mode for DeclRef/Call-argument
	// events.
	Mode ParamMode

	// CallArgs lists the (Var, Mode) pairs for a Call event's arguments.
	CallArgs []CallArg
	// Callee identifies the resolved function being called, or -1 if
	// unresolved (indirect call, external declaration with no body).
	Callee FuncID
	// IsAlloc/IsDealloc flags the call as a non-initializing allocator or
	// deallocator (malloc/realloc/calloc, free), per spec §4.1 and
	// SPEC_FULL.md §E.
	IsAlloc   bool
	IsDealloc bool

	// Assign marks a BinaryOp as an assignment form (writes LHS);
	// CompoundAssign marks a read-modify-write form (+=, -=, ...), which
	// both reads and writes LHS.
	Assign         bool
	CompoundAssign bool

	// IncDec marks a UnaryOp as ++/--, always read-modify-write.
	IncDec bool

	// Loop carries the extracted bounds for a LoopBegin event, when the
	// walker could determine them (spec §4.1 recordLoop); nil otherwise.
	Loop *LoopBounds

	// CondArm distinguishes an else-if (Case) from a trailing else or
	// switch default (Fallback) for CondBegin-nested arm events emitted
	// between CondBegin and CondEnd. Unused for the outer CondBegin/End.
	CondArm CondArmKind

	// Directive carries directive metadata for OmpDirective events.
	Directive *DirectiveInfo

	// StmtID identifies the originating statement, used by the builder
	// to group accesses and to anchor insertions (spec §3 AccessEntry).
	StmtID StmtID
}

// CallArg is one resolved call argument.
type CallArg struct {
	Var  VarID
	Mode ParamMode
}

// CondArmKind distinguishes conditional arms, per spec §4.1 recordCond.
type CondArmKind int

const (
	// CondArmNone is used for the outer CondBegin/CondEnd pair.
	CondArmNone CondArmKind = iota
	// CondArmCase is an else-if arm.
	CondArmCase
	// CondArmFallback is a trailing else or switch default.
	CondArmFallback
)

// LoopBounds is the extracted loop shape for a counted for-loop (spec §3).
type LoopBounds struct {
	IndexVar VarID
	// LowerExpr/UpperExpr are source text snapshots of the bound
	// expressions (opaque to the core, which never re-derives them):
	// walkgo stores the index's initial value in LowerExpr and the value
	// the condition compares against in UpperExpr, as written. No
	// off-by-one normalization is applied, and whether either end is open
	// or closed is not recorded.
	LowerExpr string
	UpperExpr string
	// Ascending is true for ++/+= index progression, false for --/-=.
	Ascending bool
}

// DirectiveInfo carries the walker-resolved shape of an OpenMP directive.
type DirectiveInfo struct {
	Kind DirectiveKind
	// Private lists variables declared private to the kernel (spec §3
	// Kernel.PrivateDecls).
	Private []VarID
	// CapturedBegin/CapturedEnd is the source range of the directive's
	// innermost captured (associated) statement — not the directive
	// keyword span (spec §4.4 TargetDataRegion extent: "for OpenMP
	// directives, end is the end of the innermost captured statement").
	CapturedBegin Pos
	CapturedEnd   Pos
}

// FuncID identifies a function definition within the translation unit,
// or -1 when the callee could not be resolved to a definition in this
// unit.
type FuncID int64

// StmtID identifies a statement, stable within one function body.
type StmtID int64

// Pos is an opaque, totally ordered position within a translation unit
// (spec §3 SourcePos). File/Line/Col are carried for diagnostics and
// round-trip identity only; ordering must use Offset.
type Pos struct {
	Offset int
	File   string
	Line   int
	Col    int
}

// Less implements the total order spec §3 requires of SourcePos.
func (p Pos) Less(o Pos) bool { return p.Offset < o.Offset }

// Equal reports whether two positions are the same point.
func (p Pos) Equal(o Pos) bool { return p.Offset == o.Offset && p.File == o.File }

// Pos2 is a [Begin, End) source range, used for loop/conditional/kernel
// spans throughout the pipeline.
type Pos2 struct {
	Begin Pos
	End   Pos
}

// StmtResolver answers "what is the outermost statement in the function
// body whose transitive child is this position", needed to compute a
// TargetDataRegion's extent (spec §4.4 "TargetDataRegion extent"). This
// is frontend-specific (it requires walking the real statement tree) so
// it is supplied by whatever concrete walker implements the event feed,
// not by the core packages.
type StmtResolver interface {
	EnclosingStmt(pos Pos) Pos2
	// IsSemiTerminated reports whether the statement at pos ends with a
	// terminating ';' (spec §4.5 Placement Resolver anchor kinds) as
	// opposed to being a compound (brace-delimited) body.
	IsSemiTerminated(pos Pos) bool
	// IndentOf returns the indentation string in effect at pos, and
	// IndentStep returns the function's body indentation step — both
	// needed by the Placement Resolver (spec §4.5).
	IndentOf(pos Pos) string
	IndentStep() string
}
