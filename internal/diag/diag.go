// Package diag implements the diagnostics channel (spec §7): the two
// named analysis warnings, plus the fatal error kinds that abort a
// translation unit or a single function's rewrite.
//
// Diagnostic is a rename/generalization of the teacher's
// InstrumentationError (cmd/racedetector/instrument/errors.go): a
// file:line:col plus message, with an optional secondary note instead
// of that type's single Suggestion string, since spec §7's
// declaration-captured-by-region warning needs a note anchored at a
// *different* position (the region begin) than the warning itself.
package diag

import (
	"fmt"

	"github.com/kolkov/ompdart/internal/event"
)

// Kind identifies the diagnostic's category.
type Kind int

const (
	// UninitializedUse: a pure read observed before any write to the
	// variable (spec §4.4, §7).
	UninitializedUse Kind = iota
	// DeclarationCapturedByRegion: a variable's own declaration lies
	// inside the computed region (spec §4.4, §7).
	DeclarationCapturedByRegion
	// AnchorResolutionFailure: the region's begin/end statement could not
	// be resolved; the function is skipped entirely (spec §7).
	AnchorResolutionFailure
	// InconsistentCalleeSummary: interprocedural propagation ended with
	// an error (its iteration cap was reached before a fixpoint); analysis
	// continues. A call with fewer arguments than the callee has
	// parameters is not reported: the propagator skips the unmatched
	// parameters without a diagnostic.
	InconsistentCalleeSummary
	// RewriterIOFailure: the output file could not be written; fatal for
	// the translation unit (spec §7).
	RewriterIOFailure
)

func (k Kind) String() string {
	switch k {
	case UninitializedUse:
		return "uninitialized-use"
	case DeclarationCapturedByRegion:
		return "declaration-captured-by-region"
	case AnchorResolutionFailure:
		return "anchor-resolution-failure"
	case InconsistentCalleeSummary:
		return "inconsistent-callee-summary"
	case RewriterIOFailure:
		return "rewriter-io-failure"
	default:
		return "unknown"
	}
}

// Severity distinguishes diagnostics that let analysis continue from
// ones that abort a function or the whole run (spec §7).
type Severity int

const (
	Warning Severity = iota
	FunctionFatal
	RunFatal
)

func (k Kind) severity() Severity {
	switch k {
	case AnchorResolutionFailure:
		return FunctionFatal
	case RewriterIOFailure:
		return RunFatal
	default:
		return Warning
	}
}

// Note is a secondary annotation on a Diagnostic, anchored at its own
// position (e.g. the region begin for DeclarationCapturedByRegion).
type Note struct {
	Pos     event.Pos
	Message string
}

// Diagnostic is one reported analysis event.
type Diagnostic struct {
	Kind     Kind
	Pos      event.Pos
	Message  string
	Note     *Note
	Severity Severity
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s:%d:%d: %s: %s", d.Pos.File, d.Pos.Line, d.Pos.Col, d.Kind, d.Message)
	if d.Note != nil {
		s += fmt.Sprintf("\n%s:%d:%d: note: %s", d.Note.Pos.File, d.Note.Pos.Line, d.Note.Pos.Col, d.Note.Message)
	}
	return s
}

// Sink collects diagnostics for one run. The core packages never write
// to stderr directly; cmd/ompdart decides how to render a Sink's
// contents (spec §6: "diagnostic reporting channels" are an external
// collaborator concern).
type Sink struct {
	items []Diagnostic
}

// NewSink returns an empty diagnostics sink.
func NewSink() *Sink { return &Sink{} }

func (s *Sink) report(d Diagnostic) { s.items = append(s.items, d) }

// Warnf records a Warning-severity diagnostic.
func (s *Sink) Warnf(kind Kind, pos event.Pos, format string, args ...any) {
	s.report(Diagnostic{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...), Severity: Warning})
}

// WarnWithNote records a Warning-severity diagnostic carrying a secondary
// note at a different position (spec §7 declaration-captured-by-region).
func (s *Sink) WarnWithNote(kind Kind, pos event.Pos, msg string, note Note) {
	s.report(Diagnostic{Kind: kind, Pos: pos, Message: msg, Note: &note, Severity: Warning})
}

// FunctionFatal records a diagnostic that causes the current function to
// be skipped (spec §7 anchor-resolution-failure).
func (s *Sink) FunctionFatal(kind Kind, pos event.Pos, format string, args ...any) {
	s.report(Diagnostic{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...), Severity: FunctionFatal})
}

// Items returns every diagnostic recorded so far, in recording order.
func (s *Sink) Items() []Diagnostic { return append([]Diagnostic(nil), s.items...) }

// HasFunctionFatal reports whether any FunctionFatal-severity diagnostic
// was recorded, scanning only entries recorded since the given offset —
// callers pass len(s.items) captured before analyzing one function.
func (s *Sink) HasFunctionFatal(since int) bool {
	for _, d := range s.items[since:] {
		if d.Severity == FunctionFatal {
			return true
		}
	}
	return false
}

// Len reports the current number of recorded diagnostics, used as a
// watermark by callers of HasFunctionFatal.
func (s *Sink) Len() int { return len(s.items) }
