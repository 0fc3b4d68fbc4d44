// Package rewrite implements the exposed Rewriter interface (spec §6):
// a small set of position-keyed text insertion operations that the
// Placement Resolver emits and something downstream applies to the
// original source buffer.
//
// The original analyzer spliced text directly into a raw character
// buffer in DirectiveRewriter.cpp. The teacher's instrument.go pipeline
// follows the same two-pass shape at the AST-node level (collect
// instrumentation points, then apply them in one pass via go/printer);
// here the "apply" pass operates on the byte buffer directly because the
// resolver inserts OpenMP pragma text, which has no go/ast
// representation to splice through.
package rewrite

import (
	"fmt"
	"sort"

	"github.com/kolkov/ompdart/internal/event"
)

// OpKind identifies one rewrite operation's shape.
type OpKind int

const (
	InsertBefore OpKind = iota
	InsertAfter
	RemoveRange
)

// Op is one rewrite operation, keyed by an opaque source position (spec
// §6: "insertBefore(pos, text), insertAfter(pos, text), removeRange(pos, len)").
type Op struct {
	Kind OpKind
	Pos  event.Pos
	Text string
	Len  int
}

// Batch is an ordered collection of rewrite operations produced by one
// Placement Resolver run. The resolver is responsible for producing a
// batch with no two operations at conflicting offsets for the same
// logical edit (spec §6: "the resolver produces an ordered batch of such
// operations").
type Batch struct {
	ops []Op
}

// InsertBefore queues text to be inserted immediately before pos.
func (b *Batch) InsertBefore(pos event.Pos, text string) {
	b.ops = append(b.ops, Op{Kind: InsertBefore, Pos: pos, Text: text})
}

// InsertAfter queues text to be inserted immediately after pos.
func (b *Batch) InsertAfter(pos event.Pos, text string) {
	b.ops = append(b.ops, Op{Kind: InsertAfter, Pos: pos, Text: text})
}

// RemoveRange queues the removal of n bytes starting at pos.
func (b *Batch) RemoveRange(pos event.Pos, n int) {
	b.ops = append(b.ops, Op{Kind: RemoveRange, Pos: pos, Len: n})
}

// Ops returns the queued operations in the order they were added.
func (b *Batch) Ops() []Op { return append([]Op(nil), b.ops...) }

// Apply applies every operation in b to src and returns the rewritten
// buffer. Operations are applied back-to-front by offset so that earlier
// edits never invalidate the offsets recorded for later ones — the same
// discipline DirectiveRewriter.cpp's insertion helpers rely on by always
// working from a SourceLocation snapshot taken before any edit in the
// pass.
func Apply(src []byte, b *Batch) ([]byte, error) {
	ops := append([]Op(nil), b.ops...)
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Pos.Offset != ops[j].Pos.Offset {
			return ops[i].Pos.Offset > ops[j].Pos.Offset
		}
		// InsertAfter is applied before InsertBefore at the same
		// offset; since each later insertion at that offset lands in
		// front of the earlier ones, the "insert before" text ends up
		// first and the "insert after" text follows it.
		return ops[i].Kind > ops[j].Kind
	})

	out := append([]byte(nil), src...)
	for _, op := range ops {
		off := op.Pos.Offset
		if off < 0 || off > len(out) {
			return nil, fmt.Errorf("rewrite: offset %d out of range [0,%d]", off, len(out))
		}
		switch op.Kind {
		case InsertBefore, InsertAfter:
			out = append(out[:off:off], append([]byte(op.Text), out[off:]...)...)
		case RemoveRange:
			end := off + op.Len
			if end > len(out) {
				end = len(out)
			}
			out = append(out[:off:off], out[end:]...)
		}
	}
	return out, nil
}
