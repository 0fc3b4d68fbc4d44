package placement

import (
	"strings"
	"testing"

	"github.com/kolkov/ompdart/internal/accesslog"
	"github.com/kolkov/ompdart/internal/event"
	"github.com/kolkov/ompdart/internal/region"
	"github.com/kolkov/ompdart/internal/rewrite"
)

// stubResolver is a minimal event.StmtResolver for tests that never
// exercise the statement-boundary path (emitMapSet only calls IndentOf/
// IndentStep on the fresh-wrap branch).
type stubResolver struct {
	indent string
	step   string
}

func (r stubResolver) EnclosingStmt(pos event.Pos) event.Pos2 { return event.Pos2{Begin: pos, End: pos} }
func (r stubResolver) IsSemiTerminated(pos event.Pos) bool     { return true }
func (r stubResolver) IndentOf(pos event.Pos) string           { return r.indent }
func (r stubResolver) IndentStep() string                      { return r.step }

func TestResolveAppendsToSoleKernelDirective(t *testing.T) {
	kernelPos := event.Pos{Offset: 10}
	k := &accesslog.Kernel{BeginPos: kernelPos}
	rb := region.NewBuilder(0, kernelPos, event.Pos{Offset: 50})
	rb.AddKernel(k)
	rb.AddMapTo(accesslog.AccessEntry{Var: 1})
	reg := rb.Build()

	b := Resolve(reg, stubResolver{indent: "\t", step: "\t"})
	ops := b.Ops()

	found := false
	for _, op := range ops {
		if op.Kind == rewrite.InsertBefore && op.Pos.Equal(kernelPos) && strings.Contains(op.Text, "map(to:v1)") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a map(to:v1) clause appended directly to the sole kernel's directive, got %+v", ops)
	}
	// must not also synthesize a fresh target-data wrap
	for _, op := range ops {
		if strings.Contains(op.Text, "target data") {
			t.Errorf("a single-kernel region must not get a fresh target-data wrap, got op %+v", op)
		}
	}
}

func TestResolveWrapsMultiKernelRegionFresh(t *testing.T) {
	regionBegin := event.Pos{Offset: 0}
	regionEnd := event.Pos{Offset: 100}
	k1 := &accesslog.Kernel{BeginPos: event.Pos{Offset: 10}}
	k2 := &accesslog.Kernel{BeginPos: event.Pos{Offset: 50}}
	rb := region.NewBuilder(0, regionBegin, regionEnd)
	rb.AddKernel(k1)
	rb.AddKernel(k2)
	rb.AddMapFrom(accesslog.AccessEntry{Var: 2})
	reg := rb.Build()

	b := Resolve(reg, stubResolver{indent: "  ", step: "  "})
	ops := b.Ops()

	var before, after bool
	for _, op := range ops {
		if op.Kind == rewrite.InsertBefore && op.Pos.Equal(regionBegin) && strings.Contains(op.Text, "target data") {
			before = true
			if !strings.Contains(op.Text, "map(from:v2)") {
				t.Errorf("expected the wrap's opening line to carry the map clause, got %q", op.Text)
			}
		}
		if op.Kind == rewrite.InsertAfter && op.Pos.Equal(regionEnd) {
			after = true
		}
	}
	if !before || !after {
		t.Fatalf("expected a fresh target-data wrap with both an opening and closing insertion, got %+v", ops)
	}
}

func TestResolveNoMapClausesEmitsNoWrap(t *testing.T) {
	rb := region.NewBuilder(0, event.Pos{Offset: 0}, event.Pos{Offset: 100})
	reg := rb.Build()

	b := Resolve(reg, stubResolver{})
	ops := b.Ops()
	for _, op := range ops {
		if strings.Contains(op.Text, "target data") || strings.Contains(op.Text, "map(") {
			t.Errorf("expected no map-set insertion when the region has no map clauses, got %+v", ops)
		}
	}
}

func TestResolveEmitsFirstPrivateClauseSortedAndGrouped(t *testing.T) {
	k := &accesslog.Kernel{BeginPos: event.Pos{Offset: 5}}
	rb := region.NewBuilder(0, event.Pos{Offset: 5}, event.Pos{Offset: 20})
	rb.AddFirstPrivate(region.ClauseInfo{Var: 3, Kernel: k})
	rb.AddFirstPrivate(region.ClauseInfo{Var: 1, Kernel: k})
	reg := rb.Build()

	b := Resolve(reg, stubResolver{})
	ops := b.Ops()

	found := false
	for _, op := range ops {
		if strings.Contains(op.Text, "firstprivate(v1,v3)") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a sorted, comma-joined firstprivate clause, got %+v", ops)
	}
}

func TestResolveMergesUpdatesAtSameAnchor(t *testing.T) {
	pos := event.Pos{Offset: 30}
	rb := region.NewBuilder(0, event.Pos{Offset: 0}, event.Pos{Offset: 100})
	rb.AddUpdateTo(accesslog.AccessEntry{Var: 2, Pos: pos})
	rb.AddUpdateTo(accesslog.AccessEntry{Var: 1, Pos: pos})
	reg := rb.Build()

	b := Resolve(reg, stubResolver{})
	ops := b.Ops()

	count := 0
	for _, op := range ops {
		if strings.Contains(op.Text, "target update to") {
			count++
			if !strings.Contains(op.Text, "v1,v2") {
				t.Errorf("expected the merged update to list both vars sorted, got %q", op.Text)
			}
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one merged update-to directive at the shared anchor, got %d", count)
	}
}

func TestResolveUpdateFromDirectionText(t *testing.T) {
	rb := region.NewBuilder(0, event.Pos{Offset: 0}, event.Pos{Offset: 100})
	rb.AddUpdateFrom(accesslog.AccessEntry{Var: 9, Pos: event.Pos{Offset: 40}})
	reg := rb.Build()

	b := Resolve(reg, stubResolver{})
	ops := b.Ops()

	found := false
	for _, op := range ops {
		if strings.Contains(op.Text, "target update from(v9)") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an UpdateFrom entry to emit a 'target update from' directive, got %+v", ops)
	}
}
