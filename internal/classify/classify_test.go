package classify

import (
	"testing"

	"github.com/kolkov/ompdart/internal/accesslog"
	"github.com/kolkov/ompdart/internal/event"
)

func newSummary() *accesslog.FunctionSummary {
	b := accesslog.NewBuilder(0, "f")
	return b.Finish()
}

func TestRunMarksOffloadWithinKernelWindow(t *testing.T) {
	fn := newSummary()
	v := event.VarID(1)
	fn.Log = []accesslog.AccessEntry{
		{Var: v, Pos: event.Pos{Offset: 0}, Mode: accesslog.READ},  // before the kernel window
		{Var: v, Pos: event.Pos{Offset: 10}, Mode: accesslog.WRITE}, // inside
		{Var: v, Pos: event.Pos{Offset: 20}, Mode: accesslog.READ}, // after
	}
	fn.Kernels = []*accesslog.Kernel{{LogBegin: 1, LogEnd: 2}}

	hasOffload := Run(fn)

	if !hasOffload {
		t.Fatal("expected hasOffload == true")
	}
	if fn.Log[0].Offload {
		t.Error("entry before the kernel window must not be marked Offload")
	}
	if !fn.Log[1].Offload {
		t.Error("entry inside the kernel window must be marked Offload")
	}
	if fn.Log[2].Offload {
		t.Error("entry after the kernel window must not be marked Offload")
	}
}

func TestRunSkipsBarrierEntries(t *testing.T) {
	fn := newSummary()
	fn.Log = []accesslog.AccessEntry{
		{Pos: event.Pos{Offset: 10}, Barrier: accesslog.LoopBegin},
		{Pos: event.Pos{Offset: 11}, Barrier: accesslog.LoopEnd},
	}
	fn.Kernels = []*accesslog.Kernel{{LogBegin: 0, LogEnd: 2}}

	hasOffload := Run(fn)

	if hasOffload {
		t.Error("a kernel window containing only barrier entries must not report hasOffload")
	}
	for i, e := range fn.Log {
		if e.Offload {
			t.Errorf("barrier entry %d must never be marked Offload", i)
		}
	}
}

func TestRunSkipsNopEntries(t *testing.T) {
	fn := newSummary()
	v := event.VarID(1)
	fn.Log = []accesslog.AccessEntry{
		{Var: v, Pos: event.Pos{Offset: 10}, Mode: accesslog.NOP},
	}
	fn.Kernels = []*accesslog.Kernel{{LogBegin: 0, LogEnd: 1}}

	if Run(fn) {
		t.Error("a NOP-mode entry must not count toward hasOffload")
	}
	if fn.Log[0].Offload {
		t.Error("a NOP-mode entry must not be marked Offload")
	}
}

func TestRunNoKernelsReportsNoOffload(t *testing.T) {
	fn := newSummary()
	fn.Log = []accesslog.AccessEntry{
		{Var: event.VarID(1), Pos: event.Pos{Offset: 10}, Mode: accesslog.READ},
	}

	if Run(fn) {
		t.Error("a function with no Kernels must report hasOffload == false")
	}
}

func TestRunMultipleKernelsAggregate(t *testing.T) {
	fn := newSummary()
	v := event.VarID(1)
	fn.Log = []accesslog.AccessEntry{
		{Var: v, Pos: event.Pos{Offset: 10}, Mode: accesslog.NOP},
		{Var: v, Pos: event.Pos{Offset: 20}, Mode: accesslog.WRITE},
	}
	fn.Kernels = []*accesslog.Kernel{
		{LogBegin: 0, LogEnd: 1},
		{LogBegin: 1, LogEnd: 2},
	}

	if !Run(fn) {
		t.Error("expected hasOffload == true when any kernel has an offloaded entry")
	}
	if fn.Log[0].Offload {
		t.Error("the NOP entry in the first kernel must still not be marked Offload")
	}
	if !fn.Log[1].Offload {
		t.Error("the WRITE entry in the second kernel must be marked Offload")
	}
}
