package propagate

import (
	"errors"
	"testing"

	"github.com/kolkov/ompdart/internal/accesslog"
	"github.com/kolkov/ompdart/internal/event"
)

func newSummary(id event.FuncID, name string) *accesslog.FunctionSummary {
	b := accesslog.NewBuilder(id, name)
	return b.Finish()
}

func TestRunPropagatesParamAccessToCallSite(t *testing.T) {
	calleeID, callerID := event.FuncID(1), event.FuncID(0)
	param := event.VarID(10)

	callee := newSummary(calleeID, "callee")
	callee.Params = []event.VarID{param}
	callee.Log = []accesslog.AccessEntry{
		{Var: param, Pos: event.Pos{Offset: 5}, Mode: accesslog.WRITE},
	}

	arg := event.VarID(20)
	caller := newSummary(callerID, "caller")
	caller.Calls = []accesslog.CallSite{
		{Pos: event.Pos{Offset: 100}, Callee: calleeID, Args: []event.CallArg{{Var: arg, Mode: event.ParamUnknown}}},
	}

	funcs := map[event.FuncID]*accesslog.FunctionSummary{calleeID: callee, callerID: caller}
	if err := Run(funcs, Options{}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mode, _ := caller.AccessModeOf(arg)
	if mode != accesslog.WRITE {
		t.Errorf("expected the caller's argument to inherit WRITE from the callee's param, got %v", mode)
	}
}

func TestRunPropagatesGlobalAccess(t *testing.T) {
	calleeID, callerID := event.FuncID(1), event.FuncID(0)
	g := event.VarID(30)

	callee := newSummary(calleeID, "callee")
	callee.Globals[g] = true
	callee.Log = []accesslog.AccessEntry{
		{Var: g, Pos: event.Pos{Offset: 5}, Mode: accesslog.READ},
	}

	caller := newSummary(callerID, "caller")
	caller.Calls = []accesslog.CallSite{{Pos: event.Pos{Offset: 100}, Callee: calleeID}}

	funcs := map[event.FuncID]*accesslog.FunctionSummary{calleeID: callee, callerID: caller}
	if err := Run(funcs, Options{}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mode, _ := caller.AccessModeOf(g)
	if mode != accesslog.READ {
		t.Errorf("expected the global's access mode to propagate to the caller, got %v", mode)
	}
}

func TestRunIterationCapReached(t *testing.T) {
	calleeID, callerID := event.FuncID(1), event.FuncID(0)
	g := event.VarID(30)

	callee := newSummary(calleeID, "callee")
	callee.Globals[g] = true
	callee.Log = []accesslog.AccessEntry{{Var: g, Pos: event.Pos{Offset: 5}, Mode: accesslog.READ}}

	caller := newSummary(callerID, "caller")
	caller.Calls = []accesslog.CallSite{{Pos: event.Pos{Offset: 100}, Callee: calleeID}}

	funcs := map[event.FuncID]*accesslog.FunctionSummary{calleeID: callee, callerID: caller}
	err := Run(funcs, Options{MaxIterations: 1})
	if err == nil {
		t.Fatal("expected an error when the fixpoint needs more than one round")
	}
	if !errors.Is(err, ErrIterationCapReached) {
		t.Errorf("expected ErrIterationCapReached, got %v", err)
	}
}

func TestRunAggressivePolicyDisablesOffloadOnlyParam(t *testing.T) {
	calleeID, callerID := event.FuncID(1), event.FuncID(0)
	param := event.VarID(10)

	callee := newSummary(calleeID, "callee")
	callee.Params = []event.VarID{param}
	callee.Log = []accesslog.AccessEntry{
		{Var: param, Pos: event.Pos{Offset: 5}, Mode: accesslog.WRITE, Offload: true},
	}

	arg := event.VarID(20)
	caller := newSummary(callerID, "caller")
	caller.Calls = []accesslog.CallSite{
		{Pos: event.Pos{Offset: 100}, Callee: calleeID, Args: []event.CallArg{{Var: arg, Mode: event.ParamUnknown}}},
	}

	funcs := map[event.FuncID]*accesslog.FunctionSummary{calleeID: callee, callerID: caller}
	if err := Run(funcs, Options{Aggressive: true}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if !callee.Disabled[param] {
		t.Error("expected the offload-only param to be marked Disabled on the callee under the aggressive policy")
	}
	for _, e := range caller.Log {
		if e.Var == arg && !e.Offload {
			t.Error("expected the caller's call-site entry to inherit the OFFLOAD marking")
		}
	}
}

func TestRunSkipsUnresolvedCallee(t *testing.T) {
	caller := newSummary(0, "caller")
	caller.Calls = []accesslog.CallSite{{Pos: event.Pos{Offset: 1}, Callee: event.FuncID(-1)}}
	funcs := map[event.FuncID]*accesslog.FunctionSummary{0: caller}
	if err := Run(funcs, Options{}); err != nil {
		t.Fatalf("Run() with an unresolved callee must not error, got: %v", err)
	}
}
