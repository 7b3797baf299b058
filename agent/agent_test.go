// File: agent/agent_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package agent

import (
	"testing"

	"github.com/momentics/ada-trace/hook"
	"github.com/momentics/ada-trace/registry"
)

func TestOnEnterOnLeaveRecordsIndexEvents(t *testing.T) {
	reg := registry.New()
	a := New(reg, nil, nil, nil)

	const threadID = uint64(1)
	if !a.OnEnter(Call{ThreadID: threadID, ModulePath: "m", Symbol: "f"}) {
		t.Fatalf("OnEnter returned false")
	}
	if !a.OnLeave(Call{ThreadID: threadID, ModulePath: "m", Symbol: "f"}) {
		t.Fatalf("OnLeave returned false")
	}

	set, err := reg.Register(threadID)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	snap := set.Index.Counters.Snapshot()
	if snap.EventsDropped != 0 {
		t.Fatalf("unexpected dropped events: %d", snap.EventsDropped)
	}
}

func TestOnEnterDropsExcludedSymbol(t *testing.T) {
	reg := registry.New()
	excludes := hook.NewExcludeSet()
	excludes.Add("excludedFn")
	a := New(reg, nil, excludes, nil)

	const threadID = uint64(2)
	if a.OnEnter(Call{ThreadID: threadID, ModulePath: "m", Symbol: "excludedFn"}) {
		t.Fatalf("expected OnEnter to drop excluded symbol")
	}
}

func TestReentrancyGuardBlocksNestedCall(t *testing.T) {
	reg := registry.New()
	a := New(reg, nil, nil, nil)

	const threadID = uint64(3)
	set, err := a.ResolveThread(threadID)
	if err != nil {
		t.Fatalf("ResolveThread: %v", err)
	}
	set.InHandler.Store(true)
	defer set.InHandler.Store(false)

	if a.OnEnter(Call{ThreadID: threadID, ModulePath: "m", Symbol: "f", Handle: set}) {
		t.Fatalf("expected OnEnter to be blocked by reentrancy guard")
	}
	if set.ReentrancyBlocked.Load() != 1 {
		t.Fatalf("ReentrancyBlocked = %d, want 1", set.ReentrancyBlocked.Load())
	}
}

func TestCallHandleSkipsRegistryLookup(t *testing.T) {
	reg := registry.New()
	a := New(reg, nil, nil, nil)

	const threadID = uint64(4)
	set, err := a.ResolveThread(threadID)
	if err != nil {
		t.Fatalf("ResolveThread: %v", err)
	}

	if !a.OnEnter(Call{ThreadID: threadID, ModulePath: "m", Symbol: "f", Handle: set}) {
		t.Fatalf("OnEnter with Handle returned false")
	}
	if set.Index.Counters.Snapshot().EventsDropped != 0 {
		t.Fatalf("unexpected dropped event via Handle fast path")
	}
}

func TestMarkedCallWritesDetailRecord(t *testing.T) {
	reg := registry.New()
	marking := hook.NewPolicy([]hook.Pattern{{Literal: "f", Case: hook.CaseSensitive}})
	a := New(reg, nil, nil, marking)

	const threadID = uint64(5)
	if !a.OnEnter(Call{ThreadID: threadID, ModulePath: "m", Symbol: "f", ABIPayload: []byte("abi")}) {
		t.Fatalf("OnEnter returned false")
	}

	set, err := reg.Register(threadID)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if set.Detail.Counters.Snapshot().EventsWritten == 0 {
		t.Fatalf("expected a detail record to have been written for a marked symbol")
	}
}

func TestStopAcceptingEventsDropsSubsequentCalls(t *testing.T) {
	reg := registry.New()
	a := New(reg, nil, nil, nil)
	a.StopAcceptingEvents()

	const threadID = uint64(6)
	if a.OnEnter(Call{ThreadID: threadID, ModulePath: "m", Symbol: "f"}) {
		t.Fatalf("expected OnEnter to drop once accepting is stopped")
	}
}
