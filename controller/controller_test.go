package controller

import (
	"testing"

	"github.com/momentics/ada-trace/agent"
	"github.com/momentics/ada-trace/backpressure"
	"github.com/momentics/ada-trace/hook"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SessionDir = t.TempDir()
	cfg.HostPID = 4242
	cfg.SessionID = 0xabc
	cfg.DrainWorkers = 1
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestController_StartShutdownEmpty(t *testing.T) {
	c := newTestController(t)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestController_RegisterThread(t *testing.T) {
	c := newTestController(t)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	set, err := c.RegisterThread(1)
	if err != nil {
		t.Fatalf("RegisterThread: %v", err)
	}
	if set == nil {
		t.Fatal("RegisterThread returned nil set")
	}
	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestController_ConfigAndDebugSurface(t *testing.T) {
	c := newTestController(t)
	cfg := c.GetConfig()
	if cfg["session_dir"] != c.config.SessionDir {
		t.Errorf("GetConfig()[session_dir] = %v, want %v", cfg["session_dir"], c.config.SessionDir)
	}

	called := false
	c.OnReload(func() { called = true })
	if err := c.SetConfig(map[string]any{"foo": "bar"}); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	_ = called // reload hooks run asynchronously; presence is what's under test

	c.RegisterDebugProbe("test.probe", func() any { return 7 })
	state := c.DumpState()
	if state["test.probe"] != 7 {
		t.Errorf("DumpState()[test.probe] = %v, want 7", state["test.probe"])
	}
	if _, ok := state["lanes.ring_pool_state"]; !ok {
		t.Error("DumpState() missing lanes.ring_pool_state probe")
	}
}

func TestController_RingPoolDebugStateReflectsRegisteredThreads(t *testing.T) {
	c := newTestController(t)
	if _, err := c.RegisterThread(5); err != nil {
		t.Fatalf("RegisterThread: %v", err)
	}
	states, ok := c.ringPoolDebugState().([]map[string]any)
	if !ok {
		t.Fatalf("ringPoolDebugState() returned %T, want []map[string]any", c.ringPoolDebugState())
	}
	if len(states) != 1 {
		t.Fatalf("len(states) = %d, want 1", len(states))
	}
	if states[0]["thread_id"] != uint64(5) {
		t.Errorf("states[0][thread_id] = %v, want 5", states[0]["thread_id"])
	}
}

func TestController_SetMarkingPatternsAffectsDetailCapture(t *testing.T) {
	c := newTestController(t)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	set, err := c.RegisterThread(1)
	if err != nil {
		t.Fatalf("RegisterThread: %v", err)
	}

	call := agent.Call{ThreadID: 1, ModulePath: "m", Symbol: "unmarked_fn"}
	c.Agent().OnEnter(call)

	c.SetMarkingPatterns([]hook.Pattern{{Literal: "unmarked_fn"}})
	call2 := agent.Call{ThreadID: 1, ModulePath: "m", Symbol: "unmarked_fn"}
	if !c.Agent().OnEnter(call2) {
		t.Error("OnEnter after marking pattern update should still succeed")
	}
	if set.Detail.Counters.Snapshot().EventsWritten == 0 {
		t.Error("expected the newly marked symbol to write a detail record")
	}

	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestController_PublishMetrics(t *testing.T) {
	c := newTestController(t)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := c.RegisterThread(1); err != nil {
		t.Fatalf("RegisterThread: %v", err)
	}

	var counters backpressure.Counters
	counters.RecordWrite(128)

	snap := c.PublishMetrics(1_000_000_000, map[uint64]*backpressure.Counters{1: &counters}, nil)
	if snap.TotalEventsWritten != 1 {
		t.Errorf("TotalEventsWritten = %d, want 1", snap.TotalEventsWritten)
	}
	stats := c.Stats()
	if stats["events_written"] != uint64(1) {
		t.Errorf("Stats()[events_written] = %v, want 1", stats["events_written"])
	}

	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
