package drain

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/momentics/ada-trace/agent"
	"github.com/momentics/ada-trace/hook"
	"github.com/momentics/ada-trace/registry"
	"github.com/momentics/ada-trace/wire"
)

func TestScheduler_DrainsRegisteredEventsOnShutdown(t *testing.T) {
	reg := registry.New()
	a := agent.New(reg, nil, nil, nil)

	const threadID = uint64(7)
	if _, err := reg.Register(threadID); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for i := 0; i < 50; i++ {
		call := agent.Call{ThreadID: threadID, ModulePath: "m", Symbol: "f"}
		if !a.OnEnter(call) {
			t.Fatalf("OnEnter dropped event #%d", i)
		}
	}

	sched := NewScheduler(reg, t.TempDir())
	stop := make(chan struct{})
	close(stop)
	summaries := sched.Run(stop)

	if len(summaries) != 1 {
		t.Fatalf("len(summaries) = %d, want 1", len(summaries))
	}
	if summaries[0].EventsWritten != 50 {
		t.Errorf("EventsWritten = %d, want 50", summaries[0].EventsWritten)
	}
	if sched.WriteFailures() != 0 {
		t.Errorf("WriteFailures() = %d, want 0", sched.WriteFailures())
	}
}

func TestScheduler_ResolvesLinkTokensForMarkedCalls(t *testing.T) {
	reg := registry.New()
	marking := hook.NewPolicy([]hook.Pattern{{Literal: "f", Case: hook.CaseSensitive}})
	a := agent.New(reg, nil, nil, marking)

	const threadID = uint64(9)
	if _, err := reg.Register(threadID); err != nil {
		t.Fatalf("Register: %v", err)
	}

	const n = 10
	for i := 0; i < n; i++ {
		call := agent.Call{ThreadID: threadID, ModulePath: "m", Symbol: "f", ABIPayload: []byte("payload")}
		if !a.OnEnter(call) {
			t.Fatalf("OnEnter dropped event #%d", i)
		}
	}

	dir := t.TempDir()
	sched := NewScheduler(reg, dir)
	stop := make(chan struct{})
	close(stop)
	summaries := sched.Run(stop)

	if len(summaries) != 1 {
		t.Fatalf("len(summaries) = %d, want 1", len(summaries))
	}
	if summaries[0].WriteFailures != 0 {
		t.Fatalf("unexpected write failures: %d", summaries[0].WriteFailures)
	}

	raw, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("thread_%d", threadID), "index.atf"))
	if err != nil {
		t.Fatalf("read index.atf: %v", err)
	}
	for i := 0; i < n; i++ {
		off := wire.HeaderFooterSize + i*wire.IndexEventSize
		e, err := wire.DecodeIndexEvent(raw[off : off+wire.IndexEventSize])
		if err != nil {
			t.Fatalf("decode event %d: %v", i, err)
		}
		if !e.HasDetail() {
			t.Fatalf("event %d: expected its correlation token to resolve to a real det_seq", i)
		}
		if e.DetailSeq != uint32(i) {
			t.Fatalf("event %d: expected DetailSeq patched to %d, got %d", i, i, e.DetailSeq)
		}
	}
}

func TestScheduler_EmptyRegistryProducesNoSummaries(t *testing.T) {
	reg := registry.New()
	sched := NewScheduler(reg, t.TempDir())
	stop := make(chan struct{})
	close(stop)
	summaries := sched.Run(stop)
	if len(summaries) != 0 {
		t.Errorf("len(summaries) = %d, want 0", len(summaries))
	}
}
