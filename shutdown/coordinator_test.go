package shutdown

import (
	"testing"
	"time"

	"github.com/momentics/ada-trace/drain"
	"github.com/momentics/ada-trace/registry"
)

func TestCoordinator_ShutdownEmptyRegistry(t *testing.T) {
	reg := registry.New()
	sched := drain.NewScheduler(reg, t.TempDir())
	c := New(reg, sched, nil).WithBudget(500 * time.Millisecond)
	c.Start()

	report := c.Shutdown()
	if report.DeadlineHit {
		t.Errorf("expected shutdown to finish within budget with no threads registered")
	}
	if report.EventsWritten != 0 {
		t.Errorf("EventsWritten = %d, want 0", report.EventsWritten)
	}
	if !reg.ShutdownRequested() {
		t.Errorf("expected ShutdownRequested() to be true after Shutdown")
	}
}
