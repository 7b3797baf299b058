// File: controller/controller.go
// Package controller wires every subsystem (registry, hook tables, the
// agent entry points, the shared-memory directory, the drain scheduler,
// and the shutdown coordinator) behind one composable facade, following
// the teacher's facade/hioload.go one-call-setup pattern.
//
// Grounded on facade/hioload.go: Config/DefaultConfig, a mutex-guarded
// started flag, New/Start/Shutdown lifecycle methods, and exposing the
// wired subsystems through Get* accessors rather than embedding them.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package controller

import (
	"log"
	"sync"
	"time"

	"github.com/momentics/ada-trace/affinity"
	"github.com/momentics/ada-trace/agent"
	"github.com/momentics/ada-trace/api"
	"github.com/momentics/ada-trace/backpressure"
	"github.com/momentics/ada-trace/control"
	"github.com/momentics/ada-trace/core/concurrency"
	"github.com/momentics/ada-trace/drain"
	"github.com/momentics/ada-trace/hook"
	"github.com/momentics/ada-trace/lane"
	"github.com/momentics/ada-trace/metrics"
	"github.com/momentics/ada-trace/pool"
	"github.com/momentics/ada-trace/registry"
	"github.com/momentics/ada-trace/shm"
	"github.com/momentics/ada-trace/shutdown"
)

// Config exposes every session-scoped tunable named across spec.md §4 and
// §9, following facade/hioload.go's flat Config-struct convention.
type Config struct {
	SessionDir        string
	HostPID           uint32
	SessionID         uint64
	NUMANode          int
	DrainWorkers      int
	ShutdownBudget    time.Duration
	MarkingPatterns   []hook.Pattern
	EnableCPUAffinity bool
	DrainCPU          int
}

// DefaultConfig mirrors facade/hioload.go's DefaultConfig: a baseline a
// caller can tweak before passing to New.
func DefaultConfig() *Config {
	return &Config{
		SessionDir:     "ada-trace-session",
		NUMANode:       -1,
		DrainWorkers:   1,
		ShutdownBudget: shutdown.DefaultBudget,
		DrainCPU:       -1,
	}
}

// Controller is the main facade struct, providing one-call setup and
// teardown for a capture session, following facade/hioload.go's HioloadWS
// shape.
type Controller struct {
	config *Config

	registry    *registry.Registry
	hooks       *hook.Registry
	excludes    *hook.ExcludeSet
	marking     *hook.Policy
	agent       *agent.Agent
	scheduler   *drain.Scheduler
	coordinator *shutdown.Coordinator
	wake        shm.Wake
	metrics     *metrics.Registry
	executor    *concurrency.Executor

	controlArena *shm.Arena
	controlBlock *shm.ControlBlock

	configStore  *control.ConfigStore
	metricsStore *control.MetricsRegistry
	debugProbes  *control.DebugProbes

	mu      sync.RWMutex
	started bool
}

var (
	_ api.Control          = (*Controller)(nil)
	_ api.Debug            = (*Controller)(nil)
	_ api.GracefulShutdown = (*Controller)(nil)
)

// New constructs every subsystem. The thread registry accepts
// registrations as soon as New returns, but the background drain loop
// does not run until Start is called.
func New(cfg *Config) (*Controller, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Controller{config: cfg}

	if cfg.NUMANode < 0 {
		if n, err := pool.DetectNUMANodeCount(); err == nil && n > 1 {
			cfg.NUMANode = 0
			log.Printf("ada-trace: detected %d NUMA nodes, defaulting arenas to node 0", n)
		}
	}

	c.registry = registry.New()
	c.hooks = hook.NewRegistry()
	c.excludes = hook.NewExcludeSet()
	c.marking = hook.NewPolicy(cfg.MarkingPatterns)
	c.agent = agent.New(c.registry, c.hooks, c.excludes, c.marking)
	c.metrics = metrics.NewRegistry()

	c.configStore = control.NewConfigStore()
	c.metricsStore = control.NewMetricsRegistry()
	c.debugProbes = control.NewDebugProbes()
	control.RegisterPlatformProbes(c.debugProbes)
	c.registerDebugProbes()

	wake, err := shm.NewWake()
	if err != nil {
		log.Printf("ada-trace: wake primitive unavailable, falling back to sleep polling: %v", err)
	} else {
		c.wake = wake
	}

	c.scheduler = drain.NewScheduler(c.registry, cfg.SessionDir)
	if c.wake != nil {
		c.scheduler.SetWaker(c.wake)
	}

	if cfg.DrainWorkers > 0 {
		c.executor = concurrency.NewExecutor(cfg.DrainWorkers, cfg.NUMANode)
	}

	c.coordinator = shutdown.New(c.registry, c.scheduler, c.wake).WithBudget(cfg.ShutdownBudget)
	if c.executor != nil {
		c.coordinator.WithExecutor(c.executor)
	}

	if err := c.initControlArena(); err != nil {
		log.Printf("ada-trace: control arena init failed, continuing without shared-memory directory: %v", err)
	}

	c.configStore.SetConfig(map[string]any{
		"session_dir":     cfg.SessionDir,
		"numa_node":       cfg.NUMANode,
		"drain_workers":   cfg.DrainWorkers,
		"shutdown_budget": cfg.ShutdownBudget.String(),
	})

	return c, nil
}

// initControlArena creates the control-role arena named per spec.md §6
// and writes its header. Index/detail arenas are created lazily per
// thread by the caller that owns cross-process hand-off (out of this
// core's scope per spec.md's Non-goals).
func (c *Controller) initControlArena() error {
	name := shm.Name(shm.RoleControl, c.config.HostPID, c.config.SessionID)
	size := shm.ControlHeaderSize + registry.Capacity*96
	arena, err := shm.CreateUnique(shm.RoleControl, name, size, c.config.NUMANode)
	if err != nil {
		return err
	}
	c.controlArena = arena
	c.controlBlock = shm.NewControlBlock(arena, registry.Capacity)
	return c.controlBlock.Init()
}

func (c *Controller) registerDebugProbes() {
	c.debugProbes.RegisterProbe("registry.active_count", func() any { return c.registry.ActiveCount() })
	c.debugProbes.RegisterProbe("registry.thread_count", func() any { return c.registry.ThreadCount() })
	c.debugProbes.RegisterProbe("drain.write_failures", func() any { return c.scheduler.WriteFailures() })
	c.debugProbes.RegisterProbe("lanes.ring_pool_state", func() any { return c.ringPoolDebugState() })
}

// ringPoolDebugState reports each registered thread's (active or not) current ring-pool
// occupancy (active ring index out of K) and pre-roll watermark state,
// the debug probe surface SPEC_FULL.md's supplemented features describe.
func (c *Controller) ringPoolDebugState() any {
	out := make([]map[string]any, 0, int(c.registry.ThreadCount()))
	for _, set := range c.registry.Slots() {
		if set == nil {
			continue
		}
		out = append(out, map[string]any{
			"thread_id":          set.ThreadID,
			"index_active_ring":  set.Index.Pool.ActiveIndex(),
			"index_ring_count":   set.Index.Pool.K(),
			"index_exhaustions":  set.Index.Pool.ExhaustionCount(),
			"detail_active_ring": set.Detail.Pool.ActiveIndex(),
			"detail_ring_count":  set.Detail.Pool.K(),
			"detail_pre_roll":    set.Detail.Pool.PreRollElected(),
		})
	}
	return out
}

// Start applies CPU pinning for the drain thread (if configured) and
// launches the background drain loop.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	if c.config.EnableCPUAffinity && c.config.DrainCPU >= 0 {
		if err := affinity.SetAffinity(c.config.DrainCPU); err != nil {
			log.Printf("ada-trace: drain thread affinity pin warning: %v", err)
		}
	}
	c.coordinator.Start()
	c.started = true
	return nil
}

// RegisterThread registers threadID's lane set, the entry point a
// platform-specific hook shim calls on first interception on a new
// thread.
func (c *Controller) RegisterThread(threadID uint64) (*lane.Set, error) {
	set, err := c.registry.Register(threadID)
	if err != nil {
		return nil, err
	}
	c.metrics.ForThread(threadID)
	return set, nil
}

// Agent exposes the OnEnter/OnLeave entry points for interception shims.
func (c *Controller) Agent() *agent.Agent { return c.agent }

// Metrics exposes the live metrics registry for periodic snapshotting.
func (c *Controller) Metrics() *metrics.Registry { return c.metrics }

// Control exposes the dynamic config store (which also dispatches the
// hot-reload listeners), mirroring facade/hioload.go's GetControl. The
// debug probe registry is exposed separately by DebugProbes.
func (c *Controller) Control() *control.ConfigStore { return c.configStore }

// DebugProbes exposes the live probe registry for on-demand dumps.
func (c *Controller) DebugProbes() *control.DebugProbes { return c.debugProbes }

// GetConfig implements api.Control.
func (c *Controller) GetConfig() map[string]any { return c.configStore.GetSnapshot() }

// SetConfig implements api.Control. The config store never rejects a
// merge, so this always returns nil.
func (c *Controller) SetConfig(cfg map[string]any) error {
	c.configStore.SetConfig(cfg)
	return nil
}

// OnReload implements api.Control.
func (c *Controller) OnReload(fn func()) { c.configStore.OnReload(fn) }

// RegisterDebugProbe implements api.Control.
func (c *Controller) RegisterDebugProbe(name string, fn func() any) { c.debugProbes.RegisterProbe(name, fn) }

// SetMarkingPatterns pushes a new trigger-pattern list to the marking
// policy and mirrors it through the config store's reload dispatch, so
// an operator can change which symbols elect detail-lane persistence
// without restarting the session.
func (c *Controller) SetMarkingPatterns(patterns []hook.Pattern) {
	c.marking.SetPatterns(patterns)
	c.config.MarkingPatterns = patterns
	c.configStore.SetConfig(map[string]any{"marking_pattern_count": len(patterns)})
}

// DumpState implements api.Debug.
func (c *Controller) DumpState() map[string]any { return c.debugProbes.DumpState() }

// RegisterProbe implements api.Debug.
func (c *Controller) RegisterProbe(name string, fn func() any) { c.debugProbes.RegisterProbe(name, fn) }

// PublishMetrics snapshots the metrics registry at nowNs and mirrors the
// system totals into the MetricsRegistry dynamic-config surface so a
// polling dashboard using only api.Control.Stats sees them too.
func (c *Controller) PublishMetrics(nowNs uint64, indexCounters, detailCounters map[uint64]*backpressure.Counters) metrics.SystemSnapshot {
	snap := c.metrics.Snapshot(nowNs, indexCounters, detailCounters)
	c.metricsStore.Set("events_written", snap.TotalEventsWritten)
	c.metricsStore.Set("events_dropped", snap.TotalEventsDropped)
	c.metricsStore.Set("bytes_written", snap.TotalBytesWritten)
	c.metricsStore.Set("events_per_sec", snap.TotalEventsPerSec)
	c.metricsStore.Set("bytes_per_sec", snap.TotalBytesPerSec)
	return snap
}

// Stats implements api.Control.Stats via the mirrored MetricsRegistry.
func (c *Controller) Stats() map[string]any { return c.metricsStore.GetSnapshot() }

// Shutdown runs the phased shutdown sequence (spec.md §4.10) and
// releases the control arena. Returns shutdown.ErrDeadlineExceeded if
// the configured budget elapsed before the final drain completed,
// matching api.GracefulShutdown's error-on-deadline contract.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	c.agent.StopAcceptingEvents()
	report := c.coordinator.Shutdown()
	log.Printf("ada-trace: shutdown complete, events_written=%d bytes_written=%d write_failures=%d deadline_hit=%v",
		report.EventsWritten, report.BytesWritten, report.WriteFailures, report.DeadlineHit)

	if c.executor != nil {
		c.executor.Close()
	}
	if c.controlArena != nil {
		_ = c.controlArena.Close()
	}
	if c.wake != nil {
		_ = c.wake.Close()
	}
	c.started = false
	if report.DeadlineHit {
		return shutdown.ErrDeadlineExceeded
	}
	return nil
}
