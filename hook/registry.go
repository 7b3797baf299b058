// File: hook/registry.go
// Package hook implements the hook registry and exclude set (C13) of
// spec.md §4.12: stable (module, symbol) -> function_id assignment, and
// an O(1) hot-spot exclude set consulted on every hook invocation.
//
// Grounded on the teacher's approach to dense interned identifiers in
// control/config.go's key lookup tables, reworked around FNV-1a hashing
// per spec.md §4.2/§4.12 rather than string map lookups alone, and on
// core/concurrency's lock-free primitives for the hot exclude-set path.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package hook

import (
	"hash/fnv"
	"strings"
	"sync"
)

// ModuleID computes the nonzero, case-insensitive 32-bit FNV-1a hash of a
// module path, per spec.md §4.2. A zero hash is remapped to 1 so that
// zero can remain reserved as "no module" elsewhere in the system.
func ModuleID(path string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(path)))
	id := h.Sum32()
	if id == 0 {
		return 1
	}
	return id
}

// Registry interns (module, symbol) pairs into stable 64-bit function
// ids for the lifetime of one session. Intern itself takes a mutex on
// every call and is not meant to sit on the per-event hot path: callers
// intern once per never-before-seen symbol and keep the result in a
// thread-local cache (lane.Set.Symbols), so Registry's own locking is
// amortized away after a symbol's first call.
type Registry struct {
	mu       sync.Mutex
	modules  map[string]uint32          // module path -> module id
	ordinals map[uint32]map[string]uint32 // module id -> symbol -> ordinal
	nextOrd  map[uint32]uint32            // module id -> next ordinal to assign
}

// NewRegistry returns an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{
		modules:  make(map[string]uint32),
		ordinals: make(map[uint32]map[string]uint32),
		nextOrd:  make(map[uint32]uint32),
	}
}

// Intern returns the stable function id for (modulePath, symbol),
// assigning a new module id and/or symbol ordinal on first sight.
// Ordinals start at 1 and increase monotonically per module.
func (r *Registry) Intern(modulePath, symbol string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	modID, ok := r.modules[modulePath]
	if !ok {
		modID = ModuleID(modulePath)
		r.modules[modulePath] = modID
		r.ordinals[modID] = make(map[string]uint32)
		r.nextOrd[modID] = 1
	}
	ord, ok := r.ordinals[modID][symbol]
	if !ok {
		ord = r.nextOrd[modID]
		r.ordinals[modID][symbol] = ord
		r.nextOrd[modID] = ord + 1
	}
	return uint64(modID)<<32 | uint64(ord)
}

// FunctionComponents returns the module id and symbol ordinal for an already-interned
// function id, e.g. for diagnostics or a debug probe.
func FunctionComponents(functionID uint64) (moduleID, symbolOrdinal uint32) {
	return uint32(functionID >> 32), uint32(functionID)
}
