// File: shm/arena.go
// Package shm implements the shared-memory directory (C10) of spec.md
// §4.9: named arenas for the control block, index lane, and detail lane,
// mapped by both the controller (creator) and the agent (opener). All
// cross-process references into an arena are byte offsets from the
// arena's base address, materialized per call as base+offset; no pointer
// value is ever persisted.
//
// Grounded on pool/slab_pool.go's NUMA-aware raw-byte allocation style,
// generalized from a process-private slab to a named, cross-process
// region, and on the teacher's reactor_linux.go/reactor_windows.go split
// for the platform-specific mapping primitives (arena_linux.go,
// arena_windows.go).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package shm

import (
	"errors"
	"fmt"
)

// errUnsupported is returned by CreateUnique/OpenUnique on platforms
// without a shared-memory backing (shm/arena_stub.go). It is returned
// as is; nothing maps it to api.ErrShmOpenFailed.
var errUnsupported = errors.New("shm: arena mapping not supported on this platform")

// Role identifies which of the three arenas of spec.md §4.9 a region
// backs.
type Role int

const (
	RoleControl Role = iota
	RoleIndex
	RoleDetail
)

func (r Role) String() string {
	switch r {
	case RoleControl:
		return "control"
	case RoleIndex:
		return "index"
	case RoleDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// Name formats an arena name per spec.md §6: "ada.<role>.<host_pid>.<session_id_hex>".
func Name(role Role, hostPID uint32, sessionID uint64) string {
	return fmt.Sprintf("ada.%s.%d.%x", role, hostPID, sessionID)
}

// ControlMagic and ControlVersion let an opening agent detect a
// mismatched controller build before trusting the arena's contents
// (spec.md §6: "Magic values and version in control block permit
// mismatch detection").
const (
	ControlMagic   uint32 = 0x41444143 // "ADAC"
	ControlVersion uint32 = 1
)

// ControlHeaderSize is the fixed prefix of the control arena: magic,
// version, numa_node hint, directory capacity and entry count. The
// directory of (name, size) entries for the sibling index/detail arenas
// follows it (spec.md §4.9, supplemented with a NUMA hint per
// SPEC_FULL.md §4).
const ControlHeaderSize = 32

// DirEntry names one sibling arena and its mapped size, so an agent that
// opens the control arena can map the rest uniformly without separate
// out-of-band configuration.
type DirEntry struct {
	Role Role
	Name string
	Size uint64
}

// Arena is a mapped shared-memory region: a byte slice the caller
// indexes with offsets, plus the metadata needed to unmap it on close.
// Arena never exposes a pointer type, matching spec.md §4.9's
// "no materialized-address caches are persisted across calls".
type Arena struct {
	Role     Role
	Name     string
	Data     []byte
	NUMANode int // -1 if no NUMA hint applies (SPEC_FULL.md §4)

	closer func() error
}

// At returns the byte at the given offset into the arena, bounds-checked.
// Callers materialize typed views with encoding helpers (wire package)
// rather than through unsafe pointer casts, per spec.md's redesign note
// on replacing opaque handle casts with explicit offset views.
func (a *Arena) At(offset uint64) []byte {
	if offset >= uint64(len(a.Data)) {
		return nil
	}
	return a.Data[offset:]
}

// Slice returns the len-byte window starting at offset, or nil if it
// would run past the arena.
func (a *Arena) Slice(offset, length uint64) []byte {
	end := offset + length
	if end > uint64(len(a.Data)) || end < offset {
		return nil
	}
	return a.Data[offset:end]
}

// Close unmaps the arena and releases its backing OS object.
func (a *Arena) Close() error {
	if a.closer == nil {
		return nil
	}
	c := a.closer
	a.closer = nil
	return c()
}
