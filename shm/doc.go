// Package shm implements the shared-memory directory (C10) of spec.md
// §4.9 and §6: named control/index/detail arenas mapped by both the
// controller and the agent, plus the eventfd/event-object-backed idle/shutdown
// wake primitive of spec.md §5.
package shm
