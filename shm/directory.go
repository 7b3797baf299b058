// File: shm/directory.go
// ControlBlock reads and writes the control arena's header and the
// directory of sibling (index, detail) arena descriptors, the structure
// spec.md §4.9 describes as letting "the agent map the sibling arenas
// uniformly" once it has opened just the control arena.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package shm

import (
	"encoding/binary"
	"errors"
)

// dirEntrySize is the encoded size of one DirEntry: role u32, name_len
// u32, name bytes (padded to dirEntryNameCap = 64), size u64.
const dirEntryNameCap = 64
const dirEntrySize = 4 + 4 + dirEntryNameCap + 8

var errDirectoryFull = errors.New("shm: control arena directory full")
var errDirectoryCorrupt = errors.New("shm: control arena directory corrupt")

// ControlBlock is a typed view over a control-role Arena's bytes.
type ControlBlock struct {
	arena    *Arena
	capacity int
}

// NewControlBlock wraps arena as a control block good for up to capacity
// directory entries, laid out immediately after ControlHeaderSize.
func NewControlBlock(arena *Arena, capacity int) *ControlBlock {
	return &ControlBlock{arena: arena, capacity: capacity}
}

// Init writes the magic/version/numa_node header and zeroes the
// directory, called once by the creating controller.
func (c *ControlBlock) Init() error {
	buf := c.arena.Slice(0, ControlHeaderSize)
	if buf == nil {
		return errDirectoryCorrupt
	}
	binary.LittleEndian.PutUint32(buf[0:4], ControlMagic)
	binary.LittleEndian.PutUint32(buf[4:8], ControlVersion)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(int32(c.arena.NUMANode)))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(c.capacity))
	c.setLen(0)
	if dir := c.arena.Slice(ControlHeaderSize, uint64(c.capacity*dirEntrySize)); dir != nil {
		for i := range dir {
			dir[i] = 0
		}
	}
	return nil
}

// Validate checks the magic and version written by Init, the mismatch
// detection spec.md §6 requires before an agent trusts the arena.
func (c *ControlBlock) Validate() error {
	buf := c.arena.Slice(0, ControlHeaderSize)
	if buf == nil {
		return errDirectoryCorrupt
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != ControlMagic {
		return errDirectoryCorrupt
	}
	if binary.LittleEndian.Uint32(buf[4:8]) != ControlVersion {
		return errDirectoryCorrupt
	}
	return nil
}

// NUMANode reads back the NUMA hint the creator recorded.
func (c *ControlBlock) NUMANode() int {
	buf := c.arena.Slice(8, 4)
	if buf == nil {
		return -1
	}
	return int(int32(binary.LittleEndian.Uint32(buf)))
}

func (c *ControlBlock) slotOffset(i int) uint64 {
	return uint64(ControlHeaderSize + i*dirEntrySize)
}

// AddEntry appends a sibling arena descriptor to the directory. Returns
// errDirectoryFull past capacity.
func (c *ControlBlock) AddEntry(e DirEntry) error {
	n := c.Len()
	if n >= c.capacity {
		return errDirectoryFull
	}
	buf := c.arena.Slice(c.slotOffset(n), dirEntrySize)
	if buf == nil {
		return errDirectoryCorrupt
	}
	binary.LittleEndian.PutUint32(buf[0:4], uint32(e.Role)+1) // +1 so zero means "empty slot"
	nameBytes := []byte(e.Name)
	if len(nameBytes) > dirEntryNameCap {
		nameBytes = nameBytes[:dirEntryNameCap]
	}
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(nameBytes)))
	copy(buf[8:8+dirEntryNameCap], nameBytes)
	binary.LittleEndian.PutUint64(buf[8+dirEntryNameCap:8+dirEntryNameCap+8], e.Size)
	c.setLen(n + 1)
	return nil
}

// Len reports how many directory entries have been written.
func (c *ControlBlock) Len() int {
	buf := c.arena.Slice(16, 4)
	if buf == nil {
		return 0
	}
	return int(binary.LittleEndian.Uint32(buf))
}

func (c *ControlBlock) setLen(n int) {
	if buf := c.arena.Slice(16, 4); buf != nil {
		binary.LittleEndian.PutUint32(buf, uint32(n))
	}
}

// Entries reads back every directory entry written so far, letting the
// agent map the sibling index/detail arenas uniformly from just the
// control arena (spec.md §4.9).
func (c *ControlBlock) Entries() ([]DirEntry, error) {
	n := c.Len()
	out := make([]DirEntry, 0, n)
	for i := 0; i < n; i++ {
		buf := c.arena.Slice(c.slotOffset(i), dirEntrySize)
		if buf == nil {
			return nil, errDirectoryCorrupt
		}
		roleRaw := binary.LittleEndian.Uint32(buf[0:4])
		if roleRaw == 0 {
			continue
		}
		nameLen := binary.LittleEndian.Uint32(buf[4:8])
		if nameLen > dirEntryNameCap {
			return nil, errDirectoryCorrupt
		}
		name := string(buf[8 : 8+nameLen])
		size := binary.LittleEndian.Uint64(buf[8+dirEntryNameCap : 8+dirEntryNameCap+8])
		out = append(out, DirEntry{Role: Role(roleRaw - 1), Name: name, Size: size})
	}
	return out, nil
}
