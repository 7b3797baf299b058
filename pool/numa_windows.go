//go:build windows
// +build windows

// File: pool/numa_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows NUMA allocator backed by the golang.org/x/sys/windows-wrapped
// VirtualAllocExNuma/VirtualFree pair in bufferpool_windows_numa.go, rather
// than ad-hoc syscall.NewLazyDLL calls duplicating that binding.

package pool

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"
)

// windowsNUMAAllocator is a NUMA allocator implementation for Windows.
type windowsNUMAAllocator struct {
	proc windows.Handle
}

func newWindowsNUMAAllocator() NUMAAllocator {
	proc, err := windows.GetCurrentProcess()
	if err != nil {
		return &windowsNUMAAllocator{}
	}
	return &windowsNUMAAllocator{proc: proc}
}

func (w *windowsNUMAAllocator) Alloc(size int, node int) ([]byte, error) {
	addr, err := virtualAllocExNuma(w.proc, size, uint32(node))
	if err != nil {
		return nil, errors.New("windows NUMA VirtualAllocExNuma failed: " + err.Error())
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func (w *windowsNUMAAllocator) Free(buf []byte) {
	if len(buf) == 0 {
		return
	}
	_ = virtualFreeNuma(uintptr(unsafe.Pointer(&buf[0])))
}

func (w *windowsNUMAAllocator) Nodes() (int, error) {
	var highest uint32
	proc := windows.NewLazySystemDLL("kernel32.dll").NewProc("GetNumaHighestNodeNumber")
	ret, _, _ := proc.Call(uintptr(unsafe.Pointer(&highest)))
	if ret == 0 {
		return 1, nil
	}
	return int(highest) + 1, nil
}
