//go:build windows
// +build windows

// File: shm/arena_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows arena backing: a named file-mapping object over the paging
// file, mapped with MapViewOfFile, mirroring pool/bufferpool_windows_numa.go's
// style of wrapping raw kernel32 handles behind small typed helpers.

package shm

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

const fileMapAllAccess = windows.FILE_MAP_READ | windows.FILE_MAP_WRITE

// CreateUnique allocates a new paging-file-backed arena of size bytes
// under name (spec.md §6: "Creator (controller) calls create-unique").
func CreateUnique(role Role, name string, size int, numaNode int) (*Arena, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, 0, uint32(size), namePtr)
	if err != nil {
		return nil, err
	}
	addr, err := windows.MapViewOfFile(h, fileMapAllAccess, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(h)
		return nil, err
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &Arena{
		Role: role, Name: name, Data: data, NUMANode: numaNode,
		closer: func() error {
			err := windows.UnmapViewOfFile(addr)
			_ = windows.CloseHandle(h)
			return err
		},
	}, nil
}

// openFileMappingProc is resolved lazily: x/sys/windows does not carry a
// typed OpenFileMapping wrapper, so this follows pool/numa_windows.go's
// precedent of calling the raw kernel32 export through NewLazySystemDLL
// rather than guessing at an API surface that may not exist.
var openFileMappingProc = windows.NewLazySystemDLL("kernel32.dll").NewProc("OpenFileMappingW")

func openFileMapping(access uint32, inherit bool, name *uint16) (windows.Handle, error) {
	var inheritFlag uintptr
	if inherit {
		inheritFlag = 1
	}
	h, _, err := openFileMappingProc.Call(uintptr(access), inheritFlag, uintptr(unsafe.Pointer(name)))
	if h == 0 {
		return 0, err
	}
	return windows.Handle(h), nil
}

// OpenUnique opens an existing named file-mapping object (spec.md §6:
// "agent calls open-unique").
func OpenUnique(role Role, name string, size int) (*Arena, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	h, err := openFileMapping(fileMapAllAccess, false, namePtr)
	if err != nil {
		return nil, err
	}
	addr, err := windows.MapViewOfFile(h, fileMapAllAccess, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(h)
		return nil, err
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &Arena{
		Role: role, Name: name, Data: data, NUMANode: -1,
		closer: func() error {
			err := windows.UnmapViewOfFile(addr)
			_ = windows.CloseHandle(h)
			return err
		},
	}, nil
}
