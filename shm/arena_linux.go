//go:build linux
// +build linux

// File: shm/arena_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux arena backing: a POSIX shared-memory object under /dev/shm,
// sized with Ftruncate and mapped MAP_SHARED so both the creating
// controller process and the opening agent process observe the same
// pages by name, following the teacher's reactor_linux.go idiom of
// wrapping a raw unix fd behind a small struct with Close.

package shm

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

const shmDir = "/dev/shm"

// CreateUnique allocates a new shared-memory-backed arena of size bytes
// under name, as the controller does for each of the control/index/
// detail regions at session start (spec.md §6: "Creator (controller)
// calls create-unique").
func CreateUnique(role Role, name string, size int, numaNode int) (*Arena, error) {
	path := filepath.Join(shmDir, name)
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		unix.Unlink(path)
		return nil, err
	}
	return mapArena(role, name, path, fd, size, numaNode, true)
}

// OpenUnique maps an existing arena by name, as the agent does after
// resolving the arena names from the control block's directory (spec.md
// §6: "agent calls open-unique").
func OpenUnique(role Role, name string, size int) (*Arena, error) {
	path := filepath.Join(shmDir, name)
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return mapArena(role, name, path, fd, size, -1, false)
}

func mapArena(role Role, name, path string, fd, size, numaNode int, unlinkOnClose bool) (*Arena, error) {
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &Arena{
		Role: role, Name: name, Data: data, NUMANode: numaNode,
		closer: func() error {
			err := unix.Munmap(data)
			_ = unix.Close(fd)
			if unlinkOnClose {
				_ = unix.Unlink(path)
			}
			return err
		},
	}, nil
}
