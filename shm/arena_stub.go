//go:build !linux && !windows
// +build !linux,!windows

// File: shm/arena_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package shm

// CreateUnique is unsupported on this platform and returns
// errUnsupported.
func CreateUnique(role Role, name string, size int, numaNode int) (*Arena, error) {
	return nil, errUnsupported
}

// OpenUnique is unsupported on this platform.
func OpenUnique(role Role, name string, size int) (*Arena, error) {
	return nil, errUnsupported
}
