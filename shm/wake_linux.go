//go:build linux
// +build linux

// File: shm/wake_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// eventfd-backed wake, polled with unix.Poll rather than a full epoll
// reactor since there is exactly one fd to watch; grounded on
// reactor_linux.go's epoll usage pattern, narrowed to Poll for a
// single-descriptor wait.

package shm

import (
	"encoding/binary"
	"time"

	"golang.org/x/sys/unix"
)

type eventfdWake struct {
	fd int
}

// NewWake creates an eventfd-backed Wake for the drain loop.
func NewWake() (Wake, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	return &eventfdWake{fd: fd}, nil
}

func (w *eventfdWake) Wait(timeout time.Duration) bool {
	fds := []unix.PollFd{{Fd: int32(w.fd), Events: unix.POLLIN}}
	ms := int(timeout / time.Millisecond)
	if ms <= 0 {
		ms = 1
	}
	n, err := unix.Poll(fds, ms)
	if err != nil || n == 0 {
		return false
	}
	var buf [8]byte
	unix.Read(w.fd, buf[:])
	return true
}

func (w *eventfdWake) Signal() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	unix.Write(w.fd, buf[:])
}

func (w *eventfdWake) Close() error { return unix.Close(w.fd) }
