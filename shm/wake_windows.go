//go:build windows
// +build windows

// File: shm/wake_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows wake: an auto-reset event object, waited on with
// WaitForSingleObject, mirroring reactor_windows.go's IOCP-based wait
// style narrowed to a single synchronization handle rather than a
// completion port fan-in.

package shm

import (
	"time"

	"golang.org/x/sys/windows"
)

type eventWake struct {
	handle windows.Handle
}

// NewWake creates an auto-reset event-backed Wake for the drain loop.
func NewWake() (Wake, error) {
	h, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		return nil, err
	}
	return &eventWake{handle: h}, nil
}

func (w *eventWake) Wait(timeout time.Duration) bool {
	ms := uint32(timeout / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	ret, err := windows.WaitForSingleObject(w.handle, ms)
	return err == nil && ret == windows.WAIT_OBJECT_0
}

func (w *eventWake) Signal() {
	_ = windows.SetEvent(w.handle)
}

func (w *eventWake) Close() error { return windows.CloseHandle(w.handle) }
