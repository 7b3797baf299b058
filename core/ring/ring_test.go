// File: core/ring/ring_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ring

import (
	"testing"

	"github.com/momentics/ada-trace/wire"
)

func TestRingWriteReadRoundTrip(t *testing.T) {
	r := NewRing(8, 4+16)
	if r.Cap() != 8 {
		t.Fatalf("expected capacity 8, got %d", r.Cap())
	}
	payload := []byte("hello world12345")[:16]
	if !r.Write(payload) {
		t.Fatalf("write should have succeeded on empty ring")
	}
	if got := r.AvailableRead(); got != 1 {
		t.Fatalf("expected 1 available to read, got %d", got)
	}
	dst := make([]byte, 16)
	n, ok := r.Read(dst)
	if !ok || n != 16 {
		t.Fatalf("read failed: ok=%v n=%d", ok, n)
	}
	if string(dst) != string(payload) {
		t.Fatalf("payload mismatch: got %q want %q", dst, payload)
	}
}

func TestRingFullReturnsFalseAndCountsOverflow(t *testing.T) {
	r := NewRing(2, 4+4)
	if !r.Write([]byte{1, 2, 3, 4}) {
		t.Fatalf("first write should succeed")
	}
	if r.Write([]byte{5, 6, 7, 8}) {
		t.Fatalf("second write should fail: capacity 2 holds only 1 usable slot")
	}
	if r.OverflowCount() != 1 {
		t.Fatalf("expected overflow count 1, got %d", r.OverflowCount())
	}
}

func TestRingDropOldest(t *testing.T) {
	r := NewRing(4, 4+4)
	r.Write([]byte{1, 0, 0, 0})
	r.Write([]byte{2, 0, 0, 0})
	if !r.DropOldest() {
		t.Fatalf("drop should succeed on non-empty ring")
	}
	dst := make([]byte, 4)
	n, ok := r.Read(dst)
	if !ok || dst[0] != 2 {
		t.Fatalf("expected second write to survive drop, got %v ok=%v n=%d", dst, ok, n)
	}
}

func TestRingAttachSharesState(t *testing.T) {
	r := NewRing(4, 4+8)
	r.Write([]byte("abcdefgh"))
	attached := Attach(r.Bytes())
	if attached.Cap() != r.Cap() {
		t.Fatalf("attached ring capacity mismatch")
	}
	dst := make([]byte, 8)
	n, ok := attached.Read(dst)
	if !ok || string(dst[:n]) != "abcdefgh" {
		t.Fatalf("attached ring did not see producer's write: %q", dst[:n])
	}
}

func TestIndexRingRoundTrip(t *testing.T) {
	ir := NewIndexRing()
	e := wire.IndexEvent{
		TimestampNs: 42,
		FunctionID:  wire.FunctionID(1, 2),
		ThreadID:    7,
		EventKind:   wire.EventCall,
		DetailSeq:   wire.NoDetail,
	}
	if !ir.Write(&e) {
		t.Fatalf("index ring write failed")
	}
	got, ok := ir.Read()
	if !ok || got != e {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, e)
	}
}

func TestIndexRingOverflowDrop(t *testing.T) {
	ir := NewIndexRing()
	var last wire.IndexEvent
	for i := 0; i < IndexRingSlots+10; i++ {
		last = wire.IndexEvent{TimestampNs: uint64(i), DetailSeq: wire.NoDetail}
		ir.Write(&last)
	}
	if ir.OverflowCount() == 0 {
		t.Fatalf("expected overflow after exceeding capacity")
	}
}

func TestDetailRingRoundTrip(t *testing.T) {
	dr := NewDetailRing()
	rec := wire.DetailRecord{
		Header: wire.DetailEventHeader{
			EventType: wire.DetailFunctionCall,
			IndexSeq:  3,
			ThreadID:  1,
			Timestamp: 99,
		},
		Payload: []byte{10, 20, 30},
	}
	if !dr.Write(&rec) {
		t.Fatalf("detail ring write failed")
	}
	got, ok := dr.Read()
	if !ok {
		t.Fatalf("detail ring read failed")
	}
	if got.Header.IndexSeq != 3 || len(got.Payload) != 3 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDetailRingDropOldestPreRoll(t *testing.T) {
	dr := NewDetailRing()
	for i := 0; i < 5; i++ {
		rec := wire.DetailRecord{Header: wire.DetailEventHeader{IndexSeq: uint32(i)}}
		dr.Write(&rec)
	}
	for dr.AvailableRead() > 1 {
		if !dr.DropOldest() {
			t.Fatalf("drop should succeed while entries remain")
		}
	}
	got, ok := dr.Read()
	if !ok || got.Header.IndexSeq != 4 {
		t.Fatalf("expected last-written record to survive recycle-in-place, got %+v", got)
	}
}
