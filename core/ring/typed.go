// File: core/ring/typed.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ring

import "github.com/momentics/ada-trace/wire"

// IndexRingSlots is the default slot count for an index lane ring; must be
// a power of two, sized generously to absorb drain scheduling jitter.
const IndexRingSlots = 1 << 16 // 65536 slots * 36 bytes ~= 2.25MiB

// DetailRingSlots is the default slot count for a detail lane ring.
const DetailRingSlots = 1 << 13 // 8192 slots * 796 bytes ~= 6.2MiB

// IndexRing wraps Ring to write and read fixed-width wire.IndexEvent
// records without repeated encode/decode boilerplate at call sites.
type IndexRing struct {
	r   *Ring
	buf [wire.IndexEventSize]byte
}

// NewIndexRing allocates a private index-lane ring with IndexRingSlots
// slots, each slotSize bytes (4-byte length prefix + wire.IndexEventSize).
func NewIndexRing() *IndexRing {
	return &IndexRing{r: NewRing(IndexRingSlots, 4+wire.IndexEventSize)}
}

// AttachIndexRing wraps an existing initialized byte region as an index
// ring, e.g. one mapped from shared memory.
func AttachIndexRing(buf []byte) *IndexRing {
	return &IndexRing{r: Attach(buf)}
}

// Write encodes and writes one IndexEvent; false means the ring was full
// and the event was dropped (OverflowCount incremented).
func (ir *IndexRing) Write(e *wire.IndexEvent) bool {
	if err := wire.EncodeIndexEvent(ir.buf[:], e); err != nil {
		return false
	}
	return ir.r.Write(ir.buf[:])
}

// Read decodes and removes the oldest IndexEvent. ok is false if empty.
func (ir *IndexRing) Read() (wire.IndexEvent, bool) {
	n, ok := ir.r.Read(ir.buf[:])
	if !ok || n < wire.IndexEventSize {
		return wire.IndexEvent{}, false
	}
	e, err := wire.DecodeIndexEvent(ir.buf[:n])
	if err != nil {
		return wire.IndexEvent{}, false
	}
	return e, true
}

// ReadBatch decodes up to max events into out, returning the count read.
func (ir *IndexRing) ReadBatch(out []wire.IndexEvent) int {
	n := 0
	max := len(out)
	ir.r.ReadBatch(max, func(slot []byte) bool {
		e, err := wire.DecodeIndexEvent(slot)
		if err != nil {
			return false
		}
		out[n] = e
		n++
		return true
	})
	return n
}

// DropOldest discards the oldest IndexEvent without decoding it.
func (ir *IndexRing) DropOldest() bool { return ir.r.DropOldest() }

// AvailableRead reports the number of events ready for Read.
func (ir *IndexRing) AvailableRead() int { return ir.r.AvailableRead() }

// AvailableWrite reports the number of free slots for Write.
func (ir *IndexRing) AvailableWrite() int { return ir.r.AvailableWrite() }

// OverflowCount reports the number of dropped-on-write events.
func (ir *IndexRing) OverflowCount() uint64 { return ir.r.OverflowCount() }

// Cap returns the fixed slot capacity.
func (ir *IndexRing) Cap() int { return ir.r.Cap() }

// Raw exposes the underlying byte-oriented ring, e.g. for shm persistence.
func (ir *IndexRing) Raw() *Ring { return ir.r }

// DetailRing wraps Ring to write and read wire.DetailRecord values, each
// bounded to wire.DetailSlotSize-4 bytes of header+payload.
type DetailRing struct {
	r   *Ring
	buf [wire.DetailSlotSize]byte
}

// NewDetailRing allocates a private detail-lane ring with DetailRingSlots
// slots, each sized to hold the largest expected detail record.
func NewDetailRing() *DetailRing {
	return &DetailRing{r: NewRing(DetailRingSlots, 4+wire.DetailSlotSize)}
}

// AttachDetailRing wraps an existing initialized byte region as a detail
// ring, e.g. one mapped from shared memory.
func AttachDetailRing(buf []byte) *DetailRing {
	return &DetailRing{r: Attach(buf)}
}

// Write encodes and writes one DetailRecord; false means the record did
// not fit or the ring was full.
func (dr *DetailRing) Write(rec *wire.DetailRecord) bool {
	encoded, err := wire.EncodeDetailRecord(dr.buf[:0], rec)
	if err != nil {
		return false
	}
	return dr.r.Write(encoded)
}

// Read decodes and removes the oldest DetailRecord. ok is false if empty.
func (dr *DetailRing) Read() (wire.DetailRecord, bool) {
	n, ok := dr.r.Read(dr.buf[:])
	if !ok || n < wire.DetailHeaderSize {
		return wire.DetailRecord{}, false
	}
	hdr, err := wire.DecodeDetailHeader(dr.buf[:wire.DetailHeaderSize])
	if err != nil {
		return wire.DetailRecord{}, false
	}
	payload := make([]byte, n-wire.DetailHeaderSize)
	copy(payload, dr.buf[wire.DetailHeaderSize:n])
	return wire.DetailRecord{Header: hdr, Payload: payload}, true
}

// DropOldest discards the oldest detail record without decoding it, used
// by the ring pool's exhaustion fallback when no free or submitted ring
// can be swapped in. (Pre-roll recycling resets the whole ring instead.)
func (dr *DetailRing) DropOldest() bool { return dr.r.DropOldest() }

// AvailableRead reports the number of records ready for Read.
func (dr *DetailRing) AvailableRead() int { return dr.r.AvailableRead() }

// AvailableWrite reports the number of free slots for Write.
func (dr *DetailRing) AvailableWrite() int { return dr.r.AvailableWrite() }

// OverflowCount reports the number of dropped-on-write records.
func (dr *DetailRing) OverflowCount() uint64 { return dr.r.OverflowCount() }

// Cap returns the fixed slot capacity.
func (dr *DetailRing) Cap() int { return dr.r.Cap() }

// Raw exposes the underlying byte-oriented ring, e.g. for shm persistence.
func (dr *DetailRing) Raw() *Ring { return dr.r }
