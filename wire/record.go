// File: wire/record.go
// Package wire implements the bit-exact on-the-wire and on-disk layout of
// trace records, adapted from the teacher's zero-copy WebSocket frame codec
// (protocol/frame_codec.go) to a fixed-width, little-endian event format.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package wire

// Event kinds (IndexEvent.EventKind).
const (
	EventCall      uint32 = 1
	EventReturn    uint32 = 2
	EventException uint32 = 3
)

// Detail record types (DetailEventHeader.EventType).
const (
	DetailFunctionCall   uint16 = 3
	DetailFunctionReturn uint16 = 4
)

// NoDetail is the sentinel stored in IndexEvent.DetailSeq when no detail
// event was reserved for a given index event.
const NoDetail uint32 = 0xFFFFFFFF

// IndexEventSize is the fixed, bit-exact size of one IndexEvent record.
const IndexEventSize = 32

// DetailHeaderSize is the fixed, bit-exact size of one DetailEventHeader,
// excluding its variable-length payload.
const DetailHeaderSize = 24

// MaxStackWindow is the largest shallow stack snapshot a detail event may
// carry, per spec.md §4.4.
const MaxStackWindow = 512

// DefaultStackWindow is the default shallow stack snapshot size.
const DefaultStackWindow = 128

// DetailSlotSize is the per-slot byte budget the detail lane's ring
// reserves for one DetailEventHeader plus its ABI register payload and
// worst-case stack window, rounded up past DetailHeaderSize+MaxStackWindow
// to leave room for argument/return register capture (spec.md §4.4).
const DetailSlotSize = DetailHeaderSize + MaxStackWindow + 256

// IndexEvent is the fixed 32-byte record written to every thread's
// index.atf file, one per hook invocation.
//
// Field layout (little-endian), offsets documented in wire/codec.go:
//
//	0  timestamp_ns u64
//	8  function_id  u64  (upper32 = module id, lower32 = symbol ordinal)
//	16 thread_id    u32
//	20 event_kind   u32
//	24 call_depth   u32
//	28 detail_seq   u32  (NoDetail sentinel = no paired detail event)
type IndexEvent struct {
	TimestampNs uint64
	FunctionID  uint64
	ThreadID    uint32
	EventKind   uint32
	CallDepth   uint32
	DetailSeq   uint32
}

// HasDetail reports whether this index event has a paired detail record.
func (e IndexEvent) HasDetail() bool { return e.DetailSeq != NoDetail }

// ModuleID extracts the upper 32 bits of FunctionID.
func (e IndexEvent) ModuleID() uint32 { return uint32(e.FunctionID >> 32) }

// SymbolOrdinal extracts the lower 32 bits of FunctionID.
func (e IndexEvent) SymbolOrdinal() uint32 { return uint32(e.FunctionID) }

// FunctionID packs a module id and a per-module symbol ordinal into the
// stable 64-bit identifier used by IndexEvent.FunctionID.
func FunctionID(moduleID, symbolOrdinal uint32) uint64 {
	return uint64(moduleID)<<32 | uint64(symbolOrdinal)
}

// DetailEventHeader is the fixed 24-byte header prefixing every variable
// length record in a thread's detail.atf file.
//
//	0  total_length u32  (header + payload)
//	4  event_type   u16
//	6  flags        u16
//	8  index_seq    u32  (backward link to the owning IndexEvent ordinal)
//	12 thread_id    u32
//	16 timestamp    u64
type DetailEventHeader struct {
	TotalLength uint32
	EventType   uint16
	Flags       uint16
	IndexSeq    uint32
	ThreadID    uint32
	Timestamp   uint64
}

// DetailRecord is a decoded detail event: header plus its payload (ABI
// argument/return registers and an optional shallow stack window).
type DetailRecord struct {
	Header  DetailEventHeader
	Payload []byte
}
