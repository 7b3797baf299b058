// File: wire/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-width, allocation-free encode/decode for IndexEvent and
// DetailEventHeader, mirroring the teacher's EncodeFrameToBufferWithMask /
// DecodeFrameFromBytes pair in protocol/frame_codec.go: callers own the
// destination slice, decoding never copies the payload twice.

package wire

import (
	"encoding/binary"
	"errors"
)

// ErrShortBuffer is returned when the destination or source slice is
// smaller than the record it must hold.
var ErrShortBuffer = errors.New("wire: short buffer")

// IndexEventDetailSeqOffset and DetailHeaderIndexSeqOffset are the byte
// offsets of IndexEvent.DetailSeq and DetailEventHeader.IndexSeq within
// their encoded form, exported so trace.Writer can patch either field
// in place with a targeted WriteAt once the drain scheduler resolves the
// correlation token originally written there (spec.md §4.9).
const (
	IndexEventDetailSeqOffset  = 28
	DetailHeaderIndexSeqOffset = 8
)

// EncodeIndexEvent serializes e into dst[0:IndexEventSize]. dst must be at
// least IndexEventSize bytes.
func EncodeIndexEvent(dst []byte, e *IndexEvent) error {
	if len(dst) < IndexEventSize {
		return ErrShortBuffer
	}
	binary.LittleEndian.PutUint64(dst[0:8], e.TimestampNs)
	binary.LittleEndian.PutUint64(dst[8:16], e.FunctionID)
	binary.LittleEndian.PutUint32(dst[16:20], e.ThreadID)
	binary.LittleEndian.PutUint32(dst[20:24], e.EventKind)
	binary.LittleEndian.PutUint32(dst[24:28], e.CallDepth)
	binary.LittleEndian.PutUint32(dst[28:32], e.DetailSeq)
	return nil
}

// DecodeIndexEvent parses an IndexEvent from src[0:IndexEventSize].
func DecodeIndexEvent(src []byte) (IndexEvent, error) {
	var e IndexEvent
	if len(src) < IndexEventSize {
		return e, ErrShortBuffer
	}
	e.TimestampNs = binary.LittleEndian.Uint64(src[0:8])
	e.FunctionID = binary.LittleEndian.Uint64(src[8:16])
	e.ThreadID = binary.LittleEndian.Uint32(src[16:20])
	e.EventKind = binary.LittleEndian.Uint32(src[20:24])
	e.CallDepth = binary.LittleEndian.Uint32(src[24:28])
	e.DetailSeq = binary.LittleEndian.Uint32(src[28:32])
	return e, nil
}

// EncodeDetailHeader serializes h into dst[0:DetailHeaderSize].
func EncodeDetailHeader(dst []byte, h *DetailEventHeader) error {
	if len(dst) < DetailHeaderSize {
		return ErrShortBuffer
	}
	binary.LittleEndian.PutUint32(dst[0:4], h.TotalLength)
	binary.LittleEndian.PutUint16(dst[4:6], h.EventType)
	binary.LittleEndian.PutUint16(dst[6:8], h.Flags)
	binary.LittleEndian.PutUint32(dst[8:12], h.IndexSeq)
	binary.LittleEndian.PutUint32(dst[12:16], h.ThreadID)
	binary.LittleEndian.PutUint64(dst[16:24], h.Timestamp)
	return nil
}

// DecodeDetailHeader parses a DetailEventHeader from src[0:DetailHeaderSize].
func DecodeDetailHeader(src []byte) (DetailEventHeader, error) {
	var h DetailEventHeader
	if len(src) < DetailHeaderSize {
		return h, ErrShortBuffer
	}
	h.TotalLength = binary.LittleEndian.Uint32(src[0:4])
	h.EventType = binary.LittleEndian.Uint16(src[4:6])
	h.Flags = binary.LittleEndian.Uint16(src[6:8])
	h.IndexSeq = binary.LittleEndian.Uint32(src[8:12])
	h.ThreadID = binary.LittleEndian.Uint32(src[12:16])
	h.Timestamp = binary.LittleEndian.Uint64(src[16:24])
	return h, nil
}

// EncodeDetailRecord serializes a full detail record (header + payload)
// into dst, appending as the teacher's EncodeFrameToBufferWithMask does,
// and returns the resulting slice (may alias dst).
func EncodeDetailRecord(dst []byte, rec *DetailRecord) ([]byte, error) {
	rec.Header.TotalLength = uint32(DetailHeaderSize + len(rec.Payload))
	var hdr [DetailHeaderSize]byte
	if err := EncodeDetailHeader(hdr[:], &rec.Header); err != nil {
		return nil, err
	}
	dst = append(dst[:0], hdr[:]...)
	dst = append(dst, rec.Payload...)
	return dst, nil
}
