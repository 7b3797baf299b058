// File: wire/fileformat.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bit-exact 64-byte header/footer layout for index.atf and detail.atf, per
// spec.md §6. Reserved bytes are zeroed and never read back.

package wire

import "encoding/binary"

// HeaderFooterSize is the fixed size of every file header and footer.
const HeaderFooterSize = 64

// Magic values, stored as the raw 4 ASCII bytes named in spec.md §6.
var (
	IndexHeaderMagic  = [4]byte{'A', 'T', 'I', '2'}
	IndexFooterMagic  = [4]byte{'2', 'I', 'T', 'A'}
	DetailHeaderMagic = [4]byte{'A', 'T', 'D', '2'}
	DetailFooterMagic = [4]byte{'2', 'D', 'T', 'A'}
)

// Clock types (IndexFileHeader.ClockType).
const ClockMonotonicNanos uint8 = 1

// Header flag bits.
const FlagHasDetailFile uint16 = 1 << 0

// IndexFileHeader is the 64-byte header of thread_<tid>/index.atf.
type IndexFileHeader struct {
	Magic        [4]byte
	Endian       uint8
	Version      uint8
	Arch         uint8
	OS           uint8
	Flags        uint16
	ThreadID     uint32
	ClockType    uint8
	EventSize    uint32
	EventCount   uint32
	EventsOffset uint32
	FooterOffset uint32
	TimeStartNs  uint64
	TimeEndNs    uint64
}

// EncodeIndexFileHeader serializes h into dst[0:HeaderFooterSize].
func EncodeIndexFileHeader(dst []byte, h *IndexFileHeader) error {
	if len(dst) < HeaderFooterSize {
		return ErrShortBuffer
	}
	for i := range dst[:HeaderFooterSize] {
		dst[i] = 0
	}
	copy(dst[0:4], h.Magic[:])
	dst[4] = h.Endian
	dst[5] = h.Version
	dst[6] = h.Arch
	dst[7] = h.OS
	binary.LittleEndian.PutUint16(dst[8:10], h.Flags)
	binary.LittleEndian.PutUint32(dst[10:14], h.ThreadID)
	dst[14] = h.ClockType
	// dst[15:22] reserved[7]
	binary.LittleEndian.PutUint32(dst[22:26], h.EventSize)
	binary.LittleEndian.PutUint32(dst[26:30], h.EventCount)
	binary.LittleEndian.PutUint32(dst[30:34], h.EventsOffset)
	binary.LittleEndian.PutUint32(dst[34:38], h.FooterOffset)
	binary.LittleEndian.PutUint64(dst[38:46], h.TimeStartNs)
	binary.LittleEndian.PutUint64(dst[46:54], h.TimeEndNs)
	return nil
}

// DecodeIndexFileHeader parses an IndexFileHeader from src.
func DecodeIndexFileHeader(src []byte) (IndexFileHeader, error) {
	var h IndexFileHeader
	if len(src) < HeaderFooterSize {
		return h, ErrShortBuffer
	}
	copy(h.Magic[:], src[0:4])
	h.Endian = src[4]
	h.Version = src[5]
	h.Arch = src[6]
	h.OS = src[7]
	h.Flags = binary.LittleEndian.Uint16(src[8:10])
	h.ThreadID = binary.LittleEndian.Uint32(src[10:14])
	h.ClockType = src[14]
	h.EventSize = binary.LittleEndian.Uint32(src[22:26])
	h.EventCount = binary.LittleEndian.Uint32(src[26:30])
	h.EventsOffset = binary.LittleEndian.Uint32(src[30:34])
	h.FooterOffset = binary.LittleEndian.Uint32(src[34:38])
	h.TimeStartNs = binary.LittleEndian.Uint64(src[38:46])
	h.TimeEndNs = binary.LittleEndian.Uint64(src[46:54])
	return h, nil
}

// IndexFileFooter is the 64-byte footer of thread_<tid>/index.atf.
type IndexFileFooter struct {
	Magic        [4]byte
	Checksum     uint32
	EventCount   uint32
	TimeStartNs  uint64
	TimeEndNs    uint64
	BytesWritten uint64
}

// EncodeIndexFileFooter serializes f into dst[0:HeaderFooterSize].
func EncodeIndexFileFooter(dst []byte, f *IndexFileFooter) error {
	if len(dst) < HeaderFooterSize {
		return ErrShortBuffer
	}
	for i := range dst[:HeaderFooterSize] {
		dst[i] = 0
	}
	copy(dst[0:4], f.Magic[:])
	binary.LittleEndian.PutUint32(dst[4:8], f.Checksum)
	binary.LittleEndian.PutUint32(dst[8:12], f.EventCount)
	binary.LittleEndian.PutUint64(dst[12:20], f.TimeStartNs)
	binary.LittleEndian.PutUint64(dst[20:28], f.TimeEndNs)
	binary.LittleEndian.PutUint64(dst[28:36], f.BytesWritten)
	return nil
}

// DecodeIndexFileFooter parses an IndexFileFooter from src.
func DecodeIndexFileFooter(src []byte) (IndexFileFooter, error) {
	var f IndexFileFooter
	if len(src) < HeaderFooterSize {
		return f, ErrShortBuffer
	}
	copy(f.Magic[:], src[0:4])
	f.Checksum = binary.LittleEndian.Uint32(src[4:8])
	f.EventCount = binary.LittleEndian.Uint32(src[8:12])
	f.TimeStartNs = binary.LittleEndian.Uint64(src[12:20])
	f.TimeEndNs = binary.LittleEndian.Uint64(src[20:28])
	f.BytesWritten = binary.LittleEndian.Uint64(src[28:36])
	return f, nil
}

// DetailFileHeader is the 64-byte header of thread_<tid>/detail.atf.
type DetailFileHeader struct {
	Magic         [4]byte
	Endian        uint8
	Version       uint8
	Arch          uint8
	OS            uint8
	Flags         uint16
	ThreadID      uint32
	EventsOffset  uint32
	EventCount    uint32
	BytesLength   uint64
	IndexSeqStart uint32
	IndexSeqEnd   uint32
}

// EncodeDetailFileHeader serializes h into dst[0:HeaderFooterSize].
func EncodeDetailFileHeader(dst []byte, h *DetailFileHeader) error {
	if len(dst) < HeaderFooterSize {
		return ErrShortBuffer
	}
	for i := range dst[:HeaderFooterSize] {
		dst[i] = 0
	}
	copy(dst[0:4], h.Magic[:])
	dst[4] = h.Endian
	dst[5] = h.Version
	dst[6] = h.Arch
	dst[7] = h.OS
	binary.LittleEndian.PutUint16(dst[8:10], h.Flags)
	binary.LittleEndian.PutUint32(dst[10:14], h.ThreadID)
	binary.LittleEndian.PutUint32(dst[14:18], h.EventsOffset)
	binary.LittleEndian.PutUint32(dst[18:22], h.EventCount)
	binary.LittleEndian.PutUint64(dst[22:30], h.BytesLength)
	binary.LittleEndian.PutUint32(dst[30:34], h.IndexSeqStart)
	binary.LittleEndian.PutUint32(dst[34:38], h.IndexSeqEnd)
	return nil
}

// DecodeDetailFileHeader parses a DetailFileHeader from src.
func DecodeDetailFileHeader(src []byte) (DetailFileHeader, error) {
	var h DetailFileHeader
	if len(src) < HeaderFooterSize {
		return h, ErrShortBuffer
	}
	copy(h.Magic[:], src[0:4])
	h.Endian = src[4]
	h.Version = src[5]
	h.Arch = src[6]
	h.OS = src[7]
	h.Flags = binary.LittleEndian.Uint16(src[8:10])
	h.ThreadID = binary.LittleEndian.Uint32(src[10:14])
	h.EventsOffset = binary.LittleEndian.Uint32(src[14:18])
	h.EventCount = binary.LittleEndian.Uint32(src[18:22])
	h.BytesLength = binary.LittleEndian.Uint64(src[22:30])
	h.IndexSeqStart = binary.LittleEndian.Uint32(src[30:34])
	h.IndexSeqEnd = binary.LittleEndian.Uint32(src[34:38])
	return h, nil
}

// DetailFileFooter is the 64-byte footer of thread_<tid>/detail.atf.
type DetailFileFooter struct {
	Magic       [4]byte
	Checksum    uint32
	EventCount  uint32
	BytesLength uint64
	TimeStartNs uint64
	TimeEndNs   uint64
}

// EncodeDetailFileFooter serializes f into dst[0:HeaderFooterSize].
func EncodeDetailFileFooter(dst []byte, f *DetailFileFooter) error {
	if len(dst) < HeaderFooterSize {
		return ErrShortBuffer
	}
	for i := range dst[:HeaderFooterSize] {
		dst[i] = 0
	}
	copy(dst[0:4], f.Magic[:])
	binary.LittleEndian.PutUint32(dst[4:8], f.Checksum)
	binary.LittleEndian.PutUint32(dst[8:12], f.EventCount)
	binary.LittleEndian.PutUint64(dst[12:20], f.BytesLength)
	binary.LittleEndian.PutUint64(dst[20:28], f.TimeStartNs)
	binary.LittleEndian.PutUint64(dst[28:36], f.TimeEndNs)
	return nil
}

// DecodeDetailFileFooter parses a DetailFileFooter from src.
func DecodeDetailFileFooter(src []byte) (DetailFileFooter, error) {
	var f DetailFileFooter
	if len(src) < HeaderFooterSize {
		return f, ErrShortBuffer
	}
	copy(f.Magic[:], src[0:4])
	f.Checksum = binary.LittleEndian.Uint32(src[4:8])
	f.EventCount = binary.LittleEndian.Uint32(src[8:12])
	f.BytesLength = binary.LittleEndian.Uint64(src[12:20])
	f.TimeStartNs = binary.LittleEndian.Uint64(src[20:28])
	f.TimeEndNs = binary.LittleEndian.Uint64(src[28:36])
	return f, nil
}
