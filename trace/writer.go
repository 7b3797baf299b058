// File: trace/writer.go
// Package trace implements the per-thread trace writer (C9) of spec.md
// §4.8: an always-on index.atf file plus a lazily-created detail.atf,
// bidirectional index<->detail sequence linking, and header/footer
// finalize.
//
// Grounded on the teacher's internal/transport lazy-file-open style and
// protocol/frame_codec.go's binary layout idiom, adapted from a network
// frame stream to an append-only trace file pair using wire's codec
// functions for the bit-exact record and header/footer layouts.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package trace

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/momentics/ada-trace/wire"
)

// Writer owns one thread's index.atf and (lazily) detail.atf files.
// Sequencing is single-producer: only the drain thread calls these
// methods for a given Writer, so the internal counters need no atomics
// (spec.md §4.9).
type Writer struct {
	dir      string
	threadID uint64

	indexFile *os.File
	indexBuf  *bufio.Writer

	detailFile    *os.File
	detailBuf     *bufio.Writer
	hasDetailFile bool

	indexCount  uint32
	detailCount uint32

	indexBytesWritten  uint64
	detailBytesWritten uint64

	timeStartNs uint64
	timeEndNs   uint64

	// writeFailures counts FileWriteFailed occurrences (spec.md §7):
	// counted, never propagated as a panic, drain continues regardless.
	writeFailures uint64
}

// NewWriter creates thread_<tid>/ under sessionDir and opens index.atf,
// writing a placeholder header (rewritten with final counts at Finalize).
func NewWriter(sessionDir string, threadID uint64) (*Writer, error) {
	dir := filepath.Join(sessionDir, fmt.Sprintf("thread_%d", threadID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(dir, "index.atf"))
	if err != nil {
		return nil, err
	}
	w := &Writer{dir: dir, threadID: threadID, indexFile: f}
	var placeholder [wire.HeaderFooterSize]byte
	if _, err := f.Write(placeholder[:]); err != nil {
		f.Close()
		return nil, err
	}
	w.indexBuf = bufio.NewWriter(f)
	return w, nil
}

// WriteIndex appends one IndexEvent to index.atf, reserving its ordinal
// as idxSeq. Errors are also reflected in writeFailures; the caller
// (drain scheduler) decides whether to keep draining.
func (w *Writer) WriteIndex(e *wire.IndexEvent) (idxSeq uint32, err error) {
	idxSeq = w.indexCount
	var buf [wire.IndexEventSize]byte
	if err = wire.EncodeIndexEvent(buf[:], e); err != nil {
		w.writeFailures++
		return idxSeq, err
	}
	if _, err = w.indexBuf.Write(buf[:]); err != nil {
		w.writeFailures++
		return idxSeq, err
	}
	w.indexCount++
	w.indexBytesWritten += wire.IndexEventSize
	w.touchTime(e.TimestampNs)
	return idxSeq, nil
}

// WriteDetail appends one DetailRecord to detail.atf, lazily creating the
// file on first call. rec.Header.IndexSeq must already carry the
// correlation token assigned by the agent; offset is the record's
// starting byte position in detail.atf, which the caller keeps if it
// later needs to patch IndexSeq in place via PatchDetailIndexSeq.
func (w *Writer) WriteDetail(rec *wire.DetailRecord) (detSeq uint32, offset uint64, err error) {
	if w.detailFile == nil {
		f, ferr := os.Create(filepath.Join(w.dir, "detail.atf"))
		if ferr != nil {
			w.writeFailures++
			return 0, 0, ferr
		}
		w.detailFile = f
		var placeholder [wire.HeaderFooterSize]byte
		if _, ferr = f.Write(placeholder[:]); ferr != nil {
			w.writeFailures++
			return 0, 0, ferr
		}
		w.detailBuf = bufio.NewWriter(f)
		w.hasDetailFile = true
	}
	detSeq = w.detailCount
	offset = wire.HeaderFooterSize + w.detailBytesWritten
	var scratch [wire.DetailHeaderSize]byte
	encoded, eerr := wire.EncodeDetailRecord(scratch[:0], rec)
	if eerr != nil {
		w.writeFailures++
		return detSeq, offset, eerr
	}
	if _, err = w.detailBuf.Write(encoded); err != nil {
		w.writeFailures++
		return detSeq, offset, err
	}
	w.detailCount++
	w.detailBytesWritten += uint64(len(encoded))
	w.touchTime(rec.Header.Timestamp)
	return detSeq, offset, nil
}

// PatchIndexDetailSeq overwrites the DetailSeq field of the index event
// at ordinal idxSeq with the real det_seq, once the drain scheduler has
// resolved the correlation token originally written there. IndexEvent
// records are fixed-width, so idxSeq alone determines the file offset.
// The index buffer is flushed first so a later buffered flush cannot
// clobber this patch with the stale token value.
func (w *Writer) PatchIndexDetailSeq(idxSeq uint32, detSeq uint32) error {
	if err := w.indexBuf.Flush(); err != nil {
		w.writeFailures++
		return err
	}
	offset := int64(wire.HeaderFooterSize) + int64(idxSeq)*wire.IndexEventSize + wire.IndexEventDetailSeqOffset
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], detSeq)
	if _, err := w.indexFile.WriteAt(buf[:], offset); err != nil {
		w.writeFailures++
		return err
	}
	return nil
}

// PatchDetailIndexSeq overwrites the IndexSeq field of the detail header
// at the given file offset (as returned by WriteDetail) with the real
// idx_seq, once resolved. DetailEventHeader records are variable length,
// so the caller must supply the exact offset WriteDetail returned.
func (w *Writer) PatchDetailIndexSeq(offset uint64, idxSeq uint32) error {
	if err := w.detailBuf.Flush(); err != nil {
		w.writeFailures++
		return err
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], idxSeq)
	if _, err := w.detailFile.WriteAt(buf[:], int64(offset)+wire.DetailHeaderIndexSeqOffset); err != nil {
		w.writeFailures++
		return err
	}
	return nil
}

func (w *Writer) touchTime(ts uint64) {
	if w.timeStartNs == 0 || ts < w.timeStartNs {
		w.timeStartNs = ts
	}
	if ts > w.timeEndNs {
		w.timeEndNs = ts
	}
}

// HasDetailFile reports whether any detail event has been written.
func (w *Writer) HasDetailFile() bool { return w.hasDetailFile }

// IndexCount reports the number of IndexEvents written so far.
func (w *Writer) IndexCount() uint32 { return w.indexCount }

// DetailCount reports the number of DetailRecords written so far.
func (w *Writer) DetailCount() uint32 { return w.detailCount }

// WriteFailures reports the number of FileWriteFailed occurrences (spec.md §7).
func (w *Writer) WriteFailures() uint64 { return w.writeFailures }

// Summary reports final per-thread counts after Finalize, the shape the
// shutdown coordinator aggregates into its session-wide report.
type Summary struct {
	ThreadID     uint64
	EventsWritten uint64
	BytesWritten uint64
	WriteFailures uint64
}

// Finalize flushes buffered data, writes footers, rewrites headers with
// the final counts/timestamps, fsyncs, and closes both files. Errors are
// accounted via writeFailures and returned but never panic; a partially
// written file is preserved as-is per spec.md §4.8's "drain continues
// with the next thread" policy.
func (w *Writer) Finalize() (Summary, error) {
	var firstErr error
	record := func(err error) {
		if err != nil {
			w.writeFailures++
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	record(w.finalizeIndex())
	if w.hasDetailFile {
		record(w.finalizeDetail())
	}

	return Summary{
		ThreadID:      w.threadID,
		EventsWritten: uint64(w.indexCount) + uint64(w.detailCount),
		BytesWritten:  w.indexBytesWritten + w.detailBytesWritten,
		WriteFailures: w.writeFailures,
	}, firstErr
}

func (w *Writer) finalizeIndex() error {
	if err := w.indexBuf.Flush(); err != nil {
		return err
	}
	footerOffset := wire.HeaderFooterSize + w.indexBytesWritten
	footer := wire.IndexFileFooter{
		Magic:        wire.IndexFooterMagic,
		EventCount:   w.indexCount,
		TimeStartNs:  w.timeStartNs,
		TimeEndNs:    w.timeEndNs,
		BytesWritten: w.indexBytesWritten,
	}
	var fbuf [wire.HeaderFooterSize]byte
	if err := wire.EncodeIndexFileFooter(fbuf[:], &footer); err != nil {
		return err
	}
	if _, err := w.indexFile.WriteAt(fbuf[:], int64(footerOffset)); err != nil {
		return err
	}

	var flags uint16
	if w.hasDetailFile {
		flags |= wire.FlagHasDetailFile
	}
	header := wire.IndexFileHeader{
		Magic:        wire.IndexHeaderMagic,
		Endian:       0x01,
		Version:      1,
		ClockType:    wire.ClockMonotonicNanos,
		Flags:        flags,
		ThreadID:     uint32(w.threadID),
		EventSize:    wire.IndexEventSize,
		EventCount:   w.indexCount,
		EventsOffset: wire.HeaderFooterSize,
		FooterOffset: uint32(footerOffset),
		TimeStartNs:  w.timeStartNs,
		TimeEndNs:    w.timeEndNs,
	}
	var hbuf [wire.HeaderFooterSize]byte
	if err := wire.EncodeIndexFileHeader(hbuf[:], &header); err != nil {
		return err
	}
	if _, err := w.indexFile.WriteAt(hbuf[:], 0); err != nil {
		return err
	}
	if err := w.indexFile.Sync(); err != nil {
		return err
	}
	return w.indexFile.Close()
}

func (w *Writer) finalizeDetail() error {
	if err := w.detailBuf.Flush(); err != nil {
		return err
	}
	footerOffset := wire.HeaderFooterSize + w.detailBytesWritten
	footer := wire.DetailFileFooter{
		Magic:       wire.DetailFooterMagic,
		EventCount:  w.detailCount,
		BytesLength: w.detailBytesWritten,
		TimeStartNs: w.timeStartNs,
		TimeEndNs:   w.timeEndNs,
	}
	var fbuf [wire.HeaderFooterSize]byte
	if err := wire.EncodeDetailFileFooter(fbuf[:], &footer); err != nil {
		return err
	}
	if _, err := w.detailFile.WriteAt(fbuf[:], int64(footerOffset)); err != nil {
		return err
	}

	var indexSeqEnd uint32
	if w.detailCount > 0 {
		indexSeqEnd = w.detailCount - 1
	}
	header := wire.DetailFileHeader{
		Magic:         wire.DetailHeaderMagic,
		Endian:        0x01,
		Version:       1,
		ThreadID:      uint32(w.threadID),
		EventsOffset:  wire.HeaderFooterSize,
		EventCount:    w.detailCount,
		BytesLength:   w.detailBytesWritten,
		IndexSeqStart: 0,
		IndexSeqEnd:   indexSeqEnd,
	}
	var hbuf [wire.HeaderFooterSize]byte
	if err := wire.EncodeDetailFileHeader(hbuf[:], &header); err != nil {
		return err
	}
	if _, err := w.detailFile.WriteAt(hbuf[:], 0); err != nil {
		return err
	}
	if err := w.detailFile.Sync(); err != nil {
		return err
	}
	return w.detailFile.Close()
}
