// Package wal implements a segmented, buffered write-ahead log:
// append-only segment files capped at a configurable size, a buffered
// writer with an explicit flush-for-durability path, and directory-wide
// replay for crash recovery.
package wal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/bobboyms/dirtxncore/pkg/direrrors"
	"github.com/bobboyms/dirtxncore/pkg/txnmetrics"
)

var segmentNameRE = regexp.MustCompile(`^log_(\d+)\.log$`)

func segmentPath(dir string, seq int) string {
	return filepath.Join(dir, fmt.Sprintf("log_%d.log", seq))
}

// listSegments returns the seq numbers of all segment files in dir, sorted
// ascending. The active segment is always the highest.
func listSegments(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var segs []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := segmentNameRE.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		seq, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		segs = append(segs, seq)
	}
	sort.Ints(segs)
	return segs, nil
}

// Writer appends records to the active segment, rolling over to a new
// segment when the active one reaches Options.SegmentSize.
type Writer struct {
	mu      sync.Mutex
	dir     string
	opts    Options
	metrics *txnmetrics.Metrics

	file *os.File
	bufw *bufio.Writer

	seq           int
	segmentStart  uint64 // LSN at which the current segment begins
	segmentOffset int64  // bytes (flushed or buffered) written into current segment

	closed bool
}

// Open discovers existing segments in opts.Dir, replays them, and returns
// a Writer positioned to append immediately after the last valid record,
// dropping any torn tail left by a prior crash. The ReplayResult's Records
// let the caller reconstruct transaction and snapshot state.
func Open(opts Options, metrics *txnmetrics.Metrics) (*Writer, ReplayResult, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, ReplayResult{}, direrrors.NewIoError("mkdir", err)
	}

	result, err := Replay(opts.Dir)
	if err != nil {
		return nil, ReplayResult{}, err
	}

	w, err := openForAppend(opts, metrics, result.ResumeSeq, result.ResumeSegmentStart, result.ResumeOffset)
	if err != nil {
		return nil, ReplayResult{}, err
	}
	return w, result, nil
}

func openForAppend(opts Options, metrics *txnmetrics.Metrics, seq int, segmentStart uint64, validOffset int64) (*Writer, error) {
	path := segmentPath(opts.Dir, seq)

	if err := os.Truncate(path, validOffset); err != nil && !os.IsNotExist(err) {
		return nil, direrrors.NewIoError("truncate segment", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, direrrors.NewIoError("open segment", err)
	}

	return &Writer{
		dir:           opts.Dir,
		opts:          opts,
		metrics:       metrics,
		file:          f,
		bufw:          bufio.NewWriterSize(f, opts.BufferSize),
		seq:           seq,
		segmentStart:  segmentStart,
		segmentOffset: validOffset,
	}, nil
}

// AppendBegin writes a BEGIN record and returns its LSN.
func (w *Writer) AppendBegin(txnID, startSnapshot uint64) (uint64, error) {
	return w.appendRecord(Record{Kind: KindBegin, TxnID: txnID, StartSnapshot: startSnapshot})
}

// AppendCommit writes a COMMIT record and returns its LSN.
func (w *Writer) AppendCommit(txnID, commitSnapshot uint64) (uint64, error) {
	return w.appendRecord(Record{Kind: KindCommit, TxnID: txnID, CommitSnapshot: commitSnapshot})
}

// AppendAbort writes an ABORT record and returns its LSN.
func (w *Writer) AppendAbort(txnID uint64) (uint64, error) {
	return w.appendRecord(Record{Kind: KindAbort, TxnID: txnID})
}

// AppendUserData writes a USER_DATA record carrying the caller's opaque
// bytes and returns its LSN.
func (w *Writer) AppendUserData(txnID uint64, data []byte) (uint64, error) {
	return w.appendRecord(Record{Kind: KindUserData, TxnID: txnID, Data: data})
}

func (w *Writer) appendRecord(rec Record) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, direrrors.NewIoError("append", fmt.Errorf("writer is closed"))
	}

	payload := encodePayload(rec)
	recordSize := int64(headerSize) + int64(len(payload)) + int64(crcSize)

	if w.segmentOffset > 0 && w.segmentOffset+recordSize > w.opts.SegmentSize {
		if err := w.rolloverLocked(); err != nil {
			return 0, err
		}
	}

	lsn := w.segmentStart + uint64(w.segmentOffset)

	buf := make([]byte, recordSize)
	encodeHeader(buf[:headerSize], uint32(len(payload)), lsn, rec.Kind)
	copy(buf[headerSize:headerSize+len(payload)], payload)
	crc := checksum(buf[:headerSize+len(payload)])
	binary.BigEndian.PutUint32(buf[headerSize+len(payload):], crc)

	n, err := w.bufw.Write(buf)
	if err != nil {
		return 0, direrrors.NewIoError("write", err)
	}
	w.segmentOffset += int64(n)
	if w.metrics != nil {
		w.metrics.WALBytesWritten.Add(float64(n))
	}

	if w.bufw.Buffered() >= w.opts.BufferSize {
		if err := w.flushLocked(); err != nil {
			return 0, err
		}
	}

	return lsn, nil
}

// Flush flushes the in-memory buffer to the OS and fsyncs the active
// segment file. A commit call must not return until this has completed
// for the commit record.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if err := w.bufw.Flush(); err != nil {
		return direrrors.NewIoError("flush", err)
	}
	if err := w.file.Sync(); err != nil {
		return direrrors.NewIoError("fsync", err)
	}
	if w.metrics != nil {
		w.metrics.WALFlushes.Inc()
	}
	return nil
}

// rolloverLocked flushes and fsyncs the current segment, closes it, and
// opens the next one. Called with w.mu held.
func (w *Writer) rolloverLocked() error {
	if err := w.flushLocked(); err != nil {
		return err
	}
	sealedPath := w.file.Name()
	if err := w.file.Close(); err != nil {
		return direrrors.NewIoError("close segment", err)
	}
	if w.opts.Archive {
		go archiveSegment(sealedPath)
	}

	w.segmentStart += uint64(w.segmentOffset)
	w.seq++
	w.segmentOffset = 0

	f, err := os.OpenFile(segmentPath(w.dir, w.seq), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return direrrors.NewIoError("open segment", err)
	}
	w.file = f
	w.bufw = bufio.NewWriterSize(f, w.opts.BufferSize)
	if w.metrics != nil {
		w.metrics.WALRollovers.Inc()
	}
	return nil
}

// Close flushes, fsyncs, and closes the active segment.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.flushLocked(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// CurrentSeq reports the active segment's sequence number (for tests).
func (w *Writer) CurrentSeq() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq
}
