package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bobboyms/dirtxncore/pkg/direrrors"
)

// errTruncated marks a record that stopped mid-header/mid-payload/mid-crc:
// the expected shape of a torn write left by a crash mid-append.
var errTruncated = errors.New("truncated record")

// errCorrupt marks a record that read in full but failed CRC or payload
// validation: real corruption, as opposed to an expected torn tail.
var errCorrupt = errors.New("corrupt record")

const maxPayloadLen = 64 * 1024 * 1024

// readRecord reads one record from r. It returns io.EOF when r is exactly
// at a record boundary with no more data (the clean end of a segment),
// errTruncated/errCorrupt when a partial or invalid record is found, or the
// decoded Record and its total on-disk size otherwise.
func readRecord(r io.Reader) (Record, int64, error) {
	headerBuf := make([]byte, headerSize)
	n, err := io.ReadFull(r, headerBuf)
	if err == io.EOF && n == 0 {
		return Record{}, 0, io.EOF
	}
	if err != nil {
		return Record{}, 0, errTruncated
	}

	length, lsn, kind := decodeHeader(headerBuf)
	if length > maxPayloadLen {
		return Record{}, 0, errTruncated
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Record{}, 0, errTruncated
	}

	crcBuf := make([]byte, crcSize)
	if _, err := io.ReadFull(r, crcBuf); err != nil {
		return Record{}, 0, errTruncated
	}
	expectedCRC := binary.BigEndian.Uint32(crcBuf)

	full := make([]byte, 0, len(headerBuf)+len(payload))
	full = append(full, headerBuf...)
	full = append(full, payload...)
	if !validChecksum(full, expectedCRC) {
		return Record{}, 0, errCorrupt
	}

	rec, err := decodePayload(kind, payload)
	if err != nil {
		return Record{}, 0, errCorrupt
	}
	rec.LSN = lsn

	total := int64(headerSize) + int64(length) + int64(crcSize)
	return rec, total, nil
}

// ReplayResult is the outcome of replaying a WAL directory: every record
// read in file order, plus where a resuming Writer should pick up.
type ReplayResult struct {
	Records            []Record
	ResumeSeq          int
	ResumeSegmentStart uint64
	ResumeOffset       int64
}

// Replay enumerates segments in seq order and parses records end-to-end.
//
// Corruption or truncation in the highest-seq (active) segment is the
// expected shape of a crash mid-append: replay stops there silently and
// the writer resumes right after the last valid record, dropping the torn
// tail. The same condition in an earlier, already-sealed segment is a hard
// failure (direrrors.InvalidLog); sealed segments are never supposed to
// have a torn tail. A record for a txn ID with no preceding BEGIN in file
// order, or an LSN that does not match the record's byte offset in the
// logical stream, is always a hard failure, regardless of position.
func Replay(dir string) (ReplayResult, error) {
	segs, err := listSegments(dir)
	if err != nil {
		return ReplayResult{}, direrrors.NewIoError("list segments", err)
	}
	if len(segs) == 0 {
		return ReplayResult{}, nil
	}

	var records []Record
	began := make(map[uint64]bool)
	var segmentStart uint64
	var lastSeq int
	var lastOffset int64

	for i, seq := range segs {
		isLast := i == len(segs)-1
		path := segmentPath(dir, seq)

		f, err := os.Open(path)
		if err != nil {
			return ReplayResult{}, direrrors.NewIoError("open segment", err)
		}

		var offset int64
		for {
			rec, n, err := readRecord(f)
			if err == io.EOF {
				break
			}
			if err == errTruncated || err == errCorrupt {
				if !isLast {
					f.Close()
					return ReplayResult{}, direrrors.NewInvalidLog(
						fmt.Sprintf("corruption in sealed segment %d", seq), err)
				}
				break
			}
			if err != nil {
				f.Close()
				return ReplayResult{}, direrrors.NewInvalidLog("replay failed", err)
			}

			if want := segmentStart + uint64(offset); rec.LSN != want {
				f.Close()
				return ReplayResult{}, direrrors.NewInvalidLog(
					fmt.Sprintf("record LSN %d does not match stream offset %d", rec.LSN, want), nil)
			}
			if rec.Kind != KindBegin && !began[rec.TxnID] {
				f.Close()
				return ReplayResult{}, direrrors.NewInvalidLog(
					fmt.Sprintf("record kind %s for txn %d with no preceding BEGIN", rec.Kind, rec.TxnID), nil)
			}
			if rec.Kind == KindBegin {
				began[rec.TxnID] = true
			}

			records = append(records, rec)
			offset += n
		}
		f.Close()

		lastSeq = seq
		lastOffset = offset
		if !isLast {
			segmentStart += uint64(offset)
		}
	}

	return ReplayResult{
		Records:            records,
		ResumeSeq:          lastSeq,
		ResumeSegmentStart: segmentStart,
		ResumeOffset:       lastOffset,
	}, nil
}
