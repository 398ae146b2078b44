package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bobboyms/dirtxncore/pkg/direrrors"
)

func TestReplay_EmptyDir(t *testing.T) {
	dir := t.TempDir()
	result, err := Replay(dir)
	if err != nil {
		t.Fatalf("Replay on empty dir failed: %v", err)
	}
	if len(result.Records) != 0 {
		t.Errorf("expected no records, got %d", len(result.Records))
	}
}

func TestReplay_MissingDir(t *testing.T) {
	result, err := Replay(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Replay on a missing dir should not error, got: %v", err)
	}
	if len(result.Records) != 0 {
		t.Errorf("expected no records, got %d", len(result.Records))
	}
}

func TestReplay_RejectsRecordWithoutBegin(t *testing.T) {
	dir := t.TempDir()
	w, _, err := Open(Options{Dir: dir, BufferSize: 64, SegmentSize: 4096}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	// A commit for a txn ID that never saw a BEGIN.
	if _, err := w.AppendCommit(42, 1); err != nil {
		t.Fatalf("AppendCommit failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, err = Replay(dir)
	if err == nil {
		t.Fatal("expected replay to reject a record with no preceding BEGIN")
	}
	if _, ok := err.(*direrrors.InvalidLogError); !ok {
		t.Fatalf("expected an InvalidLogError, got: %v (%T)", err, err)
	}
}

func TestReplay_CorruptionInSealedSegmentIsFatal(t *testing.T) {
	dir := t.TempDir()
	opts := Options{Dir: dir, BufferSize: 64, SegmentSize: 64}

	w, _, err := Open(opts, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	// Force at least one rollover so segment 0 is sealed.
	for i := uint64(0); i < 10; i++ {
		if _, err := w.AppendBegin(i, i); err != nil {
			t.Fatalf("AppendBegin failed: %v", err)
		}
		if _, err := w.AppendCommit(i, i+1); err != nil {
			t.Fatalf("AppendCommit failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if w.CurrentSeq() == 0 {
		t.Skip("test requires at least one rollover to have happened")
	}

	// Corrupt a byte in the middle of the sealed first segment.
	sealedPath := segmentPath(dir, 0)
	data, err := os.ReadFile(sealedPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) < headerSize+1 {
		t.Fatal("sealed segment too small to corrupt meaningfully")
	}
	data[headerSize] ^= 0xFF
	if err := os.WriteFile(sealedPath, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := Replay(dir); err == nil {
		t.Fatal("expected corruption in a sealed segment to be a fatal replay error")
	}
}

func TestReplay_TornTailInActiveSegmentIsTolerated(t *testing.T) {
	dir := t.TempDir()
	w, _, err := Open(Options{Dir: dir, BufferSize: 64, SegmentSize: 4096}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := w.AppendBegin(1, 0); err != nil {
		t.Fatalf("AppendBegin failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	activePath := segmentPath(dir, 0)
	f, err := os.OpenFile(activePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if _, err := f.Write([]byte{0xAA, 0xBB}); err != nil {
		t.Fatalf("Write garbage failed: %v", err)
	}
	f.Close()

	result, err := Replay(dir)
	if err != nil {
		t.Fatalf("expected a torn tail in the active segment to be tolerated, got: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected exactly the one valid record, got %d", len(result.Records))
	}
}
