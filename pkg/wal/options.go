package wal

// Options configures a segmented WAL.
type Options struct {
	// Dir is the directory holding segment files; created if absent.
	Dir string

	// BufferSize is the in-memory write buffer size in bytes, flushed
	// when full, at rollover, at explicit Flush, and at Close.
	BufferSize int

	// SegmentSize is the rollover threshold in bytes for a single segment
	// file.
	SegmentSize int64

	// Archive, when true, compresses sealed segments to `.log.zst` in the
	// background for cold storage. Never affects durability or replay,
	// which always read the uncompressed segment.
	Archive bool
}

// DefaultOptions returns a conservative configuration: 4 KiB buffer,
// 8 KiB segment cap.
func DefaultOptions() Options {
	return Options{
		Dir:         "./wal_data",
		BufferSize:  4096,
		SegmentSize: 8192,
		Archive:     false,
	}
}
