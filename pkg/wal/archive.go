package wal

import (
	"fmt"
	"os"

	"github.com/DataDog/zstd"
)

// archiveSegment compresses a sealed (no longer active) segment file to
// "<path>.zst" for cold storage. It is best-effort: failures are logged,
// never fatal, and the uncompressed segment is always left in place since
// replay and the durability contract never depend on the archive copy.
func archiveSegment(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("wal: archive skipped for %s: read failed: %v\n", path, err)
		return
	}

	compressed, err := zstd.Compress(nil, raw)
	if err != nil {
		fmt.Printf("wal: archive skipped for %s: compress failed: %v\n", path, err)
		return
	}

	if err := os.WriteFile(path+".zst", compressed, 0o644); err != nil {
		fmt.Printf("wal: archive skipped for %s: write failed: %v\n", path, err)
	}
}
