package txnmgr

import "github.com/prometheus/client_golang/prometheus"

// Config configures a Manager.
type Config struct {
	// LogFolder is the directory holding WAL segment files; created if
	// absent.
	LogFolder string

	// LogBufferSize is the WAL in-memory buffer size in bytes.
	LogBufferSize int

	// LogFileSize is the segment rollover threshold in bytes.
	LogFileSize int64

	// Archive enables background zstd archival of sealed WAL segments.
	// Optional; off by default.
	Archive bool

	// MetricsRegisterer, if non-nil, is where the manager's Prometheus
	// collectors are registered. If nil, a private registry is used so
	// embedders that don't care about metrics never collide.
	MetricsRegisterer prometheus.Registerer
}

// DefaultConfig returns a typical small-footprint configuration.
func DefaultConfig() Config {
	return Config{
		LogFolder:     "./dirtxn_wal",
		LogBufferSize: 4096,
		LogFileSize:   8192,
		Archive:       false,
	}
}
