// Package txnmetrics wires the transaction core's counters and gauges into
// Prometheus. Nothing in the core requires metrics to function; a nil-safe
// *Metrics can always be constructed against a private registry so tests
// and embedders that don't care about observability never pay for it.
package txnmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the counters and gauges the WAL writer and transaction
// manager update as they work.
type Metrics struct {
	WALBytesWritten prometheus.Counter
	WALFlushes      prometheus.Counter
	WALRollovers    prometheus.Counter

	TxnBegins    prometheus.Counter
	TxnCommits   prometheus.Counter
	TxnAborts    prometheus.Counter
	TxnConflicts prometheus.Counter
	ActiveTxns   prometheus.Gauge
}

// New builds a Metrics set and registers it against reg. If reg is nil, a
// private unregistered registry is used instead, so callers that don't pass
// one (e.g. unit tests constructing multiple managers) never hit Prometheus's
// "duplicate metrics collector registration" panic.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		WALBytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirtxncore_wal_bytes_written_total",
			Help: "Total bytes appended to the write-ahead log.",
		}),
		WALFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirtxncore_wal_flushes_total",
			Help: "Total number of WAL flush+fsync cycles.",
		}),
		WALRollovers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirtxncore_wal_rollovers_total",
			Help: "Total number of WAL segment rollovers.",
		}),
		TxnBegins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirtxncore_txn_begins_total",
			Help: "Total transactions begun.",
		}),
		TxnCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirtxncore_txn_commits_total",
			Help: "Total transactions committed.",
		}),
		TxnAborts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirtxncore_txn_aborts_total",
			Help: "Total transactions aborted.",
		}),
		TxnConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirtxncore_txn_conflicts_total",
			Help: "Total commit attempts rejected by the conflict detector.",
		}),
		ActiveTxns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dirtxncore_active_transactions",
			Help: "Current number of ACTIVE transactions.",
		}),
	}

	collectors := []prometheus.Collector{
		m.WALBytesWritten, m.WALFlushes, m.WALRollovers,
		m.TxnBegins, m.TxnCommits, m.TxnAborts, m.TxnConflicts, m.ActiveTxns,
	}
	for _, c := range collectors {
		_ = reg.Register(c) // AlreadyRegisteredError is harmless here; metrics keep working
	}
	return m
}
