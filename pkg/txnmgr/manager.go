// Package txnmgr implements the transaction manager: the process-wide
// owner of active and recently-committed transactions, the serialization
// point for commit ordering, and the caller entry point for
// begin/commit/abort. It also exposes the thin log manager façade
// operation handlers record reads and writes through.
package txnmgr

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/bobboyms/dirtxncore/pkg/conflict"
	"github.com/bobboyms/dirtxncore/pkg/direrrors"
	"github.com/bobboyms/dirtxncore/pkg/dn"
	"github.com/bobboyms/dirtxncore/pkg/scope"
	"github.com/bobboyms/dirtxncore/pkg/snapshot"
	"github.com/bobboyms/dirtxncore/pkg/txn"
	"github.com/bobboyms/dirtxncore/pkg/txnmetrics"
	"github.com/bobboyms/dirtxncore/pkg/wal"
)

// errHalted is the cause attached to every rejection issued after a WAL
// failure put the manager into its no-accept state.
var errHalted = errors.New("manager halted after WAL failure")

// Manager is a process-wide singleton in spirit (explicit Init/Shutdown,
// no implicit module-load initialization); nothing stops an embedder from
// running more than one, e.g. one per temporary directory in tests.
type Manager struct {
	mu sync.Mutex // serializes commit ordering and WAL append sequencing

	cfg      Config
	w        *wal.Writer
	detector *conflict.Detector
	metrics  *txnmetrics.Metrics

	nextTxnID uint64
	nextSnap  uint64

	active         map[uint64]*txn.Transaction
	recent         []*txn.Transaction
	callerTxn      map[CallerHandle]uint64
	minActiveStart uint64

	// halted is set when a WAL append or flush fails mid-commit. The log
	// can no longer be trusted to record commit intent, so the manager
	// stops accepting new transactions and commits.
	halted bool
}

// Init replays the WAL at cfg.LogFolder (creating it if new), reconstructs
// the id/snapshot counters, discards any in-flight (non-committed)
// transactions left over from a crash, and returns a ready Manager.
func Init(cfg Config) (*Manager, error) {
	metrics := txnmetrics.New(cfg.MetricsRegisterer)

	walOpts := wal.Options{
		Dir:         cfg.LogFolder,
		BufferSize:  cfg.LogBufferSize,
		SegmentSize: cfg.LogFileSize,
		Archive:     cfg.Archive,
	}
	w, replay, err := wal.Open(walOpts, metrics)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:            cfg,
		w:              w,
		detector:       conflict.New(),
		metrics:        metrics,
		active:         make(map[uint64]*txn.Transaction),
		callerTxn:      make(map[CallerHandle]uint64),
		minActiveStart: math.MaxUint64,
	}
	m.recoverCounters(replay.Records)

	fmt.Printf("txnmgr: recovered %d WAL records, nextTxnID=%d nextSnap=%d\n",
		len(replay.Records), m.nextTxnID, m.nextSnap)
	return m, nil
}

func (m *Manager) recoverCounters(records []wal.Record) {
	var maxTxnID, maxSnap uint64
	for _, r := range records {
		if r.TxnID > maxTxnID {
			maxTxnID = r.TxnID
		}
		switch r.Kind {
		case wal.KindBegin:
			if r.StartSnapshot > maxSnap {
				maxSnap = r.StartSnapshot
			}
		case wal.KindCommit:
			if r.CommitSnapshot > maxSnap {
				maxSnap = r.CommitSnapshot
			}
		}
	}
	m.nextTxnID = maxTxnID + 1
	m.nextSnap = maxSnap
}

// Shutdown flushes and closes the WAL. No further calls should be made on
// the Manager afterward.
func (m *Manager) Shutdown() error {
	return m.w.Close()
}

// BeginTransaction allocates a transaction id, captures the current
// snapshot counter (without incrementing it: multiple read-only
// transactions may share a start snapshot), appends a buffered BEGIN
// record, and registers it as handle's current transaction.
func (m *Manager) BeginTransaction(handle CallerHandle, readOnly bool) (*txn.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.halted {
		return nil, direrrors.NewIoError("begin", errHalted)
	}
	if existingID, exists := m.callerTxn[handle]; exists {
		return nil, direrrors.NewAlreadyActiveTxn(handle.String(), existingID)
	}

	id := m.nextTxnID
	m.nextTxnID++
	startSnap := m.nextSnap

	lsn, err := m.w.AppendBegin(id, startSnap)
	if err != nil {
		m.nextTxnID-- // roll back the allocation; the WAL append never happened
		return nil, err
	}

	t := txn.New(id, readOnly, startSnap, lsn)
	m.active[id] = t
	m.callerTxn[handle] = id
	m.updateMinActiveStartLocked()

	if m.metrics != nil {
		m.metrics.TxnBegins.Inc()
		m.metrics.ActiveTxns.Set(float64(len(m.active)))
	}
	return t, nil
}

// GetCurTxn returns the ACTIVE transaction registered for handle.
func (m *Manager) GetCurTxn(handle CallerHandle) (*txn.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.curTxnLocked(handle)
}

func (m *Manager) curTxnLocked(handle CallerHandle) (*txn.Transaction, error) {
	id, ok := m.callerTxn[handle]
	if !ok {
		return nil, direrrors.NewNoCurrentTxn(handle.String())
	}
	t, ok := m.active[id]
	if !ok {
		return nil, direrrors.NewNoCurrentTxn(handle.String())
	}
	return t, nil
}

// AddRead registers a read of d/scope against handle's current
// transaction's read set, used at commit time to detect write-read
// conflicts.
func (m *Manager) AddRead(handle CallerHandle, d dn.DN, sc scope.SearchScope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.curTxnLocked(handle)
	if err != nil {
		return err
	}
	t.AddRead(d, sc)
	return nil
}

// AddWrite registers a write of d/scope against handle's current
// transaction's write set. Returns ReadOnlyTxnError if the transaction
// was started read-only.
func (m *Manager) AddWrite(handle CallerHandle, d dn.DN, sc scope.SearchScope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.curTxnLocked(handle)
	if err != nil {
		return err
	}
	if t.ReadOnly {
		return direrrors.NewReadOnlyTxn(t.ID)
	}
	t.AddWrite(d, sc)
	return nil
}

// LogUserData appends an opaque, caller-defined payload to the WAL under
// handle's current transaction. The data is not interpreted by the core;
// it exists so an embedder can ride the same log for its own
// entry/attribute change records.
func (m *Manager) LogUserData(handle CallerHandle, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.curTxnLocked(handle)
	if err != nil {
		return err
	}
	_, walErr := m.w.AppendUserData(t.ID, data)
	return walErr
}

// CommitTransaction runs the commit protocol under the manager mutex:
// assign a commit snapshot, check for conflicts against recent committed
// transactions, and if clean, append and durably flush a COMMIT record
// before transitioning the transaction to COMMITTED. The flush is the one
// internal suspension point: other begins/commits block on the mutex
// until it returns.
func (m *Manager) CommitTransaction(handle CallerHandle) error {
	m.mu.Lock()

	if m.halted {
		m.mu.Unlock()
		return direrrors.NewIoError("commit", errHalted)
	}

	self, err := m.curTxnLocked(handle)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	m.nextSnap++
	commitSnap := m.nextSnap

	var conflictWith uint64
	conflicted := false
	for _, other := range m.recent {
		if other.CommitSnapshotID > self.StartSnapshotID && m.detector.HasConflict(self, other) {
			conflicted = true
			conflictWith = other.ID
			break
		}
	}

	if conflicted {
		m.mu.Unlock()
		if m.metrics != nil {
			m.metrics.TxnConflicts.Inc()
		}
		_ = m.AbortTransaction(handle)
		return direrrors.NewConflict(self.ID, conflictWith)
	}

	lsn, err := m.w.AppendCommit(self.ID, commitSnap)
	if err != nil {
		m.haltLocked(self, handle)
		m.mu.Unlock()
		return err
	}
	if err := m.w.Flush(); err != nil {
		m.haltLocked(self, handle)
		m.mu.Unlock()
		return err
	}

	self.MarkCommitted(commitSnap, lsn)
	delete(m.active, self.ID)
	delete(m.callerTxn, handle)
	m.recent = append(m.recent, self)
	m.updateMinActiveStartLocked()
	m.pruneRecentLocked()

	if m.metrics != nil {
		m.metrics.TxnCommits.Inc()
		m.metrics.ActiveTxns.Set(float64(len(m.active)))
	}

	m.mu.Unlock()
	return nil
}

// haltLocked abandons a commit whose WAL append or flush failed: the
// transaction is marked ABORTED in memory (no ABORT record; the log may
// be unwritable, and the absence of a COMMIT record already implies the
// abort on replay) and the manager enters a no-accept state.
func (m *Manager) haltLocked(self *txn.Transaction, handle CallerHandle) {
	self.MarkAborted(0)
	delete(m.active, self.ID)
	delete(m.callerTxn, handle)
	m.updateMinActiveStartLocked()
	m.halted = true
	if m.metrics != nil {
		m.metrics.TxnAborts.Inc()
		m.metrics.ActiveTxns.Set(float64(len(m.active)))
	}
}

// AbortTransaction marks the transaction ABORTED and appends an ABORT
// record. Durability is not required for aborts, since an abort is implied by
// the absence of a COMMIT record, so the WAL's normal
// buffer-full/rollover/shutdown flush triggers apply, not an explicit
// flush-and-wait.
func (m *Manager) AbortTransaction(handle CallerHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	self, err := m.curTxnLocked(handle)
	if err != nil {
		return err
	}

	lsn, walErr := m.w.AppendAbort(self.ID)
	self.MarkAborted(lsn)
	delete(m.active, self.ID)
	delete(m.callerTxn, handle)
	m.updateMinActiveStartLocked()
	m.pruneRecentLocked()

	if m.metrics != nil {
		m.metrics.TxnAborts.Inc()
		m.metrics.ActiveTxns.Set(float64(len(m.active)))
	}
	return walErr
}

// Snapshot renders a diagnostic point-in-time view of the manager's
// bookkeeping: active and recently-committed transactions, and the
// id/snapshot counters, for an operator to dump via the snapshot
// package's BSON encoding.
func (m *Manager) Snapshot() snapshot.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := make([]snapshot.TxnRecord, 0, len(m.active))
	for _, t := range m.active {
		active = append(active, toTxnRecord(t))
	}
	recent := make([]snapshot.TxnRecord, 0, len(m.recent))
	for _, t := range m.recent {
		recent = append(recent, toTxnRecord(t))
	}

	return snapshot.State{
		GeneratedAt:    time.Now(),
		NextTxnID:      m.nextTxnID,
		NextSnap:       m.nextSnap,
		MinActiveStart: m.minActiveStart,
		Active:         active,
		Recent:         recent,
	}
}

func toTxnRecord(t *txn.Transaction) snapshot.TxnRecord {
	return snapshot.TxnRecord{
		ID:               t.ID,
		ReadOnly:         t.ReadOnly,
		State:            t.State().String(),
		StartSnapshotID:  t.StartSnapshotID,
		CommitSnapshotID: t.CommitSnapshotID,
	}
}

func (m *Manager) updateMinActiveStartLocked() {
	min := uint64(math.MaxUint64)
	for _, t := range m.active {
		if t.StartSnapshotID < min {
			min = t.StartSnapshotID
		}
	}
	m.minActiveStart = min
}

// pruneRecentLocked drops committed transactions from m.recent once no
// active transaction could still need them for a conflict check, i.e.
// once every active transaction's startSnapshot is already past their
// commitSnapshot.
func (m *Manager) pruneRecentLocked() {
	if len(m.recent) == 0 {
		return
	}
	kept := m.recent[:0]
	for _, t := range m.recent {
		if t.CommitSnapshotID > m.minActiveStart {
			kept = append(kept, t)
		}
	}
	m.recent = kept
}
