// Package txn holds the Transaction record: id, state, read/write sets,
// and the snapshot and log-span bookkeeping the conflict detector and
// transaction manager need.
package txn

import (
	"github.com/bobboyms/dirtxncore/pkg/dn"
	"github.com/bobboyms/dirtxncore/pkg/scope"
)

// State is the transaction lifecycle state. ACTIVE transitions once, to
// COMMITTED or ABORTED; both are terminal.
type State int

const (
	Active State = iota
	Committed
	Aborted
)

func (s State) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// LogSpan records the WAL byte range a transaction occupies.
type LogSpan struct {
	StartLSN uint64
	EndLSN   uint64 // 0 until the transaction leaves ACTIVE
}

// Transaction is mutated only by its owning caller while ACTIVE; once it
// transitions out of ACTIVE under the manager's serialization point it is
// immutable and safe to read lock-free.
type Transaction struct {
	ID       uint64
	ReadOnly bool

	ReadSet  *scope.Set
	WriteSet *scope.Set

	StartSnapshotID  uint64
	CommitSnapshotID uint64 // unset (0) until commit

	LogSpan LogSpan

	state State
}

// New creates an ACTIVE transaction with empty read/write sets.
func New(id uint64, readOnly bool, startSnapshot uint64, startLSN uint64) *Transaction {
	return &Transaction{
		ID:              id,
		ReadOnly:        readOnly,
		ReadSet:         scope.New(),
		WriteSet:        scope.New(),
		StartSnapshotID: startSnapshot,
		LogSpan:         LogSpan{StartLSN: startLSN},
		state:           Active,
	}
}

// State returns the current lifecycle state.
func (t *Transaction) State() State { return t.state }

// AddRead records a (dn, scope) pair as read. No-op if already present.
func (t *Transaction) AddRead(d dn.DN, sc scope.SearchScope) {
	t.ReadSet.Add(d, sc)
}

// AddWrite records a (dn, scope) pair as written. No-op if already present.
// Callers must have already rejected writes against read-only transactions;
// Transaction itself does not enforce that policy so it stays a pure data
// record.
func (t *Transaction) AddWrite(d dn.DN, sc scope.SearchScope) {
	t.WriteSet.Add(d, sc)
}

// MarkCommitted transitions the transaction to COMMITTED, recording the
// commit snapshot and the WAL end LSN. Only txnmgr.Manager calls this, and
// only under its commit serialization point.
func (t *Transaction) MarkCommitted(commitSnapshot uint64, endLSN uint64) {
	t.CommitSnapshotID = commitSnapshot
	t.LogSpan.EndLSN = endLSN
	t.state = Committed
}

// MarkAborted transitions the transaction to ABORTED. Only txnmgr.Manager
// calls this.
func (t *Transaction) MarkAborted(endLSN uint64) {
	t.LogSpan.EndLSN = endLSN
	t.state = Aborted
}
