// Package conflict implements the snapshot-isolation conflict predicate:
// given two transactions, decide whether the later committer must abort
// because it overlaps a peer that already committed durably.
package conflict

import "github.com/bobboyms/dirtxncore/pkg/txn"

// Detector is stateless; HasConflict only consults the two transactions
// passed to it.
type Detector struct{}

// New returns a Detector.
func New() *Detector {
	return &Detector{}
}

// HasConflict reports whether self conflicts with other:
//
//  1. other must be COMMITTED; only committed writers can conflict.
//  2. other must have committed after self began (commitSnapshot > self's
//     startSnapshot), otherwise self already saw it when it began.
//  3. other must have written something; readers never induce conflicts.
//  4. self's write-set or read-set must intersect other's write-set.
//
// The check is intentionally asymmetric: HasConflict(a, b) during a's
// commit attempt is not expected to equal HasConflict(b, a) unless both
// transactions have committed.
func (d *Detector) HasConflict(self, other *txn.Transaction) bool {
	if other.State() != txn.Committed {
		return false
	}
	if other.CommitSnapshotID <= self.StartSnapshotID {
		return false
	}
	if other.WriteSet.Len() == 0 {
		return false
	}
	return self.WriteSet.Intersects(other.WriteSet) || self.ReadSet.Intersects(other.WriteSet)
}
