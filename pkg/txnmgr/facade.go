package txnmgr

import (
	"github.com/bobboyms/dirtxncore/pkg/dn"
	"github.com/bobboyms/dirtxncore/pkg/scope"
)

// LogManager is a thin per-caller façade: it binds a Manager to one
// CallerHandle so call sites don't have to thread the handle through
// every AddRead/AddWrite/LogUserData call themselves.
type LogManager struct {
	mgr    *Manager
	handle CallerHandle
}

// NewLogManager binds mgr to handle. handle must already have an ACTIVE
// transaction (from mgr.BeginTransaction) for the returned façade's calls
// to succeed.
func NewLogManager(mgr *Manager, handle CallerHandle) *LogManager {
	return &LogManager{mgr: mgr, handle: handle}
}

// AddRead registers a read against the bound handle's current transaction.
func (l *LogManager) AddRead(d dn.DN, sc scope.SearchScope) error {
	return l.mgr.AddRead(l.handle, d, sc)
}

// AddWrite registers a write against the bound handle's current
// transaction.
func (l *LogManager) AddWrite(d dn.DN, sc scope.SearchScope) error {
	return l.mgr.AddWrite(l.handle, d, sc)
}

// LogUserData appends opaque caller data to the WAL under the bound
// handle's current transaction.
func (l *LogManager) LogUserData(data []byte) error {
	return l.mgr.LogUserData(l.handle, data)
}

// Handle returns the bound caller handle.
func (l *LogManager) Handle() CallerHandle {
	return l.handle
}
