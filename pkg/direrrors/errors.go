// Package direrrors defines the error taxonomy raised by the transaction
// core: parse failures, lifecycle misuse, conflicts, and WAL faults.
package direrrors

import (
	"github.com/cockroachdb/errors"
)

// InvalidSyntaxError is raised when a DN fails to parse.
type InvalidSyntaxError struct {
	Text string
	Err  error
}

func (e *InvalidSyntaxError) Error() string {
	if e.Err == nil {
		return errors.Newf("invalid DN syntax: %q", e.Text).Error()
	}
	return errors.Wrapf(e.Err, "invalid DN syntax: %q", e.Text).Error()
}

func (e *InvalidSyntaxError) Unwrap() error { return e.Err }

// NewInvalidSyntax wraps the underlying parse failure.
func NewInvalidSyntax(text string, cause error) error {
	return &InvalidSyntaxError{Text: text, Err: cause}
}

// NoCurrentTxnError is raised when a log or commit call is made without a
// prior begin for the calling context.
type NoCurrentTxnError struct {
	Caller string
}

func (e *NoCurrentTxnError) Error() string {
	return errors.Newf("no current transaction registered for caller %q", e.Caller).Error()
}

// NewNoCurrentTxn builds a NoCurrentTxnError.
func NewNoCurrentTxn(caller string) error {
	return &NoCurrentTxnError{Caller: caller}
}

// ReadOnlyTxnError is raised when a write is attempted on a read-only
// transaction.
type ReadOnlyTxnError struct {
	TxnID uint64
}

func (e *ReadOnlyTxnError) Error() string {
	return errors.Newf("transaction %d is read-only", e.TxnID).Error()
}

// NewReadOnlyTxn builds a ReadOnlyTxnError.
func NewReadOnlyTxn(txnID uint64) error {
	return &ReadOnlyTxnError{TxnID: txnID}
}

// AlreadyActiveTxnError is raised when BeginTransaction is called for a
// caller handle that already has an ACTIVE transaction registered; a handle
// holds at most one active transaction at a time.
type AlreadyActiveTxnError struct {
	Caller string
	TxnID  uint64
}

func (e *AlreadyActiveTxnError) Error() string {
	return errors.Newf("caller %q already has active transaction %d", e.Caller, e.TxnID).Error()
}

// NewAlreadyActiveTxn builds an AlreadyActiveTxnError.
func NewAlreadyActiveTxn(caller string, txnID uint64) error {
	return &AlreadyActiveTxnError{Caller: caller, TxnID: txnID}
}

// ConflictError is raised when commit detects a write-write or write-read
// conflict against an already-committed transaction.
type ConflictError struct {
	TxnID   uint64
	WithTxn uint64
}

func (e *ConflictError) Error() string {
	return errors.Newf("transaction %d conflicts with committed transaction %d", e.TxnID, e.WithTxn).Error()
}

// NewConflict builds a ConflictError.
func NewConflict(txnID, withTxn uint64) error {
	return &ConflictError{TxnID: txnID, WithTxn: withTxn}
}

// InvalidLogError is raised when WAL replay finds corruption or an
// ordering violation. It is fatal to the core.
type InvalidLogError struct {
	Reason string
	Err    error
}

func (e *InvalidLogError) Error() string {
	if e.Err == nil {
		return errors.Newf("invalid WAL: %s", e.Reason).Error()
	}
	return errors.Wrapf(e.Err, "invalid WAL: %s", e.Reason).Error()
}

func (e *InvalidLogError) Unwrap() error { return e.Err }

// NewInvalidLog wraps a replay-time corruption or ordering violation.
func NewInvalidLog(reason string, cause error) error {
	return &InvalidLogError{Reason: reason, Err: cause}
}

// IoError is raised when filesystem I/O fails during WAL append or flush.
// It is fatal to the commit in progress.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	if e.Err == nil {
		return errors.Newf("wal io error during %s", e.Op).Error()
	}
	return errors.Wrapf(e.Err, "wal io error during %s", e.Op).Error()
}

func (e *IoError) Unwrap() error { return e.Err }

// NewIoError wraps an underlying filesystem fault.
func NewIoError(op string, cause error) error {
	return &IoError{Op: op, Err: cause}
}

// Is reports whether err is (or wraps) a target error of the given kind,
// delegating to cockroachdb/errors so wrapped chains compare correctly.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
