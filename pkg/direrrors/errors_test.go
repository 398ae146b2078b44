package direrrors

import (
	"errors"
	"testing"
)

func TestErrors_ErrorMethod(t *testing.T) {
	errs := []error{
		NewInvalidSyntax("cn=broken", errors.New("missing '='")),
		NewNoCurrentTxn("caller-1"),
		NewReadOnlyTxn(7),
		NewAlreadyActiveTxn("caller-1", 7),
		NewConflict(9, 3),
		NewInvalidLog("torn record in sealed segment", nil),
		NewIoError("fsync", errors.New("disk full")),
	}

	for _, e := range errs {
		if e.Error() == "" {
			t.Errorf("Error() returned empty string for %T", e)
		}
	}
}

func TestErrors_UnwrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := NewIoError("flush", cause)
	if !errors.Is(err, cause) {
		t.Errorf("expected IoError to unwrap to its cause")
	}

	parseCause := errors.New("dangling escape")
	if !errors.Is(NewInvalidSyntax("cn=x\\", parseCause), parseCause) {
		t.Errorf("expected InvalidSyntaxError to unwrap to its cause")
	}
}

func TestErrors_TypeAssertions(t *testing.T) {
	var conflictErr *ConflictError
	if !errors.As(NewConflict(9, 3), &conflictErr) {
		t.Fatal("expected errors.As to match ConflictError")
	}
	if conflictErr.TxnID != 9 || conflictErr.WithTxn != 3 {
		t.Errorf("ConflictError fields = (%d, %d), want (9, 3)", conflictErr.TxnID, conflictErr.WithTxn)
	}

	var roErr *ReadOnlyTxnError
	if !errors.As(NewReadOnlyTxn(7), &roErr) {
		t.Fatal("expected errors.As to match ReadOnlyTxnError")
	}
	if roErr.TxnID != 7 {
		t.Errorf("ReadOnlyTxnError.TxnID = %d, want 7", roErr.TxnID)
	}
}
