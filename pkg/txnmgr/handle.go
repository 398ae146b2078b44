package txnmgr

import "github.com/google/uuid"

// CallerHandle identifies one concurrent caller (an LDAP connection
// handler, a test goroutine, ...). Go has no thread-locals, so each
// caller mints its own handle with NewCallerHandle and passes it through
// every subsequent call site instead of relying on ambient state. The
// manager enforces that a handle is bound to at most one ACTIVE
// transaction at a time.
type CallerHandle uuid.UUID

func (h CallerHandle) String() string {
	return uuid.UUID(h).String()
}

// NewCallerHandle mints a fresh, time-ordered caller handle.
func NewCallerHandle() (CallerHandle, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return CallerHandle{}, err
	}
	return CallerHandle(id), nil
}
