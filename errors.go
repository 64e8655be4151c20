package recache

import (
	"errors"

	"github.com/yourorg/recache/setlock"
)

// LockTimeoutError is surfaced by mutation operations when the Set Lock
// fallback exhausts its retry budget. Re-exported so callers do not need to
// import setlock for errors.As.
type LockTimeoutError = setlock.LockTimeoutError

// IsLockTimeout reports whether err is (or wraps) a set-lock timeout.
func IsLockTimeout(err error) bool {
	var lt *setlock.LockTimeoutError
	return errors.As(err, &lt)
}
