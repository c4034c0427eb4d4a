package logclient

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the logs service has no record under that id.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidRecord means the record exists but the service flags it as
	// unusable (corrupt upload, withdrawn, or otherwise not a real match).
	ErrInvalidRecord = errors.New("record marked invalid by the logs service")
)

// TransientError wraps failures worth retrying on a later sweep: network
// errors, 5xx responses, rate-limit rejections.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient %s failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried rather than treated as a
// verdict about the record.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
