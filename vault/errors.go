package vault

import (
	"errors"
	"fmt"
)

// Conditions detected before any side effect. Callers can report these
// directly without cleanup concerns.
var (
	ErrInvalidReference = errors.New("unsupported source reference")
	ErrInvalidName      = errors.New("name may only contain letters, digits, underscore and hyphen")
	ErrDuplicateName    = errors.New("name is already in use")
	ErrQuotaExceeded    = errors.New("upload limit reached")
	ErrPermission       = errors.New("not permitted")
	ErrTimeout          = errors.New("operation timed out")
)

// FetchError reports a failed external media retrieval. No persistent state
// was touched when it is returned.
type FetchError struct {
	Ref string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Ref, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StorageError reports a failed object-store operation. A put may have
// partially completed; callers rely on idempotent overwrite for retries.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("object store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// RecordError reports a failed metadata-store mutation. When it follows a
// successful object-store write the blob is orphaned; the condition is
// logged for manual reconciliation, not compensated automatically.
type RecordError struct {
	Op  string
	Key string
	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("metadata store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
