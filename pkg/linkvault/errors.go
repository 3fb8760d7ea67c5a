package linkvault

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every engine operation returns one of these (possibly
// wrapped in ContentError/StorageError); callers classify with errors.Is.
var (
	// ErrNotFound indicates the id does not resolve to a record.
	ErrNotFound = errors.New("content not found")

	// ErrExpired indicates the record existed but is past its expiry.
	ErrExpired = errors.New("content expired")

	// ErrExhausted indicates the consumption limit is reached: either the
	// counter ceiling was hit or a one-time record was already consumed.
	ErrExhausted = errors.New("access limit reached")

	// ErrAccessDenied indicates a missing or incorrect password or delete
	// credential.
	ErrAccessDenied = errors.New("access denied")

	// ErrStorageUnavailable indicates no blob store accepted the payload
	// during Create. It surfaces only when both backends fail.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError rejects a malformed create request. The client must correct
// its input; retrying unchanged cannot succeed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ContentError wraps an error from an operation on a specific record.
type ContentError struct {
	ID  string
	Op  string
	Err error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content operation %s failed for %s: %v", e.Op, e.ID, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// StorageError wraps an error from a blob store operation.
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
