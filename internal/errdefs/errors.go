package errdefs

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references a missing or
// soft-deleted post.
var ErrNotFound = errors.New("post not found")

// ErrAlreadyClaimed is returned by the pipeline when another drain won the
// PENDING -> PROCESSING transition for a record. It is not a failure.
var ErrAlreadyClaimed = errors.New("post already claimed")

// ValidationError rejects an enqueue before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageError wraps failures of the durable store; the record is not assumed
// to exist after one.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func Storage(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// UploadError covers the object-store step of the pipeline.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("media upload: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

func Upload(err error) error {
	return &UploadError{Err: err}
}

// RemoteAPIError covers the container-create and publish steps. Timeouts on
// those calls are reported through the same type.
type RemoteAPIError struct {
	Step string
	Err  error
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("instagram %s: %v", e.Step, e.Err)
}

func (e *RemoteAPIError) Unwrap() error { return e.Err }

func RemoteAPI(step string, err error) error {
	return &RemoteAPIError{Step: step, Err: err}
}
