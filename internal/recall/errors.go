package recall

import (
	"errors"
	"fmt"
)

// Validation failures. All are recoverable and reported to the caller.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmptyField       = errors.New("cannot be empty")
	ErrInvalidEnum      = errors.New("invalid value")
	ErrInvalidTimeRange = errors.New("end time must be after start time")
	ErrFileTooLarge     = errors.New("file size exceeds maximum of 5MB")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrDuplicateEmail   = errors.New("user with this email already exists")
)

// Authentication failures. Messages are deliberately generic.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
)

// ErrNotFound covers both a missing row and a row owned by someone else.
var ErrNotFound = errors.New("not found")

// Hard failures.
var (
	ErrIdentifierExhausted = errors.New("failed to insert after repeated identifier collisions")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// ErrIdentifierCollision is returned by Database inserts when the generated
// id is already taken. It never escapes InsertWithRetry.
var ErrIdentifierCollision = errors.New("identifier collision")

// Resource export outcomes.
var (
	ErrNoFileData = errors.New("no file data available")
	ErrCancelled  = errors.New("file save cancelled")
)

// ValidationError names the input field that failed a rule.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

var recoverable = []error{
	ErrInvalidInput,
	ErrEmptyField,
	ErrInvalidEnum,
	ErrInvalidTimeRange,
	ErrFileTooLarge,
	ErrInvalidEmail,
	ErrDuplicateEmail,
	ErrInvalidCredentials,
	ErrInvalidToken,
	ErrIncorrectPassword,
	ErrNotFound,
	ErrNoFileData,
	ErrCancelled,
}

// IsRecoverable reports whether err is a per-request failure that should be
// returned in a response envelope rather than failing the command outright.
func IsRecoverable(err error) bool {
	for _, target := range recoverable {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// PublicMessage is the caller-facing text for a recoverable error: the
// field-qualified rule for validation failures, otherwise the bare sentinel
// text without any wrapping context.
func PublicMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	for _, target := range recoverable {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
