package domain

import (
	"errors"
	"fmt"
)

// Credential validation failures. Validation paths return these (possibly wrapped) and the
// resolver converts them into an *Unauthorized; they never reach callers as storage errors.
var (
	// ErrMalformedCredential is returned when a credential cannot be parsed; no store is consulted.
	ErrMalformedCredential = errors.New("malformed credential")
	// ErrNotFound covers unknown ids and wrong secrets alike so callers cannot enumerate ids.
	ErrNotFound = errors.New("credential not found")
	// ErrExpired is returned for sessions past expires_at. Externally identical to ErrNotFound.
	ErrExpired = errors.New("credential expired")
)

// StorageError wraps a store failure encountered while validating or mutating auth state.
// It is surfaced as a 5xx and must never be reported as an invalid credential.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err as a *StorageError for operation op. Returns nil for a nil err.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Reason is the caller-facing class of an authentication rejection.
type Reason string

const (
	ReasonNotAuthenticated Reason = "not_authenticated"
	ReasonInvalidSession   Reason = "invalid_session"
	ReasonInvalidToken     Reason = "invalid_token"
)

// Message returns the fixed message sent to the caller for r.
func (r Reason) Message() string {
	switch r {
	case ReasonInvalidSession:
		return "Invalid or expired session"
	case ReasonInvalidToken:
		return "Invalid token"
	default:
		return "Not authenticated"
	}
}

// Unauthorized is the rejection value produced by the resolver. Cause holds the internal
// classification (ErrMalformedCredential, ErrNotFound, ErrExpired) for logs and metrics only.
type Unauthorized struct {
	Reason Reason
	Cause  error
}

func (e *Unauthorized) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unauthorized (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("unauthorized (%s)", e.Reason)
}

func (e *Unauthorized) Unwrap() error { return e.Cause }

// AsUnauthorized returns the *Unauthorized in err's chain, if any.
func AsUnauthorized(err error) (*Unauthorized, bool) {
	var u *Unauthorized
	if errors.As(err, &u) {
		return u, true
	}
	return nil, false
}
