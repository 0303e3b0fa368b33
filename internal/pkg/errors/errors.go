package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")

	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("expired credential")
	// ErrRevokedToken is returned for a well-formed token that has no active store row.
	ErrRevokedToken = errors.New("revoked or unknown token")
	// ErrDuplicateToken means the token store already holds the minted string.
	// It is an integrity failure and must not be retried.
	ErrDuplicateToken = errors.New("duplicate token")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsCredentialFailure reports whether err rejects a presented credential.
func IsCredentialFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrExpiredCredential) ||
		errors.Is(err, ErrRevokedToken)
}

// ValidationError is an ErrInvalid that carries a reason the caller can show.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid: " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func Invalid(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
