package storage

import (
	"errors"
	"fmt"
)

var (
	ErrConnection        = errors.New("storage connection error")
	ErrNotConnected      = errors.New("storage is not connected")
	ErrNotFound          = errors.New("not found")
	ErrConstraint        = errors.New("constraint violation")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrBookUnavailable   = errors.New("book is not available")
	ErrInvalidID         = errors.New("invalid identifier")
	ErrConfig            = errors.New("storage configuration error")
)

// ConnectionError means the backend could not be reached or refused the
// credentials. It is worth retrying.
type ConnectionError struct {
	Backend string
	Op      string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// ConfigError is fatal: retrying will not help.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// ConstraintError is a uniqueness or referential violation on write.
type ConstraintError struct {
	Field string
	Value string
}

func (e *ConstraintError) Error() string {
	switch e.Field {
	case "username":
		return fmt.Sprintf("username %q already exists", e.Value)
	case "email":
		return fmt.Sprintf("email %q already exists", e.Value)
	}
	if e.Value != "" {
		return fmt.Sprintf("constraint violation on %s (%s)", e.Field, e.Value)
	}
	return "constraint violation on " + e.Field
}

func (e *ConstraintError) Is(target error) bool {
	switch target {
	case ErrConstraint:
		return true
	case ErrDuplicateUsername:
		return e.Field == "username"
	case ErrDuplicateEmail:
		return e.Field == "email"
	}
	return false
}

// DuplicateUsername builds the error returned for a taken username.
func DuplicateUsername(username string) error {
	return &ConstraintError{Field: "username", Value: username}
}

// DuplicateEmail builds the error returned for a taken email.
func DuplicateEmail(email string) error {
	return &ConstraintError{Field: "email", Value: email}
}
