package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstraintErrorMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		username bool
		email    bool
	}{
		{"username", DuplicateUsername("alice"), true, false},
		{"email", DuplicateEmail("a@x"), false, true},
		{"other field", &ConstraintError{Field: "book_id"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("register: %w", tt.err)
			assert.True(t, errors.Is(wrapped, ErrConstraint))
			assert.Equal(t, tt.username, errors.Is(wrapped, ErrDuplicateUsername))
			assert.Equal(t, tt.email, errors.Is(wrapped, ErrDuplicateEmail))

			var ce *ConstraintError
			assert.True(t, errors.As(wrapped, &ce))
		})
	}
}

func TestConstraintErrorMessage(t *testing.T) {
	assert.Equal(t, `username "alice" already exists`, DuplicateUsername("alice").Error())
	assert.Equal(t, "constraint violation on book_id", (&ConstraintError{Field: "book_id"}).Error())
}

func TestConnectionError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &ConnectionError{Backend: "mysql", Op: "connect", Err: cause}

	assert.True(t, errors.Is(err, ErrConnection))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrConfig))
	assert.Equal(t, "mysql connect: dial tcp: refused", err.Error())
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Reason: "database type is not set"}

	assert.True(t, errors.Is(err, ErrConfig))
	assert.False(t, errors.Is(err, ErrConnection))
	assert.Equal(t, "configuration error: database type is not set", err.Error())
}
