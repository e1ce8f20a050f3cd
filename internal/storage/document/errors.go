package document

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mrlokans/bookexchange/internal/config"
	"github.com/mrlokans/bookexchange/internal/exchange"
	"github.com/mrlokans/bookexchange/internal/storage"
)

// translate maps driver errors onto the storage taxonomy.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	var ce *storage.ConstraintError
	if errors.As(err, &ce) ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrBookUnavailable) ||
		errors.Is(err, storage.ErrInvalidID) ||
		errors.Is(err, storage.ErrNotConnected) ||
		errors.Is(err, exchange.ErrInvalidTransition) {
		return err
	}

	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return storage.ErrNotFound
	case errors.Is(err, mongo.ErrClientDisconnected):
		return storage.ErrNotConnected
	case mongo.IsDuplicateKeyError(err):
		return duplicateFromMessage(err.Error())
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		return &storage.ConnectionError{Backend: config.KindMongoDB, Op: op, Err: err}
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}

// duplicateFromMessage reads the violated index out of an E11000 message,
// e.g. "... index: email_1 dup key: { email: \"a@b\" }".
func duplicateFromMessage(msg string) error {
	if i := strings.Index(msg, "index: "); i >= 0 {
		index := msg[i+len("index: "):]
		switch {
		case strings.HasPrefix(index, "email"):
			return &storage.ConstraintError{Field: "email"}
		case strings.HasPrefix(index, "username"):
			return &storage.ConstraintError{Field: "username"}
		}
	}
	return &storage.ConstraintError{Field: "unique"}
}
