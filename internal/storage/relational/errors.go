package relational

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/mrlokans/bookexchange/internal/exchange"
	"github.com/mrlokans/bookexchange/internal/storage"
)

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
	mysqlAccessDenied    = 1045
	mysqlServerGoneAway  = 2006
	mysqlServerLostQuery = 2013
)

// translate maps driver and GORM errors onto the storage taxonomy. op is
// used to wrap anything that has no storage equivalent.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}

	if isStorageError(err) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return duplicateFromMessage(myErr.Message)
		case mysqlRowIsReferenced, mysqlNoReferencedRow:
			return &storage.ConstraintError{Field: foreignKeyField(myErr.Message)}
		case mysqlAccessDenied, mysqlServerGoneAway, mysqlServerLostQuery:
			return &storage.ConnectionError{Backend: "mysql", Op: op, Err: err}
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return duplicateFromMessage(liteErr.Error())
		case sqlite3.ErrConstraintForeignKey:
			return &storage.ConstraintError{Field: "reference"}
		}
	}

	if isConnectionFailure(err) {
		return &storage.ConnectionError{Backend: "relational", Op: op, Err: err}
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}

// isStorageError reports errors that are already part of the taxonomy.
func isStorageError(err error) bool {
	var ce *storage.ConstraintError
	return errors.As(err, &ce) ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrBookUnavailable) ||
		errors.Is(err, storage.ErrInvalidID) ||
		errors.Is(err, storage.ErrNotConnected) ||
		errors.Is(err, exchange.ErrInvalidTransition)
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysqldriver.ErrInvalidConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// duplicateFromMessage picks the violated column out of a driver message
// such as "Duplicate entry 'x' for key 'users.idx_users_email'" or
// "UNIQUE constraint failed: users.username". Only the key part is looked
// at since the duplicated value may itself contain a column name.
func duplicateFromMessage(msg string) error {
	key := ""
	for _, marker := range []string{"for key ", "constraint failed: "} {
		if i := strings.LastIndex(msg, marker); i >= 0 {
			key = strings.ToLower(msg[i+len(marker):])
			break
		}
	}
	switch {
	case strings.Contains(key, "email"):
		return &storage.ConstraintError{Field: "email"}
	case strings.Contains(key, "username"):
		return &storage.ConstraintError{Field: "username"}
	}
	return &storage.ConstraintError{Field: "unique"}
}

func foreignKeyField(msg string) string {
	lower := strings.ToLower(msg)
	for _, field := range []string{"owner_id", "requester_id", "provider_id", "book_id"} {
		if strings.Contains(lower, field) {
			return field
		}
	}
	return "reference"
}
