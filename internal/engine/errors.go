package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Sentinel errors for the operation taxonomy. Callers match with errors.Is.
var (
	// ErrNotFound means a referenced batch does not exist.
	ErrNotFound = errors.New("batch not found")
	// ErrDuplicate means the batch ID is already in use.
	ErrDuplicate = errors.New("batch id already exists")
)

// ValidationError reports a malformed or missing field in an operation's
// details payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("engine: invalid %s: %s", e.Field, e.Reason)
}

// TransitionError reports an illegal status transition.
type TransitionError struct {
	BatchID string // business key
	From    string
	To      string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("engine: batch %s cannot move from %s to %s", e.BatchID, e.From, e.To)
}

// isDuplicateKey reports whether err is a unique-constraint violation.
// MySQL signals error 1062; the SQLite driver used in tests reports a
// UNIQUE constraint message.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
