package dbfixture

import (
	"errors"

	"github.com/elvinchan/dbfixture/internal"
)

var (
	ErrUnsupportedDriver = errors.New("unsupported driver")
	ErrInvalidDocument   = errors.New("invalid fixture document")
)

// Outcome is what a backend reports for one delete-all or bulk insert call.
// Only an acknowledged outcome counts as success, a nil error alone is not
// enough.
type Outcome = internal.Outcome

// Driver manages fixture state of one database connection.
type Driver interface {
	// Truncate deletes every document of each collection, concurrently.
	Truncate(collections []string) error

	// InsertFixtures inserts docs into collection with a single bulk call.
	InsertFixtures(collection string, docs []interface{}) error

	// Close closes the underlying connection. Calling it twice, or using the
	// driver afterwards, has whatever behavior the database driver defines.
	// The one exception is empty input: Truncate with no collections and
	// InsertFixtures with no documents return nil without touching the
	// connection, so they succeed even after Close.
	Close() error
}
