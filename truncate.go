package dbfixture

import (
	"github.com/elvinchan/dbfixture/internal"
)

// TruncateAll runs deleteAll for every collection without waiting for the
// previous one and returns once all of them completed.
//
// An error returned by deleteAll is passed through unchanged. When more than
// one call errors, the one observed first wins, which is not deterministic.
// When no call errors, the first unacknowledged outcome in input order is
// reported as a *TruncationError.
func TruncateAll(collections []string,
	deleteAll func(collection string) (Outcome, error), opts *Options,
) error {
	if len(collections) == 0 {
		return nil
	}
	var limit int
	if opts != nil {
		limit = opts.Concurrency
	}
	outcomes, err := internal.Join(len(collections), limit,
		func(i int) (Outcome, error) {
			return deleteAll(collections[i])
		})
	if err != nil {
		return err
	}
	for i, o := range outcomes {
		if !o.Acknowledged {
			return &TruncationError{
				Collection: collections[i],
				Deleted:    o.Count,
			}
		}
	}
	return nil
}

// CheckInsert turns the outcome of a bulk insert into an error.
func CheckInsert(collection string, o Outcome) error {
	if !o.Acknowledged {
		return &FixtureInsertionError{
			Collection: collection,
			Inserted:   o.Count,
		}
	}
	return nil
}
