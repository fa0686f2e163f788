package dbfixture

import "fmt"

// TruncationError reports a delete-all call that was not acknowledged.
// Deleted is the count that collection's result carried.
type TruncationError struct {
	Collection string
	Deleted    int64
}

func (e *TruncationError) Error() string {
	return fmt.Sprintf("Failed to truncate \"%s\", having deleted %d documents.",
		e.Collection, e.Deleted)
}

// FixtureInsertionError reports a bulk insert that was not acknowledged.
// Inserted may be lower than the number of documents given.
type FixtureInsertionError struct {
	Collection string
	Inserted   int64
}

func (e *FixtureInsertionError) Error() string {
	return fmt.Sprintf("Failed to insert the fixtures for the collection \"%s\""+
		", having inserted %d documents.", e.Collection, e.Inserted)
}
