package internal

import (
	"golang.org/x/sync/errgroup"
)

// Outcome is the acknowledgment of a single delete-all or bulk insert call.
type Outcome struct {
	Acknowledged bool
	Count        int64
}

// Join launches fn for every index in [0, n) without waiting for earlier
// calls, then waits for all of them. limit caps in-flight calls, 0 means no
// cap. The first error returned by any call, in completion order, is
// returned after every call finished.
func Join(n, limit int, fn func(i int) (Outcome, error)) ([]Outcome, error) {
	outcomes := make([]Outcome, n)
	var eg errgroup.Group
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			o, err := fn(i)
			if err != nil {
				return err
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
