package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrRouteSource means the route file could not be read; the invocation is aborted
	ErrRouteSource = errors.New("route source unavailable")
	// ErrPersistenceUnavailable means the store failed its readiness check
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrPersistExhausted means every persistence attempt for a batch failed
	ErrPersistExhausted = errors.New("persistence retries exhausted")
)

// PairError reports the failure of one route/date pair
type PairError struct {
	Origin      string
	Destination string
	Date        string
	Err         error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("route %s-%s on %s: %v", e.Origin, e.Destination, e.Date, e.Err)
}

func (e *PairError) Unwrap() error {
	return e.Err
}
