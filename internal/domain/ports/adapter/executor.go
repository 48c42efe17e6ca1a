package adapter

import (
	"context"
	"errors"

	"storefront-automation/internal/domain/model"
)

// ListingExecutor runs one listing-automation attempt for a claimed store.
// What the run actually uploads is outside this service; the scheduler only
// needs success, recoverable failure, or permanent failure.
//
// Cancellation of an in-flight run belongs to the executor, not the
// scheduler; the scheduler only tracks that a run is outstanding.
type ListingExecutor interface {
	Name() string
	Run(ctx context.Context, store *model.Store, runID string) error
}

// RecoverableError marks an executor failure as transient so the scheduler
// retries with backoff instead of going straight to the error state.
type RecoverableError struct {
	Err error
}

func (e *RecoverableError) Error() string { return "recoverable: " + e.Err.Error() }
func (e *RecoverableError) Unwrap() error { return e.Err }

// Recoverable wraps err as a transient failure.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &RecoverableError{Err: err}
}

// IsRecoverable reports whether err was marked transient.
func IsRecoverable(err error) bool {
	var re *RecoverableError
	return errors.As(err, &re)
}
