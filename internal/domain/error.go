package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidExecContext   = errors.New("invalid executor context")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrOperationFailed      = errors.New("database operation failed")
	ErrReadDatabaseRow      = errors.New("failed to read database row")

	// Quota / scheduling errors
	ErrQuotaExceeded        = errors.New("store quota exceeded")
	ErrSubscriptionRequired = errors.New("active subscription required")
	ErrUnknownPlan          = errors.New("unknown plan")
	ErrClaimConflict        = errors.New("store already claimed for processing")
	ErrRetryExhausted       = errors.New("automation retry budget exhausted")
	ErrDeletionBlocked      = errors.New("store deletion blocked")
	ErrNotProvisioned       = errors.New("automation not provisioned")
)

// Machine-readable codes surfaced to API clients. Every user-facing
// blocking reason maps to exactly one code so UIs can branch behavior.
const (
	CodeQuotaExceeded        = "quota_exceeded"
	CodeSubscriptionRequired = "subscription_required"
	CodeUnknownPlan          = "unknown_plan"
	CodeClaimConflict        = "claim_conflict"
	CodeRetryExhausted       = "automation_retry_exhausted"
	CodeDeletionBlocked      = "deletion_blocked"
	CodeNotFound             = "not_found"
	CodeInvalidArgument      = "invalid_argument"
)

// Delete-block reasons reported by the lifecycle guard.
const (
	BlockReasonActiveSubscription = "active_subscription"
	BlockReasonAutomationRunning  = "automation_running"
)

// DeletionBlockedError carries the guard's reason code alongside the sentinel.
type DeletionBlockedError struct {
	Reason string
}

func (e *DeletionBlockedError) Error() string {
	return fmt.Sprintf("store deletion blocked: %s", e.Reason)
}

func (e *DeletionBlockedError) Unwrap() error { return ErrDeletionBlocked }

// Code maps a domain error to its API code. Unknown errors map to "".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return CodeQuotaExceeded
	case errors.Is(err, ErrSubscriptionRequired), errors.Is(err, ErrNoActiveSubscription):
		return CodeSubscriptionRequired
	case errors.Is(err, ErrUnknownPlan):
		return CodeUnknownPlan
	case errors.Is(err, ErrClaimConflict):
		return CodeClaimConflict
	case errors.Is(err, ErrRetryExhausted):
		return CodeRetryExhausted
	case errors.Is(err, ErrDeletionBlocked):
		return CodeDeletionBlocked
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	}
	return ""
}
