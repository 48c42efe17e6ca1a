package model

import (
	"time"
)

// AutomationState tracks where a store sits in its recurring listing cycle.
type AutomationState string

const (
	AutomationStateWaiting    AutomationState = "waiting"
	AutomationStateDue        AutomationState = "due"
	AutomationStateProcessing AutomationState = "processing"
	AutomationStateRetrying   AutomationState = "retrying"
	AutomationStateError      AutomationState = "error"
)

// Retry policy: up to MaxRunAttempts per cycle, delay doubling from
// RetryBaseDelay and capped at RetryMaxDelay. A `processing` claim older
// than ClaimStaleAfter is treated as abandoned and may be re-claimed.
const (
	MaxRunAttempts  = 3
	RetryBaseDelay  = 10 * time.Minute
	RetryMaxDelay   = 2 * time.Hour
	ClaimStaleAfter = 15 * time.Minute
)

// RetryDelay returns the backoff before retry number `attempt` (1-based).
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := RetryBaseDelay << (attempt - 1)
	if d > RetryMaxDelay {
		return RetryMaxDelay
	}
	return d
}

// transitions is the only legal edge set. Notably waiting never jumps
// straight to processing; it must pass through due.
var transitions = map[AutomationState][]AutomationState{
	AutomationStateWaiting:    {AutomationStateDue},
	AutomationStateDue:        {AutomationStateProcessing},
	AutomationStateProcessing: {AutomationStateWaiting, AutomationStateRetrying},
	AutomationStateRetrying:   {AutomationStateProcessing, AutomationStateError},
	AutomationStateError:      {AutomationStateWaiting}, // explicit reset only
}

// CanTransitionTo reports whether s -> next is a legal edge.
func (s AutomationState) CanTransitionTo(next AutomationState) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// AutomationProfile is a store's position in its automation cycle. It exists
// only once automation has been provisioned (paid plan attached).
type AutomationProfile struct {
	IntervalHours int
	State         AutomationState
	Attempts      int
	LastRunAt     *time.Time
	LastSuccessAt *time.Time
	NextRunAt     *time.Time
	ClaimedAt     *time.Time
	CurrentRunID  string
}

// Provisioned reports whether automation is active for the profile. A zero
// interval or missing next-run timestamp means "not provisioned", which is
// distinct from `waiting`: such stores show no countdown and are excluded
// from due sweeps.
func (p *AutomationProfile) Provisioned() bool {
	return p != nil && p.IntervalHours > 0 && p.NextRunAt != nil
}

// Interval returns the cadence as a duration.
func (p *AutomationProfile) Interval() time.Duration {
	return time.Duration(p.IntervalHours) * time.Hour
}

// NextDue derives the next run time: last successful run plus the interval,
// or the provisioning baseline when no run ever succeeded. Never settable by
// a client directly.
func (p *AutomationProfile) NextDue() *time.Time {
	if !p.Provisioned() {
		return nil
	}
	if p.LastSuccessAt == nil {
		return p.NextRunAt
	}
	t := p.LastSuccessAt.Add(p.Interval())
	return &t
}

// DueAt reports whether the store should flip waiting -> due at `now`.
func (p *AutomationProfile) DueAt(now time.Time) bool {
	if !p.Provisioned() || p.State != AutomationStateWaiting {
		return false
	}
	return !now.Before(*p.NextRunAt)
}
