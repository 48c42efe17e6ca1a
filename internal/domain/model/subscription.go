package model

import (
	"time"

	"storefront-automation/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
)

// CountsAsActive reports whether the status grants quota. Only `active` and
// `trialing` do; `past_due` keeps the row but no longer grants slots.
func (s SubscriptionStatus) CountsAsActive() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// Subscription ties an account (and optionally a specific store) to a plan.
// The account-level row (StoreID nil) drives quota; a store-level row keeps
// that store's automation billed and blocks its deletion while active.
type Subscription struct {
	ID               string
	AccountID        string
	StoreID          *string // nil for the account's plan subscription
	PlanID           PlanID
	Status           SubscriptionStatus
	CurrentPeriodEnd time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewSubscription validates and constructs an active subscription.
func NewSubscription(id, accountID string, storeID *string, plan *Plan, periodEnd time.Time) (*Subscription, error) {
	if id == "" || accountID == "" || plan.IsZero() || periodEnd.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:               id,
		AccountID:        accountID,
		StoreID:          storeID,
		PlanID:           plan.ID,
		Status:           SubscriptionStatusActive,
		CurrentPeriodEnd: periodEnd,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
