package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"storefront-automation/internal/domain"
)

type CheckoutIntentType string

const (
	CheckoutIntentSubscription CheckoutIntentType = "subscription"
	CheckoutIntentExtraStore   CheckoutIntentType = "extra_store"
)

// SubscriptionIntent buys (or upgrades to) a plan. StoreID, when set,
// attaches the subscription to that store and provisions its automation.
type SubscriptionIntent struct {
	PlanID        PlanID `json:"planId"`
	Yearly        bool   `json:"yearly"`
	StoreID       string `json:"storeId,omitempty"`
	IntervalHours int    `json:"intervalHours,omitempty"`
}

// ExtraStoreIntent buys one extra store slot at the account's current tier.
type ExtraStoreIntent struct{}

// CheckoutIntent is the closed set of checkout payloads. Unknown types and
// unknown fields are rejected at the boundary, never coerced.
type CheckoutIntent struct {
	Type         CheckoutIntentType  `json:"type"`
	Subscription *SubscriptionIntent `json:"subscription,omitempty"`
	ExtraStore   *ExtraStoreIntent   `json:"extraStore,omitempty"`
}

// DecodeCheckoutIntent strictly parses a checkout payload.
func DecodeCheckoutIntent(data []byte) (*CheckoutIntent, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var in CheckoutIntent
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	switch in.Type {
	case CheckoutIntentSubscription:
		if in.Subscription == nil || in.ExtraStore != nil {
			return nil, fmt.Errorf("%w: subscription payload required", domain.ErrInvalidArgument)
		}
		if !ValidPlanID(in.Subscription.PlanID) {
			return nil, domain.ErrUnknownPlan
		}
		if in.Subscription.IntervalHours < 0 {
			return nil, fmt.Errorf("%w: negative interval", domain.ErrInvalidArgument)
		}
	case CheckoutIntentExtraStore:
		if in.Subscription != nil {
			return nil, fmt.Errorf("%w: unexpected subscription payload", domain.ErrInvalidArgument)
		}
	default:
		return nil, fmt.Errorf("%w: unknown checkout type %q", domain.ErrInvalidArgument, in.Type)
	}
	return &in, nil
}
