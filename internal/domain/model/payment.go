package model

import "time"

type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "initiated" // session created on provider side
	PaymentStatusPending   PaymentStatus = "pending"   // redirected to gateway; awaiting verification
	PaymentStatusSucceeded PaymentStatus = "succeeded" // verified OK at provider
	PaymentStatusFailed    PaymentStatus = "failed"    // verification failed or explicitly failed
	PaymentStatusCancelled PaymentStatus = "cancelled" // admin/user cancel
)

// PaymentKind says what the checkout buys: a plan subscription or a single
// extra store slot.
type PaymentKind string

const (
	PaymentKindSubscription PaymentKind = "subscription"
	PaymentKindExtraStore   PaymentKind = "extra_store"
)

// Payment records the external checkout intent/transaction. Entitlements
// (subscription rows, extra-store credits) are granted only on verified
// success, idempotently keyed by the provider session.
type Payment struct {
	ID          string
	AccountID   string
	Kind        PaymentKind
	PlanID      PlanID
	StoreID     *string // subscription checkouts may target a specific store
	Yearly      bool
	Provider    string
	AmountCents int64
	Currency    string
	SessionID   string // provider session/authority token
	RefID       string // provider reference after verification
	Status      PaymentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PaidAt      *time.Time
	Description string
	Meta        map[string]interface{} // serialized as JSONB
}
