package model

import (
	"time"

	"storefront-automation/internal/domain"
)

type StoreStatus string

const (
	StoreStatusActive   StoreStatus = "active"
	StoreStatusInactive StoreStatus = "inactive"
)

// Store is a single storefront owned by an account. Its automation profile
// is nil until a paid plan is attached to the store.
type Store struct {
	ID         string
	AccountID  string
	Name       string
	Category   string
	Phone      string
	Status     StoreStatus
	PriceCents int64
	OrderCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// DeletionRequested freezes the store for the scheduler: once set, the
	// sweep never claims it again.
	DeletionRequested bool

	Automation *AutomationProfile
}

// NewStore validates and constructs a store with no automation attached.
func NewStore(id, accountID, name, category, phone string) (*Store, error) {
	if id == "" || accountID == "" || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Store{
		ID:        id,
		AccountID: accountID,
		Name:      name,
		Category:  category,
		Phone:     phone,
		Status:    StoreStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ExtraStoreCredit is a purchased single-unit entitlement raising the
// account's store ceiling by one. Assigned (StoreID set) when a store is
// created beyond the plan's included count; freed again on store deletion.
type ExtraStoreCredit struct {
	ID          string
	AccountID   string
	PlanID      PlanID // tier at time of purchase
	StoreID     *string
	PurchasedAt time.Time
}

// StoreOverview is the read-model row the dashboard consumes. It is derived
// entirely from persisted state; the UI never computes transitions itself.
type StoreOverview struct {
	ID                       string           `json:"id"`
	StoreName                string           `json:"storeName"`
	Category                 string           `json:"category"`
	Status                   StoreStatus      `json:"status"`
	PriceCents               int64            `json:"priceCents"`
	OrderCount               int              `json:"orderCount"`
	HasActiveSubscription    bool             `json:"hasActiveSubscription"`
	Plan                     PlanID           `json:"plan,omitempty"`
	SubscriptionStatus       string           `json:"subscriptionStatus,omitempty"`
	AutomationIntervalHours  int              `json:"automationIntervalHours,omitempty"`
	AutomationLastRunAt      *time.Time       `json:"automationLastRunAt,omitempty"`
	LastSuccessfulAutomation *time.Time       `json:"lastSuccessfulAutomationAt,omitempty"`
	NextAutomationAt         *time.Time       `json:"nextAutomationAt,omitempty"`
	AutomationState          *AutomationState `json:"automationState,omitempty"`
	CanDelete                bool             `json:"canDelete"`
	DeleteBlockedReason      string           `json:"deleteBlockedReason,omitempty"`
}
