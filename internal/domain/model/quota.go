package model

// UpgradeOption is a larger plan the account could move to. Always offered,
// even while slots remain, so users can plan ahead.
type UpgradeOption struct {
	Plan              PlanID `json:"plan"`
	IncludedStores    int    `json:"includedStores"`
	MonthlyPriceCents int64  `json:"monthlyPriceCents"`
}

// Quota is the computed snapshot of an account's store-creation capacity at
// a point in time. It is a pure read; creation re-resolves it inside the
// insert transaction rather than trusting a client-cached copy.
type Quota struct {
	Plan                  PlanID          `json:"plan,omitempty"`
	HasActiveSubscription bool            `json:"hasActiveSubscription"`
	IncludedStoreLimit    int             `json:"includedStoreLimit"`
	TotalStores           int             `json:"totalStores"`
	PurchasedExtraStores  int             `json:"purchasedExtraStores"`
	UsedExtraStores       int             `json:"usedExtraStores"`
	RemainingSlots        int             `json:"remainingSlots"`
	CanCreateStore        bool            `json:"canCreateStore"`
	ExtraStorePriceCents  int64           `json:"extraStorePriceCents"`
	UpgradeOptions        []UpgradeOption `json:"upgradeOptions"`
}

// Ceiling is the hard upper bound on stores for the snapshot.
func (q *Quota) Ceiling() int {
	return q.IncludedStoreLimit + q.PurchasedExtraStores
}
