package usecase

import (
	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/model"
)

// GuardDecision is the lifecycle guard's answer to "may this store be
// deleted, and if not, why".
type GuardDecision struct {
	CanDelete bool   `json:"canDelete"`
	Reason    string `json:"deleteBlockedReason,omitempty"`
}

// evaluateGuard applies the deletion rules to already-loaded state:
// an active store subscription blocks (billing would silently continue for
// a deleted resource), and an in-flight run (processing or retrying) must
// not be deleted out from under itself.
func evaluateGuard(store *model.Store, storeSub *model.Subscription) GuardDecision {
	if storeSub != nil && storeSub.Status.CountsAsActive() {
		return GuardDecision{Reason: domain.BlockReasonActiveSubscription}
	}
	if p := store.Automation; p.Provisioned() {
		if p.State == model.AutomationStateProcessing || p.State == model.AutomationStateRetrying {
			return GuardDecision{Reason: domain.BlockReasonAutomationRunning}
		}
	}
	return GuardDecision{CanDelete: true}
}
