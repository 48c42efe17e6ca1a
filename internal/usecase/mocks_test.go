// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/domain/ports/repository"
)

// memAccountRepo is a small in-memory implementation used by unit tests.
type memAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]struct{}
	err      error // simulate upstream failure
}

func newMemAccountRepo(ids ...string) *memAccountRepo {
	m := &memAccountRepo{accounts: make(map[string]struct{})}
	for _, id := range ids {
		m.accounts[id] = struct{}{}
	}
	return m
}

func (m *memAccountRepo) Exists(ctx context.Context, qx repository.Tx, accountID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[accountID]
	return ok, nil
}

type memPlanRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Plan
	err   error
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{store: make(map[string]*model.Plan)}
}

func (m *memPlanRepo) Save(ctx context.Context, qx repository.Tx, plan *model.Plan) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *plan
	m.store[string(plan.ID)] = &cp
	return nil
}

func (m *memPlanRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Plan, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlanRepo) ListAll(ctx context.Context, qx repository.Tx) ([]*model.Plan, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Plan, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memPlanRepo) Delete(ctx context.Context, qx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

type memSubscriptionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Subscription
	err   error
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubscriptionRepo) Save(ctx context.Context, qx repository.Tx, sub *model.Subscription) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.store[sub.ID] = &cp
	return nil
}

func (m *memSubscriptionRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscriptionRepo) FindActiveByAccount(ctx context.Context, qx repository.Tx, accountID string) (*model.Subscription, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.AccountID == accountID && s.StoreID == nil && s.Status.CountsAsActive() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubscriptionRepo) FindActiveByStore(ctx context.Context, qx repository.Tx, storeID string) (*model.Subscription, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.StoreID != nil && *s.StoreID == storeID && s.Status.CountsAsActive() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubscriptionRepo) UpdateStatus(ctx context.Context, qx repository.Tx, id string, status model.SubscriptionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = time.Now()
	return nil
}

func (m *memSubscriptionRepo) CountActiveByPlan(ctx context.Context, qx repository.Tx) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]int{}
	for _, s := range m.store {
		if s.Status.CountsAsActive() {
			out[string(s.PlanID)]++
		}
	}
	return out, nil
}

type memStoreRepo struct {
	mu       sync.Mutex
	store    map[string]*model.Store
	countErr error
}

func newMemStoreRepo() *memStoreRepo {
	return &memStoreRepo{store: make(map[string]*model.Store)}
}

func (m *memStoreRepo) clone(s *model.Store) *model.Store {
	cp := *s
	if s.Automation != nil {
		ap := *s.Automation
		cp.Automation = &ap
	}
	return &cp
}

func (m *memStoreRepo) Save(ctx context.Context, qx repository.Tx, s *model.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.ID] = m.clone(s)
	return nil
}

func (m *memStoreRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.clone(s), nil
}

func (m *memStoreRepo) FindByRunID(ctx context.Context, qx repository.Tx, runID string) (*model.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.Automation != nil && s.Automation.CurrentRunID == runID {
			return m.clone(s), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStoreRepo) ListByAccount(ctx context.Context, qx repository.Tx, accountID string) ([]*model.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Store
	for _, s := range m.store {
		if s.AccountID == accountID {
			out = append(out, m.clone(s))
		}
	}
	return out, nil
}

func (m *memStoreRepo) CountByAccount(ctx context.Context, qx repository.Tx, accountID string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.store {
		if s.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (m *memStoreRepo) InsertWithinLimit(ctx context.Context, qx repository.Tx, s *model.Store, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, existing := range m.store {
		if existing.AccountID == s.AccountID {
			n++
		}
	}
	if n >= limit {
		return domain.ErrQuotaExceeded
	}
	m.store[s.ID] = m.clone(s)
	return nil
}

func (m *memStoreRepo) MarkDue(ctx context.Context, qx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.store {
		if !s.DeletionRequested && s.Automation.DueAt(now) {
			s.Automation.State = model.AutomationStateDue
			n++
		}
	}
	return n, nil
}

func (m *memStoreRepo) ListDue(ctx context.Context, qx repository.Tx, now, staleBefore time.Time, limit int) ([]*model.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Store
	for _, s := range m.store {
		if s.DeletionRequested || !s.Automation.Provisioned() {
			continue
		}
		switch s.Automation.State {
		case model.AutomationStateDue:
			out = append(out, m.clone(s))
		case model.AutomationStateRetrying:
			if s.Automation.NextRunAt != nil && !now.Before(*s.Automation.NextRunAt) {
				out = append(out, m.clone(s))
			}
		case model.AutomationStateProcessing:
			if s.Automation.ClaimedAt != nil && s.Automation.ClaimedAt.Before(staleBefore) {
				out = append(out, m.clone(s))
			}
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Claim performs the compare-and-set under the repo mutex, mirroring the
// conditional UPDATE the Postgres implementation runs.
func (m *memStoreRepo) Claim(ctx context.Context, qx repository.Tx, storeID, runID string, now, staleBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[storeID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if s.DeletionRequested || !s.Automation.Provisioned() {
		return false, nil
	}
	claimable := false
	switch s.Automation.State {
	case model.AutomationStateDue:
		claimable = true
	case model.AutomationStateRetrying:
		claimable = s.Automation.NextRunAt != nil && !now.Before(*s.Automation.NextRunAt)
	case model.AutomationStateProcessing:
		claimable = s.Automation.ClaimedAt != nil && s.Automation.ClaimedAt.Before(staleBefore)
	}
	if !claimable {
		return false, nil
	}
	s.Automation.State = model.AutomationStateProcessing
	s.Automation.ClaimedAt = &now
	s.Automation.CurrentRunID = runID
	return true, nil
}

func (m *memStoreRepo) RecordSuccess(ctx context.Context, qx repository.Tx, runID string, now, next time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.Automation != nil && s.Automation.CurrentRunID == runID {
			if s.Automation.State != model.AutomationStateProcessing {
				return false, nil
			}
			n, nx := now, next
			s.Automation.State = model.AutomationStateWaiting
			s.Automation.LastRunAt = &n
			s.Automation.LastSuccessAt = &n
			s.Automation.NextRunAt = &nx
			s.Automation.Attempts = 0
			s.Automation.ClaimedAt = nil
			s.Automation.CurrentRunID = ""
			return true, nil
		}
	}
	return false, nil
}

func (m *memStoreRepo) RecordFailure(ctx context.Context, qx repository.Tx, runID string, now time.Time, next *time.Time, state model.AutomationState, attempts int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.Automation != nil && s.Automation.CurrentRunID == runID {
			if s.Automation.State != model.AutomationStateProcessing {
				return false, nil
			}
			n := now
			s.Automation.State = state
			s.Automation.LastRunAt = &n
			s.Automation.NextRunAt = next
			s.Automation.Attempts = attempts
			s.Automation.ClaimedAt = nil
			if state == model.AutomationStateError {
				s.Automation.CurrentRunID = ""
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *memStoreRepo) ResetError(ctx context.Context, qx repository.Tx, storeID string, next time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[storeID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if s.Automation == nil || s.Automation.State != model.AutomationStateError {
		return false, nil
	}
	nx := next
	s.Automation.State = model.AutomationStateWaiting
	s.Automation.NextRunAt = &nx
	s.Automation.Attempts = 0
	return true, nil
}

func (m *memStoreRepo) ProvisionAutomation(ctx context.Context, qx repository.Tx, storeID string, intervalHours int, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[storeID]
	if !ok {
		return domain.ErrNotFound
	}
	if s.Automation.Provisioned() {
		return nil
	}
	nx := next
	s.Automation = &model.AutomationProfile{
		IntervalHours: intervalHours,
		State:         model.AutomationStateWaiting,
		NextRunAt:     &nx,
	}
	return nil
}

func (m *memStoreRepo) SetDeletionRequested(ctx context.Context, qx repository.Tx, storeID string, requested bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[storeID]
	if !ok {
		return domain.ErrNotFound
	}
	s.DeletionRequested = requested
	return nil
}

func (m *memStoreRepo) Delete(ctx context.Context, qx repository.Tx, storeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[storeID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, storeID)
	return nil
}

type memCreditRepo struct {
	mu    sync.Mutex
	store map[string]*model.ExtraStoreCredit
	err   error
}

func newMemCreditRepo() *memCreditRepo {
	return &memCreditRepo{store: make(map[string]*model.ExtraStoreCredit)}
}

func (m *memCreditRepo) Save(ctx context.Context, qx repository.Tx, c *model.ExtraStoreCredit) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *memCreditRepo) CountByAccount(ctx context.Context, qx repository.Tx, accountID string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.store {
		if c.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (m *memCreditRepo) CountAssigned(ctx context.Context, qx repository.Tx, accountID string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.store {
		if c.AccountID == accountID && c.StoreID != nil {
			n++
		}
	}
	return n, nil
}

func (m *memCreditRepo) AssignNextAvailable(ctx context.Context, qx repository.Tx, accountID, storeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.store {
		if c.AccountID == accountID && c.StoreID == nil {
			sid := storeID
			c.StoreID = &sid
			return true, nil
		}
	}
	return false, nil
}

func (m *memCreditRepo) Release(ctx context.Context, qx repository.Tx, storeID string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.store {
		if c.StoreID != nil && *c.StoreID == storeID {
			c.StoreID = nil
		}
	}
	return nil
}

type memPaymentRepo struct {
	mu    sync.Mutex
	store map[string]*model.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[string]*model.Payment)}
}

func (m *memPaymentRepo) Save(ctx context.Context, qx repository.Tx, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) FindBySessionID(ctx context.Context, qx repository.Tx, sessionID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.SessionID == sessionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) UpdateStatus(ctx context.Context, qx repository.Tx, id string, status model.PaymentStatus, refID *string, paidAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	if refID != nil {
		p.RefID = *refID
	}
	p.PaidAt = paidAt
	p.UpdatedAt = time.Now()
	return nil
}

func (m *memPaymentRepo) ListPendingOlderThan(ctx context.Context, qx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// fakeGateway verifies every session it created; sessions it never issued fail.
type fakeGateway struct {
	mu        sync.Mutex
	sessions  map[string]int64
	n         int
	verifyErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: make(map[string]int64)}
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) CreateSession(ctx context.Context, amountCents int64, description, callbackURL string, meta map[string]interface{}) (string, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	id := fmt.Sprintf("sess-%d", g.n)
	g.sessions[id] = amountCents
	return id, "https://pay.example/" + id, nil
}

func (g *fakeGateway) VerifySession(ctx context.Context, sessionID string, expected int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifyErr != nil {
		return "", g.verifyErr
	}
	amt, ok := g.sessions[sessionID]
	if !ok || amt != expected {
		return "", fmt.Errorf("unknown session %s", sessionID)
	}
	return "ref-" + sessionID, nil
}
