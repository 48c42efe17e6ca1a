// File: internal/infra/web/mock_test.go
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/domain/ports/repository"
	"storefront-automation/internal/usecase"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type fakeAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]struct{}
}

func newFakeAccountRepo(ids ...string) *fakeAccountRepo {
	m := &fakeAccountRepo{accounts: make(map[string]struct{})}
	for _, id := range ids {
		m.accounts[id] = struct{}{}
	}
	return m
}

func (m *fakeAccountRepo) Exists(ctx context.Context, qx repository.Tx, accountID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[accountID]
	return ok, nil
}

type fakeSubscriptionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{store: make(map[string]*model.Subscription)}
}

func (m *fakeSubscriptionRepo) Save(ctx context.Context, qx repository.Tx, sub *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.store[sub.ID] = &cp
	return nil
}

func (m *fakeSubscriptionRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *fakeSubscriptionRepo) FindActiveByAccount(ctx context.Context, qx repository.Tx, accountID string) (*model.Subscription, error) {
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

func (m *fakeSubscriptionRepo) FindActiveByStore(ctx context.Context, qx repository.Tx, storeID string) (*model.Subscription, error) {
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

func (m *fakeSubscriptionRepo) UpdateStatus(ctx context.Context, qx repository.Tx, id string, status model.SubscriptionStatus) error {
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

func (m *fakeSubscriptionRepo) CountActiveByPlan(ctx context.Context, qx repository.Tx) (map[string]int, error) {
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

type fakeStoreRepo struct {
	mu    sync.Mutex
	store map[string]*model.Store
}

func newFakeStoreRepo() *fakeStoreRepo {
	return &fakeStoreRepo{store: make(map[string]*model.Store)}
}

func (m *fakeStoreRepo) clone(s *model.Store) *model.Store {
	cp := *s
	if s.Automation != nil {
		ap := *s.Automation
		cp.Automation = &ap
	}
	return &cp
}

func (m *fakeStoreRepo) Save(ctx context.Context, qx repository.Tx, s *model.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.ID] = m.clone(s)
	return nil
}

func (m *fakeStoreRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.clone(s), nil
}

func (m *fakeStoreRepo) FindByRunID(ctx context.Context, qx repository.Tx, runID string) (*model.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.Automation != nil && s.Automation.CurrentRunID == runID {
			return m.clone(s), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *fakeStoreRepo) ListByAccount(ctx context.Context, qx repository.Tx, accountID string) ([]*model.Store, error) {
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

func (m *fakeStoreRepo) CountByAccount(ctx context.Context, qx repository.Tx, accountID string) (int, error) {
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

func (m *fakeStoreRepo) InsertWithinLimit(ctx context.Context, qx repository.Tx, s *model.Store, limit int) error {
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

func (m *fakeStoreRepo) MarkDue(ctx context.Context, qx repository.Tx, now time.Time) (int, error) {
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

func (m *fakeStoreRepo) ListDue(ctx context.Context, qx repository.Tx, now, staleBefore time.Time, limit int) ([]*model.Store, error) {
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

func (m *fakeStoreRepo) Claim(ctx context.Context, qx repository.Tx, storeID, runID string, now, staleBefore time.Time) (bool, error) {
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

func (m *fakeStoreRepo) RecordSuccess(ctx context.Context, qx repository.Tx, runID string, now, next time.Time) (bool, error) {
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

func (m *fakeStoreRepo) RecordFailure(ctx context.Context, qx repository.Tx, runID string, now time.Time, next *time.Time, state model.AutomationState, attempts int) (bool, error) {
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

func (m *fakeStoreRepo) ResetError(ctx context.Context, qx repository.Tx, storeID string, next time.Time) (bool, error) {
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

func (m *fakeStoreRepo) ProvisionAutomation(ctx context.Context, qx repository.Tx, storeID string, intervalHours int, next time.Time) error {
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

func (m *fakeStoreRepo) SetDeletionRequested(ctx context.Context, qx repository.Tx, storeID string, requested bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[storeID]
	if !ok {
		return domain.ErrNotFound
	}
	s.DeletionRequested = requested
	return nil
}

func (m *fakeStoreRepo) Delete(ctx context.Context, qx repository.Tx, storeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[storeID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, storeID)
	return nil
}

type fakeCreditRepo struct {
	mu    sync.Mutex
	store map[string]*model.ExtraStoreCredit
}

func newFakeCreditRepo() *fakeCreditRepo {
	return &fakeCreditRepo{store: make(map[string]*model.ExtraStoreCredit)}
}

func (m *fakeCreditRepo) Save(ctx context.Context, qx repository.Tx, c *model.ExtraStoreCredit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *fakeCreditRepo) CountByAccount(ctx context.Context, qx repository.Tx, accountID string) (int, error) {
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

func (m *fakeCreditRepo) CountAssigned(ctx context.Context, qx repository.Tx, accountID string) (int, error) {
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

func (m *fakeCreditRepo) AssignNextAvailable(ctx context.Context, qx repository.Tx, accountID, storeID string) (bool, error) {
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

func (m *fakeCreditRepo) Release(ctx context.Context, qx repository.Tx, storeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.store {
		if c.StoreID != nil && *c.StoreID == storeID {
			c.StoreID = nil
		}
	}
	return nil
}

type fakePaymentRepo struct {
	mu    sync.Mutex
	store map[string]*model.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{store: make(map[string]*model.Payment)}
}

func (m *fakePaymentRepo) Save(ctx context.Context, qx repository.Tx, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *fakePaymentRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *fakePaymentRepo) FindBySessionID(ctx context.Context, qx repository.Tx, sessionID string) (*model.Payment, error) {
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

func (m *fakePaymentRepo) UpdateStatus(ctx context.Context, qx repository.Tx, id string, status model.PaymentStatus, refID *string, paidAt *time.Time) error {
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

func (m *fakePaymentRepo) ListPendingOlderThan(ctx context.Context, qx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
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

type fakeGateway struct {
	mu       sync.Mutex
	sessions map[string]int64
	n        int
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
	amt, ok := g.sessions[sessionID]
	if !ok || amt != expected {
		return "", fmt.Errorf("unknown session %s", sessionID)
	}
	return "ref-" + sessionID, nil
}

const testServiceKey = "svc-test-key"

// apiFixture wires real usecases over in-memory repositories behind a full
// router, so tests exercise routing, auth, and the JSON envelopes end to end.
type apiFixture struct {
	accounts *fakeAccountRepo
	subs     *fakeSubscriptionRepo
	stores   *fakeStoreRepo
	credits  *fakeCreditRepo
	payments *fakePaymentRepo
	gateway  *fakeGateway
	autoUC   *usecase.AutomationUseCase
	auth     *AuthManager
	router   http.Handler
}

func newAPIFixture(t *testing.T, accountIDs ...string) *apiFixture {
	t.Helper()
	f := &apiFixture{
		accounts: newFakeAccountRepo(accountIDs...),
		subs:     newFakeSubscriptionRepo(),
		stores:   newFakeStoreRepo(),
		credits:  newFakeCreditRepo(),
		payments: newFakePaymentRepo(),
		gateway:  newFakeGateway(),
	}
	logger := testLogger()
	catalogUC := usecase.NewCatalogUseCase(nil, logger)
	quotaUC := usecase.NewQuotaUseCase(f.accounts, f.subs, f.stores, f.credits, catalogUC, nil, logger)
	f.autoUC = usecase.NewAutomationUseCase(f.stores, logger)
	storeUC := usecase.NewStoreUseCase(f.stores, f.subs, f.credits, quotaUC, logger)
	checkoutUC := usecase.NewCheckoutUseCase(f.payments, f.subs, f.credits, f.stores,
		catalogUC, quotaUC, f.autoUC, f.gateway, "https://app.example/callback", 6, logger)

	f.auth = NewAuthManager("test-secret", false, "", time.Hour)
	srv := NewServer(quotaUC, storeUC, f.autoUC, checkoutUC, catalogUC, f.auth, testServiceKey, logger)
	f.router = srv.Router()
	return f
}

// token mints a session JWT for the account, bypassing the session endpoint.
func (f *apiFixture) token(t *testing.T, accountID string) string {
	t.Helper()
	tok, err := f.auth.Mint(httptest.NewRecorder(), accountID)
	if err != nil {
		t.Fatalf("mint session: %v", err)
	}
	return tok
}

func (f *apiFixture) do(t *testing.T, method, path, bearer string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) activatePlan(t *testing.T, accountID string, planID model.PlanID) {
	t.Helper()
	plan, err := model.DefaultPlan(planID)
	if err != nil {
		t.Fatalf("default plan: %v", err)
	}
	sub, err := model.NewSubscription(uuid.NewString(), accountID, nil, plan, time.Now().Add(30*24*time.Hour))
	if err != nil {
		t.Fatalf("new subscription: %v", err)
	}
	if err := f.subs.Save(context.Background(), nil, sub); err != nil {
		t.Fatalf("save subscription: %v", err)
	}
}

func (f *apiFixture) seedStore(t *testing.T, accountID, name string) *model.Store {
	t.Helper()
	store, err := model.NewStore(uuid.NewString(), accountID, name, "apparel", "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := f.stores.Save(context.Background(), nil, store); err != nil {
		t.Fatalf("save store: %v", err)
	}
	return store
}
