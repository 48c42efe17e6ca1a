package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/domain/ports/adapter"
	"storefront-automation/internal/domain/ports/repository"
)

const (
	monthlyPeriod = 30 * 24 * time.Hour
	yearlyPeriod  = 365 * 24 * time.Hour
)

// CheckoutUseCase creates provider checkout sessions for plan subscriptions
// and extra-store slots, and grants the entitlement once the provider
// verifies payment. Confirm is idempotent per session: callbacks and the
// reconciler may both land on the same payment.
type CheckoutUseCase struct {
	payments             repository.PaymentRepository
	subs                 repository.SubscriptionRepository
	credits              repository.CreditRepository
	stores               repository.StoreRepository
	catalog              *CatalogUseCase
	quota                *QuotaUseCase
	automation           *AutomationUseCase
	gateway              adapter.CheckoutGateway
	callbackURL          string
	defaultIntervalHours int
	txm                  repository.TransactionManager
	log                  *zerolog.Logger
}

func NewCheckoutUseCase(
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	credits repository.CreditRepository,
	stores repository.StoreRepository,
	catalog *CatalogUseCase,
	quota *QuotaUseCase,
	automation *AutomationUseCase,
	gateway adapter.CheckoutGateway,
	callbackURL string,
	defaultIntervalHours int,
	logger *zerolog.Logger,
	txmOpt ...repository.TransactionManager,
) *CheckoutUseCase {
	var txm repository.TransactionManager
	if len(txmOpt) > 0 {
		txm = txmOpt[0]
	}
	cLog := logger.With().Str("component", "CheckoutUseCase").Logger()
	if defaultIntervalHours <= 0 {
		defaultIntervalHours = 4
	}
	return &CheckoutUseCase{
		payments:             payments,
		subs:                 subs,
		credits:              credits,
		stores:               stores,
		catalog:              catalog,
		quota:                quota,
		automation:           automation,
		gateway:              gateway,
		callbackURL:          callbackURL,
		defaultIntervalHours: defaultIntervalHours,
		txm:                  txm,
		log:                  &cLog,
	}
}

// Start opens a checkout session for the decoded intent and returns the
// pending payment plus the provider redirect URL.
func (uc *CheckoutUseCase) Start(ctx context.Context, accountID string, intent *model.CheckoutIntent) (*model.Payment, string, error) {
	if accountID == "" || intent == nil {
		return nil, "", domain.ErrInvalidArgument
	}

	var (
		p   = &model.Payment{ID: uuid.NewString(), AccountID: accountID, Provider: uc.gateway.Name(), Currency: "USD"}
		err error
	)
	switch intent.Type {
	case model.CheckoutIntentSubscription:
		err = uc.fillSubscriptionPayment(ctx, p, intent.Subscription)
	case model.CheckoutIntentExtraStore:
		err = uc.fillExtraStorePayment(ctx, p)
	default:
		err = fmt.Errorf("%w: checkout type %q", domain.ErrInvalidArgument, intent.Type)
	}
	if err != nil {
		return nil, "", err
	}

	sessionID, payURL, err := uc.gateway.CreateSession(ctx, p.AmountCents, p.Description, uc.callbackURL, p.Meta)
	if err != nil {
		return nil, "", fmt.Errorf("create checkout session: %w", err)
	}

	now := time.Now()
	p.SessionID = sessionID
	p.Status = model.PaymentStatusPending
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := uc.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, "", err
	}
	uc.log.Info().Str("payment_id", p.ID).Str("kind", string(p.Kind)).Int64("amount_cents", p.AmountCents).
		Msg("checkout session created")
	return p, payURL, nil
}

func (uc *CheckoutUseCase) fillSubscriptionPayment(ctx context.Context, p *model.Payment, in *model.SubscriptionIntent) error {
	plan, err := uc.catalog.Lookup(ctx, in.PlanID)
	if err != nil {
		return err
	}
	p.Kind = model.PaymentKindSubscription
	p.PlanID = plan.ID
	p.Yearly = in.Yearly
	if in.Yearly {
		p.AmountCents = plan.YearlyPriceCents
		p.Description = fmt.Sprintf("%s plan, yearly", plan.Name)
	} else {
		p.AmountCents = plan.MonthlyPriceCents
		p.Description = fmt.Sprintf("%s plan, monthly", plan.Name)
	}
	interval := in.IntervalHours
	if interval <= 0 {
		interval = uc.defaultIntervalHours
	}
	p.Meta = map[string]interface{}{"interval_hours": interval}
	if in.StoreID != "" {
		if _, err := uc.stores.FindByID(ctx, repository.NoTX, in.StoreID); err != nil {
			return err
		}
		sid := in.StoreID
		p.StoreID = &sid
	}
	return nil
}

func (uc *CheckoutUseCase) fillExtraStorePayment(ctx context.Context, p *model.Payment) error {
	// The slot is priced at the account's current tier, so an active plan
	// subscription is required.
	sub, err := uc.subs.FindActiveByAccount(ctx, repository.NoTX, p.AccountID)
	if err != nil {
		if err == domain.ErrNotFound {
			return domain.ErrSubscriptionRequired
		}
		return err
	}
	plan, err := uc.catalog.Lookup(ctx, sub.PlanID)
	if err != nil {
		return err
	}
	p.Kind = model.PaymentKindExtraStore
	p.PlanID = plan.ID
	p.AmountCents = plan.ExtraStorePriceCents
	p.Description = fmt.Sprintf("extra store slot (%s tier)", plan.Name)
	return nil
}

// Confirm verifies the session with the provider and, on first success,
// grants the entitlement. Safe to call repeatedly for the same session.
func (uc *CheckoutUseCase) Confirm(ctx context.Context, sessionID string) (*model.Payment, error) {
	p, err := uc.payments.FindBySessionID(ctx, repository.NoTX, sessionID)
	if err != nil {
		return nil, err
	}
	if p.Status == model.PaymentStatusSucceeded {
		return p, nil // already granted
	}
	if p.Status != model.PaymentStatusPending && p.Status != model.PaymentStatusInitiated {
		return p, fmt.Errorf("%w: payment %s is %s", domain.ErrInvalidArgument, p.ID, p.Status)
	}

	refID, verifyErr := uc.gateway.VerifySession(ctx, sessionID, p.AmountCents)
	now := time.Now()
	if verifyErr != nil {
		_ = uc.payments.UpdateStatus(ctx, repository.NoTX, p.ID, model.PaymentStatusFailed, nil, nil)
		p.Status = model.PaymentStatusFailed
		return p, verifyErr
	}

	// Grant and status flip commit together so a crash in between cannot
	// leave a paid-but-unentitled account.
	apply := func(ctx context.Context, qx repository.Tx) error {
		if err := uc.grant(ctx, qx, p, now); err != nil {
			return err
		}
		return uc.payments.UpdateStatus(ctx, qx, p.ID, model.PaymentStatusSucceeded, &refID, &now)
	}
	if uc.txm != nil {
		err = uc.txm.WithTx(ctx, pgx.TxOptions{}, apply)
	} else {
		err = apply(ctx, repository.NoTX)
	}
	if err != nil {
		return nil, err
	}
	// A store-scoped subscription switches on that store's automation.
	if p.Kind == model.PaymentKindSubscription && p.StoreID != nil {
		if err := uc.automation.Provision(ctx, *p.StoreID, uc.intervalFor(p)); err != nil {
			return nil, err
		}
	}
	p.Status = model.PaymentStatusSucceeded
	p.RefID = refID
	p.PaidAt = &now
	uc.quota.Invalidate(ctx, p.AccountID)
	uc.log.Info().Str("payment_id", p.ID).Str("kind", string(p.Kind)).Msg("checkout confirmed, entitlement granted")
	return p, nil
}

func (uc *CheckoutUseCase) grant(ctx context.Context, qx repository.Tx, p *model.Payment, now time.Time) error {
	switch p.Kind {
	case model.PaymentKindSubscription:
		plan, err := uc.catalog.Lookup(ctx, p.PlanID)
		if err != nil {
			return err
		}
		period := monthlyPeriod
		if p.Yearly {
			period = yearlyPeriod
		}
		sub, err := model.NewSubscription(uuid.NewString(), p.AccountID, p.StoreID, plan, now.Add(period))
		if err != nil {
			return err
		}
		return uc.subs.Save(ctx, qx, sub)
	case model.PaymentKindExtraStore:
		credit := &model.ExtraStoreCredit{
			ID:          uuid.NewString(),
			AccountID:   p.AccountID,
			PlanID:      p.PlanID,
			PurchasedAt: now,
		}
		return uc.credits.Save(ctx, qx, credit)
	default:
		return fmt.Errorf("%w: payment kind %q", domain.ErrInvalidArgument, p.Kind)
	}
}

// intervalFor reads the automation interval captured at checkout time.
func (uc *CheckoutUseCase) intervalFor(p *model.Payment) int {
	if v, ok := p.Meta["interval_hours"]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64: // JSONB round trip
			return int(n)
		}
	}
	return uc.defaultIntervalHours
}

// ReconcilePending retries verification for pending payments older than
// cutoff. Covers lost callbacks and crashes mid-confirm.
func (uc *CheckoutUseCase) ReconcilePending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	pending, err := uc.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, limit)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range pending {
		if p.SessionID == "" {
			continue
		}
		if _, err := uc.Confirm(ctx, p.SessionID); err != nil {
			uc.log.Warn().Err(err).Str("payment_id", p.ID).Msg("reconcile confirm failed")
			continue
		}
		n++
	}
	return n, nil
}
