package repository

import (
	"context"
	"time"

	"storefront-automation/internal/domain/model"
)

// PaymentRepository is the port for checkout payments.
type PaymentRepository interface {
	Save(ctx context.Context, qx Tx, p *model.Payment) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Payment, error)
	FindBySessionID(ctx context.Context, qx Tx, sessionID string) (*model.Payment, error)
	UpdateStatus(ctx context.Context, qx Tx, id string, status model.PaymentStatus, refID *string, paidAt *time.Time) error

	// ListPendingOlderThan feeds the reconciler: pending payments whose
	// callback may have been lost.
	ListPendingOlderThan(ctx context.Context, qx Tx, cutoff time.Time, limit int) ([]*model.Payment, error)
}
