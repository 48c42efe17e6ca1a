package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"storefront-automation/internal/domain/ports/adapter"
)

var _ adapter.CheckoutGateway = (*NoopGateway)(nil)

// NoopGateway auto-approves every session it issued. Dev and staging only.
type NoopGateway struct {
	mu       sync.Mutex
	sessions map[string]int64
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{sessions: make(map[string]int64)}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) CreateSession(ctx context.Context, amountCents int64, description, callbackURL string, meta map[string]interface{}) (string, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := uuid.NewString()
	g.sessions[id] = amountCents
	return id, fmt.Sprintf("%s?session_id=%s", callbackURL, id), nil
}

func (g *NoopGateway) VerifySession(ctx context.Context, sessionID string, expectedAmountCents int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	amount, ok := g.sessions[sessionID]
	if !ok || amount != expectedAmountCents {
		return "", fmt.Errorf("unknown session %s", sessionID)
	}
	return "noop-" + sessionID, nil
}
