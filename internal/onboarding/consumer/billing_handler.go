package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"synergy/internal/onboarding/saga"
	"synergy/internal/platform/kafka/consumer"
	id "synergy/pkg/domain"
	dErrors "synergy/pkg/domain-errors"
)

// subscriptionActivatedPayload matches the billing system's event shape.
type subscriptionActivatedPayload struct {
	TenantID      string `json:"tenantId"`
	CorrelationID string `json:"correlationId"`
	Plan          string `json:"plan"`
	ActivatedAt   string `json:"activatedAt"`
}

// BillingHandler translates billing subscription events into the saga's
// subscription-activated signal. Billing speaks its own event schema; the
// translation isolates the saga from it.
type BillingHandler struct {
	saga   *saga.Saga
	logger *slog.Logger
}

func NewBillingHandler(s *saga.Saga, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{saga: s, logger: logger}
}

func (h *BillingHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var payload subscriptionActivatedPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.Error("malformed billing event, skipping",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	tenantID, err := id.ParseTenantID(payload.TenantID)
	if err != nil {
		h.logger.Error("billing event carries invalid tenant id, skipping",
			"tenant_id", payload.TenantID,
			"error", err,
		)
		return nil
	}

	occurredAt := time.Now()
	if payload.ActivatedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, payload.ActivatedAt); err == nil {
			occurredAt = ts
		}
	}
	sig := saga.NewSignal(saga.SignalSubscriptionActivated, tenantID, payload.CorrelationID, occurredAt)

	err = h.saga.Handle(ctx, sig)
	switch {
	case err == nil:
		return nil
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		h.logger.Error("billing event for unknown tenant dropped",
			"tenant_id", payload.TenantID,
			"error", err,
		)
		return nil
	default:
		return err
	}
}
