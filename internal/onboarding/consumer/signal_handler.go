package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"synergy/internal/onboarding/saga"
	"synergy/internal/platform/kafka/consumer"
	dErrors "synergy/pkg/domain-errors"
)

// SignalHandler feeds onboarding signals from the signal topic into the saga.
type SignalHandler struct {
	saga   *saga.Saga
	logger *slog.Logger
}

func NewSignalHandler(s *saga.Saga, logger *slog.Logger) *SignalHandler {
	return &SignalHandler{saga: s, logger: logger}
}

func (h *SignalHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var sig saga.Signal
	if err := json.Unmarshal(msg.Value, &sig); err != nil {
		h.logger.Error("malformed onboarding signal, skipping",
			"key", string(msg.Key),
			"error", err,
		)
		return nil // Commit; the record cannot become valid on retry
	}
	if sig.Type == "" {
		sig.Type = msg.Headers["event-type"]
	}

	err := h.saga.Handle(ctx, sig)
	switch {
	case err == nil:
		return nil
	case dErrors.HasCode(err, dErrors.CodeValidation),
		dErrors.HasCode(err, dErrors.CodeNotFound):
		// Permanently unprocessable; commit rather than loop forever.
		h.logger.Error("onboarding signal dropped",
			"signal", sig.Type,
			"tenant_id", sig.TenantID,
			"error", err,
		)
		return nil
	default:
		return err
	}
}
