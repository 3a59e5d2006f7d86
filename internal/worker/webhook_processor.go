package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/VictorTelvoice/telsim-sub001/internal/config"
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/model"
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/repository"
	"github.com/VictorTelvoice/telsim-sub001/internal/usecase"
	"go.uber.org/zap"
)

// CheckoutProcessor applies a completed checkout to the entitlement state.
type CheckoutProcessor interface {
	Process(ctx context.Context, ev *usecase.CheckoutCompleted) error
}

// WebhookProcessor drains the durable webhook queue. Events land in the
// queue before the first processing attempt, so anything the inline path
// failed to apply is retried here until it completes or dead-letters.
type WebhookProcessor struct {
	events    repository.WebhookRepository
	processor CheckoutProcessor
	cfg       *config.WorkerConfig
	logger    *zap.Logger
}

func NewWebhookProcessor(
	events repository.WebhookRepository,
	processor CheckoutProcessor,
	cfg *config.WorkerConfig,
	logger *zap.Logger,
) *WebhookProcessor {
	return &WebhookProcessor{
		events:    events,
		processor: processor,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start polls for retryable events until the context is canceled.
func (w *WebhookProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logger.Info("Webhook processor started",
		zap.Duration("poll_interval", w.cfg.PollInterval),
		zap.Int("batch_size", w.cfg.BatchSize),
		zap.Int("max_attempts", w.cfg.MaxAttempts))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Webhook processor stopped")
			return
		case <-ticker.C:
			w.drainOnce(ctx)
		}
	}
}

func (w *WebhookProcessor) drainOnce(ctx context.Context) {
	events, err := w.events.GetPendingEvents(ctx, w.cfg.BatchSize)
	if err != nil {
		w.logger.Error("Failed to fetch pending webhook events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := w.processOne(ctx, event); err != nil {
			w.logger.Warn("Webhook event processing failed, will retry",
				zap.String("event_id", event.StripeEventID),
				zap.Int("attempts", event.ProcessingAttempts+1),
				zap.Error(err))
			if markErr := w.events.MarkFailed(ctx, event.StripeEventID, err, w.cfg.MaxAttempts); markErr != nil {
				w.logger.Error("Failed to record webhook failure",
					zap.String("event_id", event.StripeEventID),
					zap.Error(markErr))
			}
			continue
		}

		if err := w.events.MarkProcessed(ctx, event.StripeEventID); err != nil {
			w.logger.Error("Failed to mark webhook event processed",
				zap.String("event_id", event.StripeEventID),
				zap.Error(err))
			continue
		}

		w.logger.Info("Webhook event processed",
			zap.String("event_id", event.StripeEventID),
			zap.String("event_type", event.EventType))
	}
}

func (w *WebhookProcessor) processOne(ctx context.Context, event *model.StripeWebhookEvent) error {
	session, err := sessionFromEvent(event)
	if err != nil {
		return err
	}

	checkout, ok := usecase.CheckoutFromSession(session)
	if !ok {
		// Metadata was incomplete when the event was stored. Nothing to
		// reconcile; consider it done rather than retrying forever.
		w.logger.Warn("Stored webhook event has incomplete metadata, completing without action",
			zap.String("event_id", event.StripeEventID))
		return nil
	}

	return w.processor.Process(ctx, checkout)
}

// sessionFromEvent rebuilds the checkout session from the stored JSONB
// snapshot of the event payload.
func sessionFromEvent(event *model.StripeWebhookEvent) (*stripe.CheckoutSession, error) {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
