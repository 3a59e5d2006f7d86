package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/VictorTelvoice/telsim-sub001/internal/config"
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/model"
	"github.com/VictorTelvoice/telsim-sub001/internal/usecase"
)

// MockWebhookRepository is a mock implementation of WebhookRepository
type MockWebhookRepository struct {
	mock.Mock
}

func (m *MockWebhookRepository) SaveEvent(ctx context.Context, eventID, eventType string, created *time.Time, data model.JSONB) error {
	args := m.Called(ctx, eventID, eventType, created, data)
	return args.Error(0)
}

func (m *MockWebhookRepository) GetEvent(ctx context.Context, eventID string) (*model.StripeWebhookEvent, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StripeWebhookEvent), args.Error(1)
}

func (m *MockWebhookRepository) MarkProcessed(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockWebhookRepository) MarkFailed(ctx context.Context, eventID string, procErr error, maxAttempts int) error {
	args := m.Called(ctx, eventID, procErr, maxAttempts)
	return args.Error(0)
}

func (m *MockWebhookRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.StripeWebhookEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.StripeWebhookEvent), args.Error(1)
}

// MockCheckoutProcessor is a mock implementation of CheckoutProcessor
type MockCheckoutProcessor struct {
	mock.Mock
}

func (m *MockCheckoutProcessor) Process(ctx context.Context, ev *usecase.CheckoutCompleted) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func testWorkerConfig() *config.WorkerConfig {
	return &config.WorkerConfig{
		PollInterval: time.Second,
		BatchSize:    10,
		MaxAttempts:  5,
	}
}

func pendingEvent() *model.StripeWebhookEvent {
	return &model.StripeWebhookEvent{
		ID:            1,
		StripeEventID: "evt_test_1",
		EventType:     "checkout.session.completed",
		Status:        model.WebhookStatusPending,
		Data: model.JSONB{
			"id":           "cs_test_sess_abc",
			"object":       "checkout.session",
			"amount_total": float64(999),
			"currency":     "eur",
			"metadata": map[string]interface{}{
				"userId":   "user-42",
				"slot_id":  "slot-7",
				"planName": "plan_500min",
				"limit":    "500",
			},
		},
	}
}

func TestWebhookProcessor_DrainOnce(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("processes and completes pending event", func(t *testing.T) {
		mockEvents := new(MockWebhookRepository)
		mockProcessor := new(MockCheckoutProcessor)
		w := NewWebhookProcessor(mockEvents, mockProcessor, testWorkerConfig(), logger)

		mockEvents.On("GetPendingEvents", ctx, 10).Return([]*model.StripeWebhookEvent{pendingEvent()}, nil)
		mockProcessor.On("Process", ctx, mock.MatchedBy(func(ev *usecase.CheckoutCompleted) bool {
			return ev.SessionID == "cs_test_sess_abc" &&
				ev.UserID == "user-42" &&
				ev.SlotID == "slot-7" &&
				ev.AmountTotal == 999
		})).Return(nil)
		mockEvents.On("MarkProcessed", ctx, "evt_test_1").Return(nil)

		w.drainOnce(ctx)

		mockEvents.AssertExpectations(t)
		mockProcessor.AssertExpectations(t)
	})

	t.Run("failure is recorded for retry", func(t *testing.T) {
		mockEvents := new(MockWebhookRepository)
		mockProcessor := new(MockCheckoutProcessor)
		w := NewWebhookProcessor(mockEvents, mockProcessor, testWorkerConfig(), logger)

		procErr := errors.New("db down")
		mockEvents.On("GetPendingEvents", ctx, 10).Return([]*model.StripeWebhookEvent{pendingEvent()}, nil)
		mockProcessor.On("Process", ctx, mock.Anything).Return(procErr)
		mockEvents.On("MarkFailed", ctx, "evt_test_1", procErr, 5).Return(nil)

		w.drainOnce(ctx)

		mockEvents.AssertExpectations(t)
		mockEvents.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
	})

	t.Run("incomplete metadata completes without action", func(t *testing.T) {
		mockEvents := new(MockWebhookRepository)
		mockProcessor := new(MockCheckoutProcessor)
		w := NewWebhookProcessor(mockEvents, mockProcessor, testWorkerConfig(), logger)

		event := pendingEvent()
		event.Data["metadata"] = map[string]interface{}{}

		mockEvents.On("GetPendingEvents", ctx, 10).Return([]*model.StripeWebhookEvent{event}, nil)
		mockEvents.On("MarkProcessed", ctx, "evt_test_1").Return(nil)

		w.drainOnce(ctx)

		mockEvents.AssertExpectations(t)
		mockProcessor.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})

	t.Run("fetch failure is tolerated", func(t *testing.T) {
		mockEvents := new(MockWebhookRepository)
		mockProcessor := new(MockCheckoutProcessor)
		w := NewWebhookProcessor(mockEvents, mockProcessor, testWorkerConfig(), logger)

		mockEvents.On("GetPendingEvents", ctx, 10).Return(nil, errors.New("db down"))

		w.drainOnce(ctx)

		mockProcessor.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})
}

func TestWebhookProcessor_StartStopsOnCancel(t *testing.T) {
	logger := zap.NewNop()
	mockEvents := new(MockWebhookRepository)
	mockProcessor := new(MockCheckoutProcessor)

	cfg := &config.WorkerConfig{PollInterval: 10 * time.Millisecond, BatchSize: 10, MaxAttempts: 5}
	w := NewWebhookProcessor(mockEvents, mockProcessor, cfg, logger)

	mockEvents.On("GetPendingEvents", mock.Anything, 10).Return([]*model.StripeWebhookEvent{}, nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
