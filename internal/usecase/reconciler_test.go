package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	domainErrors "github.com/VictorTelvoice/telsim-sub001/internal/domain/errors"
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/model"
	"github.com/VictorTelvoice/telsim-sub001/internal/domain/provider"
	"github.com/VictorTelvoice/telsim-sub001/internal/usecase"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UpsertStripeCustomerID(ctx context.Context, userID, customerID string) error {
	args := m.Called(ctx, userID, customerID)
	return args.Error(0)
}

// MockSlotRepository is a mock implementation of SlotRepository
type MockSlotRepository struct {
	mock.Mock
}

func (m *MockSlotRepository) GetByID(ctx context.Context, slotID string) (*model.Slot, error) {
	args := m.Called(ctx, slotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Slot), args.Error(1)
}

func (m *MockSlotRepository) Assign(ctx context.Context, slotID, userID, planType string) error {
	args := m.Called(ctx, slotID, userID, planType)
	return args.Error(0)
}

func (m *MockSlotRepository) Upsert(ctx context.Context, slot *model.Slot) error {
	args := m.Called(ctx, slot)
	return args.Error(0)
}

// MockSubscriptionRepository is a mock implementation of SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.Subscription, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) CreateIfAbsent(ctx context.Context, sub *model.Subscription) (bool, error) {
	args := m.Called(ctx, sub)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionRepository) CancelActiveBySlot(ctx context.Context, slotID string) error {
	args := m.Called(ctx, slotID)
	return args.Error(0)
}

// MockBillingProvider is a mock implementation of BillingProvider
type MockBillingProvider struct {
	mock.Mock
}

func (m *MockBillingProvider) FirstLineItemUnitAmount(ctx context.Context, sessionID string) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBillingProvider) FirstCardPaymentMethod(ctx context.Context, customerID string) (*provider.CardPaymentMethod, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CardPaymentMethod), args.Error(1)
}

func (m *MockBillingProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}

func (m *MockBillingProvider) GetProviderName() string {
	args := m.Called()
	return args.String(0)
}

func testCheckout() *usecase.CheckoutCompleted {
	return &usecase.CheckoutCompleted{
		SessionID:    "cs_test_sess_abc",
		CustomerID:   "cus_123",
		UserID:       "user-42",
		SlotID:       "slot-7",
		PlanName:     "plan_500min",
		MonthlyLimit: 500,
		AmountTotal:  999,
		Currency:     "eur",
	}
}

func testSlot() *model.Slot {
	return &model.Slot{
		SlotID:      "slot-7",
		PhoneNumber: "+34600111222",
		Status:      model.SlotStatusFree,
	}
}

func TestCheckoutFromSession(t *testing.T) {
	t.Run("complete metadata", func(t *testing.T) {
		session := &stripe.CheckoutSession{
			ID:          "cs_test_sess_abc",
			AmountTotal: 999,
			Currency:    stripe.CurrencyEUR,
			Customer:    &stripe.Customer{ID: "cus_123"},
			Metadata: map[string]string{
				"userId":          "user-42",
				"slot_id":         "slot-7",
				"planName":        "plan_500min",
				"limit":           "500",
				"transactionType": "UPGRADE",
			},
		}

		checkout, ok := usecase.CheckoutFromSession(session)
		assert.True(t, ok)
		assert.Equal(t, "cs_test_sess_abc", checkout.SessionID)
		assert.Equal(t, "cus_123", checkout.CustomerID)
		assert.Equal(t, "user-42", checkout.UserID)
		assert.Equal(t, "slot-7", checkout.SlotID)
		assert.Equal(t, "plan_500min", checkout.PlanName)
		assert.Equal(t, 500, checkout.MonthlyLimit)
		assert.Equal(t, int64(999), checkout.AmountTotal)
		assert.Equal(t, "eur", checkout.Currency)
		assert.True(t, checkout.IsUpgrade())
	})

	t.Run("missing userId is rejected", func(t *testing.T) {
		session := &stripe.CheckoutSession{
			ID:       "cs_test_no_user",
			Metadata: map[string]string{"slot_id": "slot-7"},
		}

		checkout, ok := usecase.CheckoutFromSession(session)
		assert.False(t, ok)
		assert.Nil(t, checkout)
	})

	t.Run("missing slot_id is rejected", func(t *testing.T) {
		session := &stripe.CheckoutSession{
			ID:       "cs_test_no_slot",
			Metadata: map[string]string{"userId": "user-42"},
		}

		checkout, ok := usecase.CheckoutFromSession(session)
		assert.False(t, ok)
		assert.Nil(t, checkout)
	})

	t.Run("malformed limit parses to zero", func(t *testing.T) {
		session := &stripe.CheckoutSession{
			ID: "cs_test_bad_limit",
			Metadata: map[string]string{
				"userId":  "user-42",
				"slot_id": "slot-7",
				"limit":   "unlimited",
			},
		}

		checkout, ok := usecase.CheckoutFromSession(session)
		assert.True(t, ok)
		assert.Equal(t, 0, checkout.MonthlyLimit)
	})

	t.Run("nil customer leaves customer id empty", func(t *testing.T) {
		session := &stripe.CheckoutSession{
			ID: "cs_test_no_cust",
			Metadata: map[string]string{
				"userId":  "user-42",
				"slot_id": "slot-7",
			},
		}

		checkout, ok := usecase.CheckoutFromSession(session)
		assert.True(t, ok)
		assert.Equal(t, "", checkout.CustomerID)
	})
}

func TestReconciler_Process(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("successful reconciliation", func(t *testing.T) {
		mockUsers := new(MockUserRepository)
		mockSlots := new(MockSlotRepository)
		mockSubs := new(MockSubscriptionRepository)
		mockBilling := new(MockBillingProvider)
		reconciler := usecase.NewReconciler(mockUsers, mockSlots, mockSubs, mockBilling, logger)

		checkout := testCheckout()

		mockUsers.On("UpsertStripeCustomerID", ctx, "user-42", "cus_123").Return(nil)
		mockSlots.On("GetByID", ctx, "slot-7").Return(testSlot(), nil)
		mockSubs.On("CreateIfAbsent", ctx, mock.MatchedBy(func(sub *model.Subscription) bool {
			return sub.StripeSessionID == "cs_test_sess_abc" &&
				sub.UserID == "user-42" &&
				sub.SlotID == "slot-7" &&
				sub.PhoneNumber == "+34600111222" &&
				sub.MonthlyLimit == 500 &&
				sub.Status == model.SubscriptionStatusActive &&
				sub.Amount.Equal(decimal.RequireFromString("9.99"))
		})).Return(true, nil)
		mockSlots.On("Assign", ctx, "slot-7", "user-42", "plan_500min").Return(nil)

		err := reconciler.Process(ctx, checkout)
		assert.NoError(t, err)

		mockUsers.AssertExpectations(t)
		mockSlots.AssertExpectations(t)
		mockSubs.AssertExpectations(t)
		mockBilling.AssertNotCalled(t, "FirstLineItemUnitAmount", mock.Anything, mock.Anything)
		mockSubs.AssertNotCalled(t, "CancelActiveBySlot", mock.Anything, mock.Anything)
	})

	t.Run("duplicate delivery still rewrites linkage and slot", func(t *testing.T) {
		mockUsers := new(MockUserRepository)
		mockSlots := new(MockSlotRepository)
		mockSubs := new(MockSubscriptionRepository)
		mockBilling := new(MockBillingProvider)
		reconciler := usecase.NewReconciler(mockUsers, mockSlots, mockSubs, mockBilling, logger)

		checkout := testCheckout()

		mockUsers.On("UpsertStripeCustomerID", ctx, "user-42", "cus_123").Return(nil)
		mockSlots.On("GetByID", ctx, "slot-7").Return(testSlot(), nil)
		mockSubs.On("CreateIfAbsent", ctx, mock.Anything).Return(false, nil)
		mockSlots.On("Assign", ctx, "slot-7", "user-42", "plan_500min").Return(nil)

		err := reconciler.Process(ctx, checkout)
		assert.NoError(t, err)

		// The insert was skipped but the idempotent rewrites still ran.
		mockUsers.AssertExpectations(t)
		mockSlots.AssertExpectations(t)
		mockSubs.AssertExpectations(t)
	})

	t.Run("upgrade cancels active subscription before insert", func(t *testing.T) {
		mockUsers := new(MockUserRepository)
		mockSlots := new(MockSlotRepository)
		mockSubs := new(MockSubscriptionRepository)
		mockBilling := new(MockBillingProvider)
		reconciler := usecase.NewReconciler(mockUsers, mockSlots, mockSubs, mockBilling, logger)

		checkout := testCheckout()
		checkout.TransactionType = "UPGRADE"

		mockUsers.On("UpsertStripeCustomerID", ctx, "user-42", "cus_123").Return(nil)
		mockSubs.On("CancelActiveBySlot", ctx, "slot-7").Return(nil)
		mockSlots.On("GetByID", ctx, "slot-7").Return(testSlot(), nil)
		mockSubs.On("CreateIfAbsent", ctx, mock.Anything).Return(true, nil)
		mockSlots.On("Assign", ctx, "slot-7", "user-42", "plan_500min").Return(nil)

		err := reconciler.Process(ctx, checkout)
		assert.NoError(t, err)

		mockSubs.AssertExpectations(t)
	})

	t.Run("upgrade supersede runs even on duplicate delivery", func(t *testing.T) {
		mockUsers := new(MockUserRepository)
		mockSlots := new(MockSlotRepository)
		mockSubs := new(MockSubscriptionRepository)
		mockBilling := new(MockBillingProvider)
		reconciler := usecase.NewReconciler(mockUsers, mockSlots, mockSubs, mockBilling, logger)

		checkout := testCheckout()
		checkout.TransactionType = "UPGRADE"

		mockUsers.On("UpsertStripeCustomerID", ctx, "user-42", "cus_123").Return(nil)
		mockSubs.On("CancelActiveBySlot", ctx, "slot-7").Return(nil)
		mockSlots.On("GetByID", ctx, "slot-7").Return(testSlot(), nil)
		mockSubs.On("CreateIfAbsent", ctx, mock.Anything).Return(false, nil)
		mockSlots.On("Assign", ctx, "slot-7", "user-42", "plan_500min").Return(nil)

		err := reconciler.Process(ctx, checkout)
		assert.NoError(t, err)

		mockSubs.AssertCalled(t, "CancelActiveBySlot", ctx, "slot-7")
	})

	t.Run("zero total falls back to first line item", func(t *testing.T) {
		mockUsers := new(MockUserRepository)
		mockSlots := new(MockSlotRepository)
		mockSubs := new(MockSubscriptionRepository)
		mockBilling := new(MockBillingProvider)
		reconciler := usecase.NewReconciler(mockUsers, mockSlots, mockSubs, mockBilling, logger)

		checkout := testCheckout()
		checkout.AmountTotal = 0

		mockBilling.On("FirstLineItemUnitAmount", ctx, "cs_test_sess_abc").Return(int64(1299), nil)
		mockUsers.On("UpsertStripeCustomerID", ctx, "user-42", "cus_123").Return(nil)
		mockSlots.On("GetByID", ctx, "slot-7").Return(testSlot(), nil)
		mockSubs.On("CreateIfAbsent", ctx, mock.MatchedBy(func(sub *model.Subscription) bool {
			return sub.Amount.Equal(decimal.RequireFromString("12.99"))
		})).Return(true, nil)
		mockSlots.On("Assign", ctx, "slot-7", "user-42", "plan_500min").Return(nil)

		err := reconciler.Process(ctx, checkout)
		assert.NoError(t, err)

		mockBilling.AssertExpectations(t)
	})

	t.Run("line item lookup failure aborts before any write", func(t *testing.T) {
		mockUsers := new(MockUserRepository)
		mockSlots := new(MockSlotRepository)
		mockSubs := new(MockSubscriptionRepository)
		mockBilling := new(MockBillingProvider)
		reconciler := usecase.NewReconciler(mockUsers, mockSlots, mockSubs, mockBilling, logger)

		checkout := testCheckout()
		checkout.AmountTotal = 0

		mockBilling.On("FirstLineItemUnitAmount", ctx, "cs_test_sess_abc").
			Return(int64(0), errors.New("stripe unavailable"))

		err := reconciler.Process(ctx, checkout)
		assert.Error(t, err)

		mockUsers.AssertNotCalled(t, "UpsertStripeCustomerID", mock.Anything, mock.Anything, mock.Anything)
		mockSubs.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything)
		mockSlots.AssertNotCalled(t, "Assign", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty customer id skips linkage", func(t *testing.T) {
		mockUsers := new(MockUserRepository)
		mockSlots := new(MockSlotRepository)
		mockSubs := new(MockSubscriptionRepository)
		mockBilling := new(MockBillingProvider)
		reconciler := usecase.NewReconciler(mockUsers, mockSlots, mockSubs, mockBilling, logger)

		checkout := testCheckout()
		checkout.CustomerID = ""

		mockSlots.On("GetByID", ctx, "slot-7").Return(testSlot(), nil)
		mockSubs.On("CreateIfAbsent", ctx, mock.Anything).Return(true, nil)
		mockSlots.On("Assign", ctx, "slot-7", "user-42", "plan_500min").Return(nil)

		err := reconciler.Process(ctx, checkout)
		assert.NoError(t, err)

		mockUsers.AssertNotCalled(t, "UpsertStripeCustomerID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown slot fails the event", func(t *testing.T) {
		mockUsers := new(MockUserRepository)
		mockSlots := new(MockSlotRepository)
		mockSubs := new(MockSubscriptionRepository)
		mockBilling := new(MockBillingProvider)
		reconciler := usecase.NewReconciler(mockUsers, mockSlots, mockSubs, mockBilling, logger)

		checkout := testCheckout()

		mockUsers.On("UpsertStripeCustomerID", ctx, "user-42", "cus_123").Return(nil)
		mockSlots.On("GetByID", ctx, "slot-7").Return(nil, nil)

		err := reconciler.Process(ctx, checkout)
		assert.ErrorIs(t, err, domainErrors.ErrSlotNotFound)

		mockSubs.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything)
	})
}
