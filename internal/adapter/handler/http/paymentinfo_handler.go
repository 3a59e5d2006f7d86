package http

import (
	"net/http"

	"github.com/VictorTelvoice/telsim-sub001/internal/usecase"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PaymentInfoHandler exposes the saved-card projection to the dashboard.
type PaymentInfoHandler struct {
	service *usecase.PaymentInfoService
	logger  *zap.Logger
}

func NewPaymentInfoHandler(service *usecase.PaymentInfoService, logger *zap.Logger) *PaymentInfoHandler {
	return &PaymentInfoHandler{
		service: service,
		logger:  logger,
	}
}

type paymentInfoRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// GetPaymentMethod handles POST /api/v1/payment-method
func (h *PaymentInfoHandler) GetPaymentMethod(c echo.Context) error {
	var req paymentInfoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userId is required"})
	}

	card, err := h.service.GetPaymentMethod(c.Request().Context(), req.UserID)
	if err != nil {
		h.logger.Error("Failed to get payment method",
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve payment method"})
	}

	if card == nil {
		return c.JSON(http.StatusOK, echo.Map{
			"status":        "no_method",
			"paymentMethod": nil,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":        "success",
		"paymentMethod": card,
	})
}

// GetPaymentMethodStatus handles POST /api/v1/payment-method/status. Same
// lookup as GetPaymentMethod, projected down to a has-method flag for the
// settings screen.
func (h *PaymentInfoHandler) GetPaymentMethodStatus(c echo.Context) error {
	var req paymentInfoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userId is required"})
	}

	card, err := h.service.GetPaymentMethod(c.Request().Context(), req.UserID)
	if err != nil {
		h.logger.Error("Failed to get payment method status",
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve payment method"})
	}

	if card == nil {
		return c.JSON(http.StatusOK, echo.Map{"status": "no_method", "hasMethod": false})
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "success", "hasMethod": true})
}
