package http

import (
	"errors"
	"net/http"
	"strings"

	domainErrors "github.com/VictorTelvoice/telsim-sub001/internal/domain/errors"
	"github.com/VictorTelvoice/telsim-sub001/internal/usecase"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PortalHandler creates billing-portal sessions for the dashboard.
type PortalHandler struct {
	service *usecase.PaymentInfoService
	logger  *zap.Logger
}

func NewPortalHandler(service *usecase.PaymentInfoService, logger *zap.Logger) *PortalHandler {
	return &PortalHandler{
		service: service,
		logger:  logger,
	}
}

type createPortalRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// CreatePortalSession handles POST /api/v1/portal
func (h *PortalHandler) CreatePortalSession(c echo.Context) error {
	var req createPortalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userId is required"})
	}

	returnURL := portalReturnURL(c.Request().Host)

	url, err := h.service.CreatePortalSession(c.Request().Context(), req.UserID, returnURL)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNoBillingProfile) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to create portal session",
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create portal session"})
	}

	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

// portalReturnURL derives the portal return URL from the request host:
// plain http for local development hosts, https everywhere else.
func portalReturnURL(host string) string {
	scheme := "https"
	if strings.HasPrefix(host, "localhost") || strings.HasPrefix(host, "127.0.0.1") {
		scheme = "http"
	}
	return scheme + "://" + host
}
