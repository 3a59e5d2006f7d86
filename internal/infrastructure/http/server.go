package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stripe/stripe-go/v79"
	handlers "github.com/VictorTelvoice/telsim-sub001/internal/adapter/handler/http"
	"github.com/VictorTelvoice/telsim-sub001/internal/config"
	"github.com/VictorTelvoice/telsim-sub001/internal/infrastructure/database"
	stripeprovider "github.com/VictorTelvoice/telsim-sub001/internal/infrastructure/provider/stripe"
	"github.com/VictorTelvoice/telsim-sub001/internal/middleware/auth"
	"github.com/VictorTelvoice/telsim-sub001/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	config *config.Config
	logger *zap.Logger
	echo   *echo.Echo
	repos  *database.Repositories
}

func NewServer(cfg *config.Config, logger *zap.Logger, repos *database.Repositories) *Server {
	e := echo.New()

	// Initialize Stripe
	stripe.Key = cfg.Service.StripeSecretKey

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))
	e.Validator = handlers.NewRequestValidator()

	return &Server{
		config: cfg,
		logger: logger,
		echo:   e,
		repos:  repos,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Initialize provider and usecases
	billing := stripeprovider.NewStripeProvider(s.config.Service.StripeSecretKey, s.logger)
	reconciler := usecase.NewReconciler(s.repos.User, s.repos.Slot, s.repos.Subscription, billing, s.logger)
	paymentInfo := usecase.NewPaymentInfoService(s.repos.User, billing, s.logger)

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(s.logger, s.config.Service.StripeWebhookSecret, s.repos.Webhook, reconciler, s.config.Worker.MaxAttempts)
	paymentInfoHandler := handlers.NewPaymentInfoHandler(paymentInfo, s.logger)
	portalHandler := handlers.NewPortalHandler(paymentInfo, s.logger)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.Service.Supabase.JWTSecret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/webhook",
		},
	}

	// API v1 routes (require JWT authentication)
	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))

	v1.POST("/payment-method", paymentInfoHandler.GetPaymentMethod)
	v1.POST("/payment-method/status", paymentInfoHandler.GetPaymentMethodStatus)
	v1.POST("/portal", portalHandler.CreatePortalSession)

	// Webhook route (outside API versioning, signature-authenticated)
	s.echo.POST("/webhook", webhookHandler.HandleWebhook)
}
