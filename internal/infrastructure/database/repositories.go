package database

import (
	"github.com/VictorTelvoice/telsim-sub001/internal/adapter/repository"
	domainRepo "github.com/VictorTelvoice/telsim-sub001/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	User         domainRepo.UserRepository
	Slot         domainRepo.SlotRepository
	Subscription domainRepo.SubscriptionRepository
	Webhook      domainRepo.WebhookRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		User:         repository.NewUserRepository(db, logger),
		Slot:         repository.NewSlotRepository(db, logger),
		Subscription: repository.NewSubscriptionRepository(db, logger),
		Webhook:      repository.NewWebhookRepository(db, logger),
	}
}
