// seed-slots loads the SIM slot inventory from a YAML file and upserts
// it into the database. Reseeding never touches status or assignment of
// existing slots, so it is safe to run against a live system.
//
// Usage: seed-slots <slots.yaml>
package main

import (
	"context"
	"log"
	"os"

	"github.com/VictorTelvoice/telsim-sub001/internal/adapter/repository"
	"github.com/VictorTelvoice/telsim-sub001/internal/config"
	"github.com/VictorTelvoice/telsim-sub001/internal/infrastructure/database"
	"github.com/VictorTelvoice/telsim-sub001/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <slots.yaml>", os.Args[0])
	}
	slotsPath := os.Args[1]

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger := logger.DefaultZapLogger()
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	slots, err := loadSlotsFromYAML(slotsPath)
	if err != nil {
		zapLogger.Fatal("Failed to load slots from YAML", zap.Error(err))
	}

	slotRepo := repository.NewSlotRepository(db, zapLogger)
	ctx := context.Background()

	seeded := 0
	for _, slot := range slots {
		if err := slotRepo.Upsert(ctx, slot); err != nil {
			zapLogger.Error("Failed to upsert slot",
				zap.String("slot_id", slot.SlotID),
				zap.Error(err))
			continue
		}
		seeded++
	}

	zapLogger.Info("Slot inventory seeded",
		zap.String("path", slotsPath),
		zap.Int("slots_seeded", seeded),
		zap.Int("slots_total", len(slots)))
}
