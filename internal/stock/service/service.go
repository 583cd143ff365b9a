package service

import (
	"time"

	"github.com/petersonmatiss/mpm/internal/stock/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services is the stock service collection.
type Services struct {
	Stock       *StockService
	Consumption *ConsumptionService
	Reservation *ReservationService
}

// NewServices wires the stock services onto shared infrastructure.
func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *Services {
	cache := NewListingCache(rdb, cacheTTL)
	return &Services{
		Stock:       NewStockService(repos, db, cache, logger),
		Consumption: NewConsumptionService(repos, db, cache, logger),
		Reservation: NewReservationService(repos, db, logger),
	}
}
