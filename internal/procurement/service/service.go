package service

import (
	"github.com/petersonmatiss/mpm/internal/procurement/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services is the procurement service collection.
type Services struct {
	PR *PRService
}

func NewServices(db *gorm.DB, logger *zap.Logger) *Services {
	return &Services{
		PR: NewPRService(repository.NewPRRepository(db), db, logger),
	}
}
