package service

import (
	"context"
	"time"

	"github.com/petersonmatiss/mpm/internal/apperror"
	"github.com/petersonmatiss/mpm/internal/audit/entity"
	"github.com/petersonmatiss/mpm/internal/audit/repository"
	"gorm.io/gorm"
)

// AuditService reads the append-only trail. Writing happens inside the
// mutating services' transactions, never through this service.
type AuditService struct {
	repo *repository.AuditRepository
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{repo: repository.NewAuditRepository(db)}
}

// ListByEntity returns the trail of one entity, newest first.
func (s *AuditService) ListByEntity(ctx context.Context, tenantID, entityType, entityID string) ([]entity.AuditEntry, error) {
	if entityType == "" || entityID == "" {
		return nil, apperror.Validation("entity", "entity_type and entity_id are required")
	}
	return s.repo.FindByEntity(ctx, tenantID, entityType, entityID)
}

// ListByActor returns everything one actor did within [from, to].
// A zero to means now; a zero from means the last 30 days.
func (s *AuditService) ListByActor(ctx context.Context, tenantID, actorID string, from, to time.Time) ([]entity.AuditEntry, error) {
	if actorID == "" {
		return nil, apperror.Validation("actor_id", "must not be empty")
	}
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	return s.repo.FindByActor(ctx, tenantID, actorID, from, to)
}
