package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	applicationDomain "lendflow-backend/internal/domain/application"
	"lendflow-backend/internal/domain/errs"
)

type ApplicationRepository struct{ db *gorm.DB }

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, a *applicationDomain.LoanApplication) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ApplicationRepository) Save(ctx context.Context, a *applicationDomain.LoanApplication) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *ApplicationRepository) GetByApplicationID(ctx context.Context, applicationID string) (*applicationDomain.LoanApplication, error) {
	var out applicationDomain.LoanApplication
	res := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&out)
	return &out, res.Error
}

func (r *ApplicationRepository) GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*applicationDomain.LoanApplication, error) {
	var out applicationDomain.LoanApplication
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("application_id = ?", applicationID).
		First(&out)
	return &out, res.Error
}

// StatusHistoryRepository only appends; history rows are insert-only.
type StatusHistoryRepository struct{ db *gorm.DB }

func NewStatusHistoryRepository(db *gorm.DB) *StatusHistoryRepository {
	return &StatusHistoryRepository{db: db}
}

func (r *StatusHistoryRepository) Append(ctx context.Context, h *applicationDomain.StatusHistory) error {
	if h.ID != 0 {
		return errs.Immutable("status history records cannot be updated")
	}
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *StatusHistoryRepository) ListByApplication(ctx context.Context, applicationID uint64) ([]applicationDomain.StatusHistory, error) {
	var out []applicationDomain.StatusHistory
	res := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}
