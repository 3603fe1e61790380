package mysql

import (
	"context"

	"gorm.io/gorm"

	auditDomain "lendflow-backend/internal/domain/audit"
	"lendflow-backend/internal/domain/errs"
)

// AuditRepository exposes Append and reads only. There is deliberately no
// update or delete method; the entity's gorm hooks back this up.
type AuditRepository struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) *AuditRepository { return &AuditRepository{db: db} }

func (r *AuditRepository) Append(ctx context.Context, e *auditDomain.Entry) error {
	if e.ID != 0 {
		return errs.Immutable("audit records cannot be updated")
	}
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *AuditRepository) ListByTarget(ctx context.Context, tt auditDomain.TargetType, targetID string) ([]auditDomain.Entry, error) {
	var out []auditDomain.Entry
	res := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", tt, targetID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}
