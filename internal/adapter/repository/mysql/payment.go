package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lendflow-backend/internal/domain/errs"
	paymentDomain "lendflow-backend/internal/domain/payment"
)

type PaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) *PaymentRepository { return &PaymentRepository{db: db} }

func (r *PaymentRepository) Create(ctx context.Context, p *paymentDomain.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) Save(ctx context.Context, p *paymentDomain.Payment) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*paymentDomain.Payment, error) {
	var out paymentDomain.Payment
	res := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&out)
	return &out, res.Error
}

func (r *PaymentRepository) GetByPaymentIDForUpdate(ctx context.Context, paymentID string) (*paymentDomain.Payment, error) {
	var out paymentDomain.Payment
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payment_id = ?", paymentID).
		First(&out)
	return &out, res.Error
}

func (r *PaymentRepository) GetByIdempotencyKey(ctx context.Context, userID uint64, key string) (*paymentDomain.Payment, error) {
	var out paymentDomain.Payment
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&out)
	return &out, res.Error
}

func (r *PaymentRepository) GetByGatewayReferenceForUpdate(ctx context.Context, ref string) (*paymentDomain.Payment, error) {
	var out paymentDomain.Payment
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("gateway_reference = ?", ref).
		First(&out)
	return &out, res.Error
}

type AllocationRepository struct{ db *gorm.DB }

func NewAllocationRepository(db *gorm.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

func (r *AllocationRepository) Create(ctx context.Context, a *paymentDomain.Allocation) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AllocationRepository) Save(ctx context.Context, a *paymentDomain.Allocation) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *AllocationRepository) ListByPayment(ctx context.Context, paymentID uint64) ([]paymentDomain.Allocation, error) {
	var out []paymentDomain.Allocation
	res := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}

func (r *AllocationRepository) ExistsForPayment(ctx context.Context, paymentID uint64) (bool, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&paymentDomain.Allocation{}).
		Where("payment_id = ?", paymentID).
		Count(&n)
	return n > 0, res.Error
}

type GatewayTransactionRepository struct{ db *gorm.DB }

func NewGatewayTransactionRepository(db *gorm.DB) *GatewayTransactionRepository {
	return &GatewayTransactionRepository{db: db}
}

func (r *GatewayTransactionRepository) Append(ctx context.Context, tx *paymentDomain.GatewayTransaction) error {
	if tx.ID != 0 {
		return errs.Immutable("gateway transactions cannot be updated")
	}
	return r.db.WithContext(ctx).Create(tx).Error
}

type PaymentAuditRepository struct{ db *gorm.DB }

func NewPaymentAuditRepository(db *gorm.DB) *PaymentAuditRepository {
	return &PaymentAuditRepository{db: db}
}

func (r *PaymentAuditRepository) Append(ctx context.Context, l *paymentDomain.AuditLog) error {
	if l.ID != 0 {
		return errs.Immutable("payment audit records cannot be updated")
	}
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *PaymentAuditRepository) ListByPayment(ctx context.Context, paymentID uint64) ([]paymentDomain.AuditLog, error) {
	var out []paymentDomain.AuditLog
	res := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}
