package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lendflow-backend/internal/domain/account"
)

type UserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) Create(ctx context.Context, u *account.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) Save(ctx context.Context, u *account.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *UserRepository) GetByUserID(ctx context.Context, userID string) (*account.User, error) {
	var out account.User
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&out)
	return &out, res.Error
}

func (r *UserRepository) GetByUserIDForUpdate(ctx context.Context, userID string) (*account.User, error) {
	var out account.User
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&out)
	return &out, res.Error
}

func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*account.User, error) {
	var out account.User
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out)
	return &out, res.Error
}

type BlacklistRepository struct{ db *gorm.DB }

func NewBlacklistRepository(db *gorm.DB) *BlacklistRepository { return &BlacklistRepository{db: db} }

func (r *BlacklistRepository) Create(ctx context.Context, b *account.Blacklist) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BlacklistRepository) Save(ctx context.Context, b *account.Blacklist) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *BlacklistRepository) GetActiveByUser(ctx context.Context, userID uint64) (*account.Blacklist, error) {
	var out account.Blacklist
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("id DESC").
		First(&out)
	return &out, res.Error
}

type BalanceTransactionRepository struct{ db *gorm.DB }

func NewBalanceTransactionRepository(db *gorm.DB) *BalanceTransactionRepository {
	return &BalanceTransactionRepository{db: db}
}

func (r *BalanceTransactionRepository) Append(ctx context.Context, tx *account.BalanceTransaction) error {
	if tx.ID != 0 {
		return errors.New("balance transactions are append-only")
	}
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *BalanceTransactionRepository) ListByUser(ctx context.Context, userID uint64) ([]account.BalanceTransaction, error) {
	var out []account.BalanceTransaction
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}
