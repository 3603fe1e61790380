package account

import "context"

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByUserID(ctx context.Context, userID string) (*User, error)
	// GetByUserIDForUpdate locks the user row; balance and blacklist-flag
	// mutations must go through it.
	GetByUserIDForUpdate(ctx context.Context, userID string) (*User, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*User, error)
	Save(ctx context.Context, u *User) error
}

type BlacklistRepository interface {
	Create(ctx context.Context, b *Blacklist) error
	GetActiveByUser(ctx context.Context, userID uint64) (*Blacklist, error)
	Save(ctx context.Context, b *Blacklist) error
}

// BalanceTransactionRepository is append-only: balance ledger rows are never
// updated or deleted.
type BalanceTransactionRepository interface {
	Append(ctx context.Context, tx *BalanceTransaction) error
	ListByUser(ctx context.Context, userID uint64) ([]BalanceTransaction, error)
}
