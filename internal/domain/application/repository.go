package application

import "context"

type Repository interface {
	Create(ctx context.Context, a *LoanApplication) error
	GetByApplicationID(ctx context.Context, applicationID string) (*LoanApplication, error)
	// GetByApplicationIDForUpdate locks the row; every state-machine
	// transition goes through it.
	GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*LoanApplication, error)
	Save(ctx context.Context, a *LoanApplication) error
}

// HistoryRepository exposes only append and read: transition history is
// insert-only.
type HistoryRepository interface {
	Append(ctx context.Context, h *StatusHistory) error
	ListByApplication(ctx context.Context, applicationID uint64) ([]StatusHistory, error)
}
