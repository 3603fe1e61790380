package payment

import "context"

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Save(ctx context.Context, p *Payment) error
	GetByPaymentID(ctx context.Context, paymentID string) (*Payment, error)
	GetByPaymentIDForUpdate(ctx context.Context, paymentID string) (*Payment, error)
	// GetByIdempotencyKey resolves a retried creation to the original row.
	GetByIdempotencyKey(ctx context.Context, userID uint64, key string) (*Payment, error)
	GetByGatewayReferenceForUpdate(ctx context.Context, ref string) (*Payment, error)
}

type AllocationRepository interface {
	Create(ctx context.Context, a *Allocation) error
	// Save exists solely so the overpayment residue can merge into an
	// allocation created earlier in the same pass. Allocations from prior
	// passes are immutable.
	Save(ctx context.Context, a *Allocation) error
	ListByPayment(ctx context.Context, paymentID uint64) ([]Allocation, error)
	ExistsForPayment(ctx context.Context, paymentID uint64) (bool, error)
}

type GatewayTransactionRepository interface {
	Append(ctx context.Context, tx *GatewayTransaction) error
}

type AuditRepository interface {
	Append(ctx context.Context, l *AuditLog) error
	ListByPayment(ctx context.Context, paymentID uint64) ([]AuditLog, error)
}
