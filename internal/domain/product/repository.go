package product

import "context"

type Repository interface {
	Create(ctx context.Context, p *LoanProduct) error
	GetByProductID(ctx context.Context, productID string) (*LoanProduct, error)
	GetByID(ctx context.Context, id uint64) (*LoanProduct, error)
}
