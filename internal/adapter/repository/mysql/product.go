package mysql

import (
	"context"

	"gorm.io/gorm"

	"lendflow-backend/internal/domain/product"
)

type ProductRepository struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) *ProductRepository { return &ProductRepository{db: db} }

func (r *ProductRepository) Create(ctx context.Context, p *product.LoanProduct) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProductRepository) GetByProductID(ctx context.Context, productID string) (*product.LoanProduct, error) {
	var out product.LoanProduct
	res := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&out)
	return &out, res.Error
}

func (r *ProductRepository) GetByID(ctx context.Context, id uint64) (*product.LoanProduct, error) {
	var out product.LoanProduct
	res := r.db.WithContext(ctx).Where("id = ?", id).First(&out)
	return &out, res.Error
}
