package mysql

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	loanDomain "lendflow-backend/internal/domain/loan"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) CountByBorrowerAndStatus(ctx context.Context, borrowerID uint64, st loanDomain.Status) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Where("borrower_id = ? AND status = ?", borrowerID, st).
		Count(&n)
	return n, res.Error
}

func (r *LoanRepository) SumPrincipalByBorrowerAndStatus(ctx context.Context, borrowerID uint64, st loanDomain.Status) (decimal.Decimal, error) {
	var out struct{ Total decimal.Decimal }
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Select("COALESCE(SUM(principal), 0) AS total").
		Where("borrower_id = ? AND status = ?", borrowerID, st).
		Scan(&out)
	return out.Total, res.Error
}

type InstallmentRepository struct{ db *gorm.DB }

func NewInstallmentRepository(db *gorm.DB) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

func (r *InstallmentRepository) CreateBatch(ctx context.Context, installments []*loanDomain.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(installments).Error
}

func (r *InstallmentRepository) Save(ctx context.Context, i *loanDomain.Installment) error {
	return r.db.WithContext(ctx).Save(i).Error
}

func (r *InstallmentRepository) ListByLoan(ctx context.Context, loanID uint64) ([]loanDomain.Installment, error) {
	var out []loanDomain.Installment
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("due_date ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *InstallmentRepository) ListUnpaidByLoanForUpdate(ctx context.Context, loanID uint64) ([]*loanDomain.Installment, error) {
	var out []*loanDomain.Installment
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ? AND status <> ?", loanID, loanDomain.InstallmentPaid).
		Order("due_date ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *InstallmentRepository) LastByLoanForUpdate(ctx context.Context, loanID uint64) (*loanDomain.Installment, error) {
	var out loanDomain.Installment
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		Order("due_date DESC, id DESC").
		First(&out)
	return &out, res.Error
}

func (r *InstallmentRepository) CountOverdueBefore(ctx context.Context, borrowerID uint64, cutoff time.Time) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Installment{}).
		Joins("JOIN loans ON loans.id = loan_installments.loan_id").
		Where("loans.borrower_id = ? AND loan_installments.status = ? AND loan_installments.due_date < ?",
			borrowerID, loanDomain.InstallmentOverdue, cutoff).
		Count(&n)
	return n, res.Error
}

func (r *InstallmentRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Installment{}).
		Where("due_date < ? AND status IN ?", asOf,
			[]loanDomain.InstallmentStatus{loanDomain.InstallmentPending, loanDomain.InstallmentPartial}).
		Update("status", loanDomain.InstallmentOverdue)
	return res.RowsAffected, res.Error
}
