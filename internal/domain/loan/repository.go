package loan

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*Loan, error)
	Save(ctx context.Context, l *Loan) error

	// Risk-engine reads.
	CountByBorrowerAndStatus(ctx context.Context, borrowerID uint64, st Status) (int64, error)
	SumPrincipalByBorrowerAndStatus(ctx context.Context, borrowerID uint64, st Status) (decimal.Decimal, error)
}

type InstallmentRepository interface {
	CreateBatch(ctx context.Context, installments []*Installment) error
	Save(ctx context.Context, i *Installment) error
	ListByLoan(ctx context.Context, loanID uint64) ([]Installment, error)
	// ListUnpaidByLoanForUpdate returns non-PAID installments ordered by due
	// date ascending, all locked for the duration of the transaction.
	ListUnpaidByLoanForUpdate(ctx context.Context, loanID uint64) ([]*Installment, error)
	// LastByLoanForUpdate locks and returns the chronologically last
	// installment, the overpayment sink.
	LastByLoanForUpdate(ctx context.Context, loanID uint64) (*Installment, error)

	// CountOverdueBefore counts a borrower's OVERDUE installments whose due
	// date is older than the cutoff.
	CountOverdueBefore(ctx context.Context, borrowerID uint64, cutoff time.Time) (int64, error)
	// MarkOverdue flips PENDING/PARTIAL installments past due as of asOf to
	// OVERDUE. Idempotent; returns the number of rows changed.
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}
