package mysql

import (
	"context"

	"gorm.io/gorm"

	loanDomain "lendflow-backend/internal/domain/loan"
	paymentDomain "lendflow-backend/internal/domain/payment"
	"lendflow-backend/internal/domain/uow"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func bindRepos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Users:         &UserRepository{db: tx},
		Blacklists:    &BlacklistRepository{db: tx},
		BalanceTx:     &BalanceTransactionRepository{db: tx},
		Products:      &ProductRepository{db: tx},
		Applications:  &ApplicationRepository{db: tx},
		StatusHistory: &StatusHistoryRepository{db: tx},
		Loans:         &LoanRepository{db: tx},
		Installments:  &InstallmentRepository{db: tx},
		Payments:      &PaymentRepository{db: tx},
		Allocations:   &AllocationRepository{db: tx},
		GatewayTx:     &GatewayTransactionRepository{db: tx},
		PaymentAudit:  &PaymentAuditRepository{db: tx},
		Audit:         &AuditRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(bindRepos(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loanDomain.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := bindRepos(tx)
		// lock the loan row up-front to prevent races
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}

func (u *GormUoW) WithinPaymentTx(ctx context.Context, paymentID string, fn func(r uow.Repos, p *paymentDomain.Payment) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := bindRepos(tx)
		p, err := r.Payments.GetByPaymentIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		return fn(r, p)
	})
}
