package uow

import (
	"context"

	"lendflow-backend/internal/domain/account"
	"lendflow-backend/internal/domain/application"
	"lendflow-backend/internal/domain/audit"
	"lendflow-backend/internal/domain/loan"
	"lendflow-backend/internal/domain/payment"
	"lendflow-backend/internal/domain/product"
)

// Repos bundles every repository bound to one transaction.
type Repos struct {
	Users         account.Repository
	Blacklists    account.BlacklistRepository
	BalanceTx     account.BalanceTransactionRepository
	Products      product.Repository
	Applications  application.Repository
	StatusHistory application.HistoryRepository
	Loans         loan.Repository
	Installments  loan.InstallmentRepository
	Payments      payment.Repository
	Allocations   payment.AllocationRepository
	GatewayTx     payment.GatewayTransactionRepository
	PaymentAudit  payment.AuditRepository
	Audit         audit.Repository
}

type UnitOfWork interface {
	// WithinTx runs fn inside one transaction; fn's error rolls everything
	// back.
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// WithinLoanTx locks the loan row first, then runs fn.
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
	// WithinPaymentTx locks the payment row first, then runs fn.
	WithinPaymentTx(ctx context.Context, paymentID string, fn func(r Repos, p *payment.Payment) error) error
}
